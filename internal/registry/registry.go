package registry

import (
	"errors"
	"sync"
	"time"

	"auctionhouse/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an auction id is unknown to the registry.
var ErrNotFound = errors.New("auction not found")

// Registry is the sole owner of auction records. All reads return copies,
// never live references.
type Registry struct {
	mu       sync.RWMutex
	auctions map[string]*models.Auction
	order    []string // insertion order, drives listing
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		auctions: make(map[string]*models.Auction),
	}
}

// Create allocates a fresh auction with status ACTIVE and returns its id.
func (r *Registry) Create(name, ownerID string, typ models.AuctionType, initialPrice decimal.Decimal) string {
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.auctions[id] = &models.Auction{
		ID:           id,
		Name:         name,
		OwnerID:      ownerID,
		Type:         typ,
		InitialPrice: initialPrice,
		Status:       models.StatusActive,
		CreatedAt:    time.Now(),
	}
	r.order = append(r.order, id)

	return id
}

// Get returns a snapshot of the auction with the given id.
func (r *Registry) Get(id string) (models.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[id]
	if !ok {
		return models.Auction{}, ErrNotFound
	}
	return *a, nil
}

// ListActive returns snapshots of all ACTIVE auctions in creation order.
func (r *Registry) ListActive() []models.Auction {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []models.Auction
	for _, id := range r.order {
		if a := r.auctions[id]; a.Status == models.StatusActive {
			active = append(active, *a)
		}
	}
	return active
}

// SetStatus updates the auction status. It returns false without mutating
// when callerID is not the owner; that is an authorization result, not an
// error, and callers must check it.
func (r *Registry) SetStatus(id string, status models.AuctionStatus, callerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[id]
	if !ok {
		return false, ErrNotFound
	}
	if a.OwnerID != callerID {
		return false, nil
	}

	a.Status = status
	return true, nil
}
