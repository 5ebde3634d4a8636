package ledger

import (
	"errors"
	"sync"
	"time"

	"auctionhouse/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no bid book exists for an auction id.
var ErrNotFound = errors.New("bid book not found")

// Ledger owns the per-auction bid books and the match records produced by
// the engine. Bids are append-only except the Matched flag, which is
// monotone false -> true. All reads return copies.
type Ledger struct {
	mu      sync.RWMutex
	books   map[string][]*models.Bid
	matches map[string][]models.Match
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{
		books:   make(map[string][]*models.Bid),
		matches: make(map[string][]models.Match),
	}
}

// CreateBook initializes an empty bid book for a freshly created auction.
func (l *Ledger) CreateBook(auctionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.books[auctionID]; !ok {
		l.books[auctionID] = []*models.Bid{}
	}
}

// Append records a new bid and returns its id. The caller is responsible for
// having validated auction status and side rules first.
func (l *Ledger) Append(auctionID, userID string, price decimal.Decimal, isBuyer bool) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	book, ok := l.books[auctionID]
	if !ok {
		return "", ErrNotFound
	}

	bid := &models.Bid{
		ID:        uuid.NewString(),
		AuctionID: auctionID,
		UserID:    userID,
		Price:     price,
		IsBuyer:   isBuyer,
		CreatedAt: time.Now(),
	}
	l.books[auctionID] = append(book, bid)

	return bid.ID, nil
}

// List returns copies of the auction's bids in arrival order. Arrival order
// is significant: it is the tie-break for the matcher.
func (l *Ledger) List(auctionID string) ([]models.Bid, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	book, ok := l.books[auctionID]
	if !ok {
		return nil, ErrNotFound
	}

	bids := make([]models.Bid, len(book))
	for i, b := range book {
		bids[i] = *b
	}
	return bids, nil
}

// MarkMatched flips the Matched flag of the given bids. Already-matched bids
// stay matched; the flag is never unset.
func (l *Ledger) MarkMatched(auctionID string, bidIDs ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	book, ok := l.books[auctionID]
	if !ok {
		return ErrNotFound
	}

	for _, id := range bidIDs {
		for _, b := range book {
			if b.ID == id {
				b.Matched = true
				break
			}
		}
	}
	return nil
}

// AppendMatches persists match pairs produced by a matching pass. Explicit
// pairs are stored because the matched flags alone cannot say which sell
// settled against which buy.
func (l *Ledger) AppendMatches(auctionID string, matches []models.Match) {
	if len(matches) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.matches[auctionID] = append(l.matches[auctionID], matches...)
}

// ListMatches returns copies of the persisted match pairs in settlement order.
func (l *Ledger) ListMatches(auctionID string) []models.Match {
	l.mu.RLock()
	defer l.mu.RUnlock()

	src := l.matches[auctionID]
	matches := make([]models.Match, len(src))
	copy(matches, src)
	return matches
}
