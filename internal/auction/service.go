// Package auction is the synchronized entry point over the registry, the
// ledger, and the matching engine. It owns every cross-component invariant:
// status checks, side rules, and the bid-append-then-match sequence, which
// runs as one critical section per auction.
package auction

import (
	"errors"
	"fmt"
	"sync"

	"auctionhouse/internal/engine"
	"auctionhouse/internal/ledger"
	"auctionhouse/internal/models"
	"auctionhouse/internal/registry"

	"github.com/shopspring/decimal"
)

// Error taxonomy surfaced to callers. Every failure is scoped to one call;
// nothing is retried internally.
var (
	ErrNotFound        = errors.New("auction not found")
	ErrAuctionClosed   = errors.New("auction closed")
	ErrInvalidSide     = errors.New("buyers cannot bid in a reverse auction")
	ErrUnauthorized    = errors.New("only the auction owner can close the auction")
	ErrUnsupportedType = errors.New("unsupported auction type")
)

// Service combines registry, ledger, and engine into atomic operations.
type Service struct {
	registry *registry.Registry
	ledger   *ledger.Ledger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // one exclusive lock per auction id
}

// NewService creates a service over fresh registry and ledger state.
func NewService() *Service {
	return &Service{
		registry: registry.NewRegistry(),
		ledger:   ledger.NewLedger(),
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockFor returns the per-auction mutex, creating it on first use. Locking
// per auction keeps unrelated auctions from serializing behind each other.
func (s *Service) lockFor(auctionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[auctionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[auctionID] = l
	}
	return l
}

// CreateAuction registers a new ACTIVE auction owned by ownerID and
// initializes its empty bid book.
func (s *Service) CreateAuction(name, ownerID string, typ models.AuctionType, initialPrice decimal.Decimal) (string, error) {
	if !typ.Valid() {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
	}

	id := s.registry.Create(name, ownerID, typ, initialPrice)
	s.ledger.CreateBook(id)
	return id, nil
}

// GetAuction returns a snapshot of a single auction.
func (s *Service) GetAuction(auctionID string) (models.Auction, error) {
	a, err := s.registry.Get(auctionID)
	if err != nil {
		return models.Auction{}, fmt.Errorf("%w: %s", ErrNotFound, auctionID)
	}
	return a, nil
}

// ListActiveAuctions returns snapshots of all ACTIVE auctions in creation order.
func (s *Service) ListActiveAuctions() []models.Auction {
	return s.registry.ListActive()
}

// PlaceBid validates the bid against auction state, appends it to the
// ledger, and for DOUBLE auctions immediately runs a matching pass and
// persists its results. The whole sequence holds the auction's lock so two
// concurrent bids can neither slip past a stale status nor double-match.
func (s *Service) PlaceBid(auctionID, userID string, price decimal.Decimal, isBuyer bool) (string, error) {
	lock := s.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	a, err := s.registry.Get(auctionID)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, auctionID)
	}
	if a.Status == models.StatusClosed {
		return "", fmt.Errorf("%w: %s", ErrAuctionClosed, auctionID)
	}
	if a.Type == models.TypeReverse && isBuyer {
		return "", ErrInvalidSide
	}

	bidID, err := s.ledger.Append(auctionID, userID, price, isBuyer)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, auctionID)
	}

	if a.Type == models.TypeDouble {
		if err := s.runMatchPass(auctionID); err != nil {
			return "", err
		}
	}

	return bidID, nil
}

// MatchOrders runs one explicit matching pass on a DOUBLE auction and
// returns the matches it produced. Running it on a settled book is a no-op.
func (s *Service) MatchOrders(auctionID string) ([]models.Match, error) {
	lock := s.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	a, err := s.registry.Get(auctionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, auctionID)
	}
	if a.Type != models.TypeDouble {
		return nil, fmt.Errorf("%w: order matching is only for double auctions", ErrUnsupportedType)
	}

	bids, err := s.ledger.List(auctionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, auctionID)
	}

	matches := engine.MatchDouble(bids)
	if err := s.persistMatches(auctionID, matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// runMatchPass is MatchOrders without re-locking; callers hold the auction lock.
func (s *Service) runMatchPass(auctionID string) error {
	bids, err := s.ledger.List(auctionID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, auctionID)
	}
	return s.persistMatches(auctionID, engine.MatchDouble(bids))
}

func (s *Service) persistMatches(auctionID string, matches []models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	if err := s.ledger.MarkMatched(auctionID, engine.MatchedBidIDs(matches)...); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, auctionID)
	}
	s.ledger.AppendMatches(auctionID, matches)
	return nil
}

// GetBids returns copies of an auction's bids in arrival order.
func (s *Service) GetBids(auctionID string) ([]models.Bid, error) {
	if _, err := s.registry.Get(auctionID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, auctionID)
	}

	bids, err := s.ledger.List(auctionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, auctionID)
	}
	return bids, nil
}

// GetWinningBids returns the auction outcome: persisted match pairs for a
// DOUBLE auction, the lowest live sell bid for a REVERSE auction.
func (s *Service) GetWinningBids(auctionID string) (models.Outcome, error) {
	a, err := s.registry.Get(auctionID)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("%w: %s", ErrNotFound, auctionID)
	}

	switch a.Type {
	case models.TypeDouble:
		return models.Outcome{Matches: s.ledger.ListMatches(auctionID)}, nil
	case models.TypeReverse:
		bids, err := s.ledger.List(auctionID)
		if err != nil {
			return models.Outcome{}, fmt.Errorf("%w: %s", ErrNotFound, auctionID)
		}
		return models.Outcome{WinningBid: engine.LowestSell(bids)}, nil
	default:
		return models.Outcome{}, fmt.Errorf("%w: %s", ErrUnsupportedType, a.Type)
	}
}

// CloseAuction transitions the auction to CLOSED and returns a snapshot of
// its outcome. A non-owner gets ErrUnauthorized and never mutates status,
// no matter how often it retries.
func (s *Service) CloseAuction(auctionID, userID string) (models.CloseResult, error) {
	lock := s.lockFor(auctionID)
	lock.Lock()
	defer lock.Unlock()

	updated, err := s.registry.SetStatus(auctionID, models.StatusClosed, userID)
	if err != nil {
		return models.CloseResult{}, fmt.Errorf("%w: %s", ErrNotFound, auctionID)
	}
	if !updated {
		return models.CloseResult{}, ErrUnauthorized
	}

	outcome, err := s.GetWinningBids(auctionID)
	if err != nil {
		return models.CloseResult{}, err
	}

	return models.CloseResult{
		AuctionID: auctionID,
		ClosedBy:  userID,
		Outcome:   outcome,
	}, nil
}
