package auction

import (
	"fmt"
	"sync"
	"testing"

	"auctionhouse/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestService_CreateAuction(t *testing.T) {
	svc := NewService()

	id, err := svc.CreateAuction("lamp", "owner-1", models.TypeReverse, price(40))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	a, err := svc.GetAuction(id)
	require.NoError(t, err)
	assert.Equal(t, "lamp", a.Name)
	assert.Equal(t, "owner-1", a.OwnerID)
	assert.Equal(t, models.StatusActive, a.Status)

	_, err = svc.CreateAuction("bad", "owner-1", models.AuctionType("DUTCH"), price(1))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestService_GetAuctionNotFound(t *testing.T) {
	svc := NewService()

	_, err := svc.GetAuction("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetBids("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.PlaceBid("missing", "u1", price(10), false)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetWinningBids("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CloseAuction("missing", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_DoubleAuctionEndToEnd(t *testing.T) {
	svc := NewService()

	id, err := svc.CreateAuction("bulk coffee", "owner-1", models.TypeDouble, price(100))
	require.NoError(t, err)

	sellID, err := svc.PlaceBid(id, "seller", price(100), false)
	require.NoError(t, err)

	buyID, err := svc.PlaceBid(id, "buyer", price(120), true)
	require.NoError(t, err)

	// The crossing buy triggers exactly one match at the midpoint.
	outcome, err := svc.GetWinningBids(id)
	require.NoError(t, err)
	require.Len(t, outcome.Matches, 1)

	m := outcome.Matches[0]
	assert.Equal(t, buyID, m.BuyOrderID)
	assert.Equal(t, sellID, m.SellOrderID)
	assert.Equal(t, "buyer", m.BuyerID)
	assert.Equal(t, "seller", m.SellerID)
	assert.True(t, m.MatchPrice.Equal(price(110)), "expected midpoint 110, got %s", m.MatchPrice)

	// Both bids carry the matched flag.
	bids, err := svc.GetBids(id)
	require.NoError(t, err)
	require.Len(t, bids, 2)
	for _, b := range bids {
		assert.True(t, b.Matched, "bid %s should be matched", b.ID)
	}

	// Re-running the matcher over the settled book produces nothing.
	matches, err := svc.MatchOrders(id)
	require.NoError(t, err)
	assert.Empty(t, matches)

	outcome, err = svc.GetWinningBids(id)
	require.NoError(t, err)
	assert.Len(t, outcome.Matches, 1)
}

func TestService_ReverseAuctionEndToEnd(t *testing.T) {
	svc := NewService()

	id, err := svc.CreateAuction("office cleaning", "owner-1", models.TypeReverse, price(60))
	require.NoError(t, err)

	_, err = svc.PlaceBid(id, "vendor-a", price(50), false)
	require.NoError(t, err)
	winnerID, err := svc.PlaceBid(id, "vendor-b", price(30), false)
	require.NoError(t, err)

	outcome, err := svc.GetWinningBids(id)
	require.NoError(t, err)
	require.NotNil(t, outcome.WinningBid)
	assert.Equal(t, winnerID, outcome.WinningBid.ID)
	assert.True(t, outcome.WinningBid.Price.Equal(price(30)))

	// Non-owner close attempts never mutate status, no matter how many.
	for i := 0; i < 3; i++ {
		_, err := svc.CloseAuction(id, "vendor-a")
		assert.ErrorIs(t, err, ErrUnauthorized)
	}
	a, err := svc.GetAuction(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, a.Status)

	// Owner close succeeds and the snapshot carries the winner.
	result, err := svc.CloseAuction(id, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, id, result.AuctionID)
	assert.Equal(t, "owner-1", result.ClosedBy)
	require.NotNil(t, result.Outcome.WinningBid)
	assert.Equal(t, winnerID, result.Outcome.WinningBid.ID)

	a, err = svc.GetAuction(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, a.Status)
}

func TestService_ReverseWinnerStableUnderEqualBid(t *testing.T) {
	svc := NewService()

	id, err := svc.CreateAuction("stable ties", "owner-1", models.TypeReverse, price(20))
	require.NoError(t, err)

	_, err = svc.PlaceBid(id, "u1", price(10), false)
	require.NoError(t, err)
	first, err := svc.PlaceBid(id, "u2", price(7), false)
	require.NoError(t, err)
	// An equal-price bid arriving later must not displace the winner.
	_, err = svc.PlaceBid(id, "u3", price(7), false)
	require.NoError(t, err)

	outcome, err := svc.GetWinningBids(id)
	require.NoError(t, err)
	require.NotNil(t, outcome.WinningBid)
	assert.Equal(t, first, outcome.WinningBid.ID)
}

func TestService_ReverseRejectsBuyers(t *testing.T) {
	svc := NewService()

	id, err := svc.CreateAuction("sell only", "owner-1", models.TypeReverse, price(10))
	require.NoError(t, err)

	for _, p := range []int64{1, 10, 1000000} {
		_, err := svc.PlaceBid(id, "buyer", price(p), true)
		assert.ErrorIs(t, err, ErrInvalidSide)
	}

	bids, err := svc.GetBids(id)
	require.NoError(t, err)
	assert.Empty(t, bids, "rejected bids must not reach the ledger")
}

func TestService_ClosedAuctionRejectsBids(t *testing.T) {
	svc := NewService()

	id, err := svc.CreateAuction("short lived", "owner-1", models.TypeDouble, price(10))
	require.NoError(t, err)

	_, err = svc.CloseAuction(id, "owner-1")
	require.NoError(t, err)

	_, err = svc.PlaceBid(id, "u1", price(10), true)
	assert.ErrorIs(t, err, ErrAuctionClosed)
}

func TestService_MatchOrdersOnReverse(t *testing.T) {
	svc := NewService()

	id, err := svc.CreateAuction("no matching here", "owner-1", models.TypeReverse, price(10))
	require.NoError(t, err)

	_, err = svc.MatchOrders(id)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = svc.MatchOrders("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_ConcurrentBidsMatchExactlyOnce(t *testing.T) {
	svc := NewService()

	id, err := svc.CreateAuction("busy market", "owner-1", models.TypeDouble, price(100))
	require.NoError(t, err)

	const pairs = 50

	var wg sync.WaitGroup
	wg.Add(2 * pairs)
	for i := 0; i < pairs; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := svc.PlaceBid(id, fmt.Sprintf("seller-%d", i), price(100), false)
			assert.NoError(t, err)
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := svc.PlaceBid(id, fmt.Sprintf("buyer-%d", i), price(100), true)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	outcome, err := svc.GetWinningBids(id)
	require.NoError(t, err)

	// Every bid appears in at most one match, and every match is priced
	// between its sell and buy prices (all 100 here, so exactly 100).
	seen := make(map[string]int)
	for _, m := range outcome.Matches {
		seen[m.BuyOrderID]++
		seen[m.SellOrderID]++
		assert.True(t, m.MatchPrice.Equal(price(100)))
	}
	for bidID, n := range seen {
		assert.Equal(t, 1, n, "bid %s matched %d times", bidID, n)
	}

	// Equal counts of crossing buys and sells settle completely.
	assert.Len(t, outcome.Matches, pairs)

	bids, err := svc.GetBids(id)
	require.NoError(t, err)
	require.Len(t, bids, 2*pairs)
	for _, b := range bids {
		assert.True(t, b.Matched, "bid %s left unmatched", b.ID)
	}
}
