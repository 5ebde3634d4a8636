package engine

import (
	"testing"
	"time"

	"auctionhouse/internal/models"

	"github.com/shopspring/decimal"
)

func bid(id, userID string, price int64, isBuyer bool, offset time.Duration) models.Bid {
	return models.Bid{
		ID:        id,
		UserID:    userID,
		Price:     decimal.NewFromInt(price),
		IsBuyer:   isBuyer,
		CreatedAt: time.Now().Add(offset),
	}
}

func TestMatchDouble_MidpointPrice(t *testing.T) {
	bids := []models.Bid{
		bid("s1", "seller", 100, false, 0),
		bid("b1", "buyer", 120, true, time.Second),
	}

	matches := MatchDouble(bids)

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}

	m := matches[0]
	if m.BuyOrderID != "b1" || m.SellOrderID != "s1" {
		t.Errorf("expected b1/s1 pair, got %s/%s", m.BuyOrderID, m.SellOrderID)
	}
	if !m.MatchPrice.Equal(decimal.NewFromInt(110)) {
		t.Errorf("expected midpoint 110, got %s", m.MatchPrice)
	}
	if m.BuyerID != "buyer" || m.SellerID != "seller" {
		t.Errorf("unexpected parties: %s/%s", m.BuyerID, m.SellerID)
	}
}

func TestMatchDouble_NoMatchBelowAsk(t *testing.T) {
	bids := []models.Bid{
		bid("s1", "seller", 100, false, 0),
		bid("b1", "buyer", 90, true, time.Second),
	}

	if matches := MatchDouble(bids); len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
}

func TestMatchDouble_PriceTimePriority(t *testing.T) {
	// Two buys at the same price; the earlier one must take the only sell.
	bids := []models.Bid{
		bid("b1", "u1", 100, true, 0),
		bid("b2", "u2", 100, true, time.Second),
		bid("s1", "u3", 95, false, 2*time.Second),
	}

	matches := MatchDouble(bids)

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].BuyOrderID != "b1" {
		t.Errorf("expected earlier buy b1 to match first, got %s", matches[0].BuyOrderID)
	}
}

func TestMatchDouble_SellTimePriority(t *testing.T) {
	// Two sells at the same price; the earlier one must be taken first.
	bids := []models.Bid{
		bid("s1", "u1", 90, false, 0),
		bid("s2", "u2", 90, false, time.Second),
		bid("b1", "u3", 100, true, 2*time.Second),
	}

	matches := MatchDouble(bids)

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].SellOrderID != "s1" {
		t.Errorf("expected earlier sell s1 to match first, got %s", matches[0].SellOrderID)
	}
}

func TestMatchDouble_HighestBuyGetsCheapestSell(t *testing.T) {
	bids := []models.Bid{
		bid("s1", "u1", 80, false, 0),
		bid("s2", "u2", 90, false, time.Second),
		bid("b1", "u3", 95, true, 2*time.Second),
		bid("b2", "u4", 100, true, 3*time.Second),
	}

	matches := MatchDouble(bids)

	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	// b2 has the higher price, so it scans first and takes the cheapest sell.
	if matches[0].BuyOrderID != "b2" || matches[0].SellOrderID != "s1" {
		t.Errorf("expected b2/s1 first, got %s/%s", matches[0].BuyOrderID, matches[0].SellOrderID)
	}
	if matches[1].BuyOrderID != "b1" || matches[1].SellOrderID != "s2" {
		t.Errorf("expected b1/s2 second, got %s/%s", matches[1].BuyOrderID, matches[1].SellOrderID)
	}
}

func TestMatchDouble_MatchedBidsExcluded(t *testing.T) {
	bids := []models.Bid{
		bid("s1", "u1", 100, false, 0),
		bid("b1", "u2", 120, true, time.Second),
	}
	bids[0].Matched = true
	bids[1].Matched = true

	// A fully settled book produces nothing on a re-run.
	if matches := MatchDouble(bids); len(matches) != 0 {
		t.Errorf("expected no matches on settled book, got %d", len(matches))
	}
}

func TestMatchDouble_BidMatchesAtMostOnce(t *testing.T) {
	// One sell, many crossing buys: the sell must appear in exactly one match.
	bids := []models.Bid{
		bid("s1", "u1", 50, false, 0),
		bid("b1", "u2", 60, true, time.Second),
		bid("b2", "u3", 70, true, 2*time.Second),
		bid("b3", "u4", 80, true, 3*time.Second),
	}

	matches := MatchDouble(bids)

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}

	seen := make(map[string]int)
	for _, m := range matches {
		seen[m.BuyOrderID]++
		seen[m.SellOrderID]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("bid %s matched %d times", id, n)
		}
	}
}

func TestMatchDouble_MatchPriceWithinBounds(t *testing.T) {
	bids := []models.Bid{
		bid("s1", "u1", 30, false, 0),
		bid("s2", "u2", 45, false, time.Second),
		bid("b1", "u3", 50, true, 2*time.Second),
		bid("b2", "u4", 45, true, 3*time.Second),
	}

	prices := make(map[string]decimal.Decimal)
	for _, b := range bids {
		prices[b.ID] = b.Price
	}

	for _, m := range MatchDouble(bids) {
		buy, sell := prices[m.BuyOrderID], prices[m.SellOrderID]
		if m.MatchPrice.LessThan(sell) || m.MatchPrice.GreaterThan(buy) {
			t.Errorf("match price %s outside [%s, %s]", m.MatchPrice, sell, buy)
		}
	}
}

func TestMatchedBidIDs(t *testing.T) {
	matches := []models.Match{
		{BuyOrderID: "b1", SellOrderID: "s1"},
		{BuyOrderID: "b2", SellOrderID: "s2"},
	}

	ids := MatchedBidIDs(matches)

	if len(ids) != 4 {
		t.Fatalf("expected 4 ids, got %d", len(ids))
	}
	want := []string{"b1", "s1", "b2", "s2"}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("expected ids[%d]=%s, got %s", i, id, ids[i])
		}
	}
}

func TestLowestSell(t *testing.T) {
	tests := []struct {
		name   string
		bids   []models.Bid
		wantID string
	}{
		{
			name:   "NoBids",
			bids:   nil,
			wantID: "",
		},
		{
			name: "LowestWins",
			bids: []models.Bid{
				bid("a", "u1", 10, false, 0),
				bid("b", "u2", 7, false, time.Second),
			},
			wantID: "b",
		},
		{
			name: "TieBrokenByArrival",
			bids: []models.Bid{
				bid("a", "u1", 10, false, 0),
				bid("b", "u2", 7, false, time.Second),
				bid("c", "u3", 7, false, 2*time.Second),
			},
			wantID: "b",
		},
		{
			name: "IgnoresMatchedFlag",
			bids: []models.Bid{
				{ID: "a", UserID: "u1", Price: decimal.NewFromInt(5), Matched: true},
				bid("b", "u2", 8, false, time.Second),
			},
			wantID: "a",
		},
		{
			name: "SkipsBuyOrders",
			bids: []models.Bid{
				bid("a", "u1", 1, true, 0),
				bid("b", "u2", 9, false, time.Second),
			},
			wantID: "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner := LowestSell(tt.bids)
			if tt.wantID == "" {
				if winner != nil {
					t.Errorf("expected no winner, got %s", winner.ID)
				}
				return
			}
			if winner == nil {
				t.Fatal("expected a winner, got none")
			}
			if winner.ID != tt.wantID {
				t.Errorf("expected winner %s, got %s", tt.wantID, winner.ID)
			}
		})
	}
}
