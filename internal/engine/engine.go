// Package engine implements the matching rules: the continuous double-auction
// matcher and the reverse-auction winner selection. Both are pure functions
// over a bid snapshot; the engine owns no state.
package engine

import (
	"sort"

	"auctionhouse/internal/models"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// MatchDouble runs one matching pass over a bid snapshot and returns the
// matches produced, in the order they were made.
//
// Unmatched buy orders are taken highest price first, unmatched sell orders
// lowest price first; the sorts are stable, so among equal prices arrival
// order wins (price-time priority). Each buy order is paired with the first
// still-unmatched sell order priced at or below it, settling at the midpoint
// of the two prices. A bid matches at most once per pass, and bids already
// matched in earlier passes are filtered out up front, so re-running the
// matcher over a settled book is a no-op.
func MatchDouble(bids []models.Bid) []models.Match {
	var buys, sells []models.Bid
	for _, b := range bids {
		if b.Matched {
			continue
		}
		if b.IsBuyer {
			buys = append(buys, b)
		} else {
			sells = append(sells, b)
		}
	}

	// Highest buy price first, then earliest arrival
	sort.SliceStable(buys, func(i, j int) bool {
		return buys[i].Price.GreaterThan(buys[j].Price)
	})
	// Lowest sell price first, then earliest arrival
	sort.SliceStable(sells, func(i, j int) bool {
		return sells[i].Price.LessThan(sells[j].Price)
	})

	taken := make([]bool, len(sells))
	var matches []models.Match

	for _, buy := range buys {
		for i, sell := range sells {
			if taken[i] {
				continue
			}
			if sell.Price.LessThanOrEqual(buy.Price) {
				taken[i] = true
				matches = append(matches, models.Match{
					BuyOrderID:  buy.ID,
					SellOrderID: sell.ID,
					BuyerID:     buy.UserID,
					SellerID:    sell.UserID,
					MatchPrice:  buy.Price.Add(sell.Price).Div(two),
				})
				break
			}
		}
	}

	return matches
}

// MatchedBidIDs returns the ids of every bid consumed by the given matches,
// buy and sell sides both.
func MatchedBidIDs(matches []models.Match) []string {
	ids := make([]string, 0, 2*len(matches))
	for _, m := range matches {
		ids = append(ids, m.BuyOrderID, m.SellOrderID)
	}
	return ids
}

// LowestSell selects the reverse-auction winner: the sell bid with the
// strictly lowest price, earliest arrival winning ties. It ignores the
// matched flag and the auction status, so it always reflects the current
// lowest live bid. Returns nil when there are no sell bids.
func LowestSell(bids []models.Bid) *models.Bid {
	var winner *models.Bid
	for i := range bids {
		b := bids[i]
		if b.IsBuyer {
			continue
		}
		if winner == nil || b.Price.LessThan(winner.Price) {
			winner = &b
		}
	}
	return winner
}
