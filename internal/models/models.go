package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionType selects the matching rule for an auction.
type AuctionType string

const (
	// TypeDouble continuously matches buy and sell orders by price-time priority.
	TypeDouble AuctionType = "DOUBLE"
	// TypeReverse is sell-side only; the lowest price wins.
	TypeReverse AuctionType = "REVERSE"
)

// AuctionStatus is the auction lifecycle state. The only transition is
// ACTIVE -> CLOSED, exactly once, by the owner.
type AuctionStatus string

const (
	StatusActive AuctionStatus = "ACTIVE"
	StatusClosed AuctionStatus = "CLOSED"
)

// Valid reports whether t is a recognized auction type.
func (t AuctionType) Valid() bool {
	return t == TypeDouble || t == TypeReverse
}

// User represents a registered user
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Auction is a unit of trade with an owner, a type, and a lifecycle status.
// Immutable after creation except Status.
type Auction struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	OwnerID      string          `json:"owner_id"`
	Type         AuctionType     `json:"type"`
	InitialPrice decimal.Decimal `json:"initial_price"`
	Status       AuctionStatus   `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Bid is a price commitment from a participant. IsBuyer distinguishes buy
// from sell orders and is meaningful only in DOUBLE auctions. Matched flips
// false -> true exactly once when the matcher consumes the bid.
type Bid struct {
	ID        string          `json:"id"`
	AuctionID string          `json:"auction_id"`
	UserID    string          `json:"user_id"`
	Price     decimal.Decimal `json:"price"`
	IsBuyer   bool            `json:"is_buyer"`
	Matched   bool            `json:"matched"`
	CreatedAt time.Time       `json:"created_at"` // Used for time priority
}

// Match is a settled buy/sell pair. MatchPrice is the midpoint of the two
// order prices.
type Match struct {
	BuyOrderID  string          `json:"buy_order_id"`
	SellOrderID string          `json:"sell_order_id"`
	BuyerID     string          `json:"buyer_id"`
	SellerID    string          `json:"seller_id"`
	MatchPrice  decimal.Decimal `json:"match_price"`
}

// Outcome is the winning-bids view of an auction. At most one side is
// populated: Matches for DOUBLE auctions (the persisted match pairs),
// WinningBid for REVERSE (lowest live sell, nil when there are no bids).
type Outcome struct {
	Matches    []Match `json:"matches,omitempty"`
	WinningBid *Bid    `json:"winning_bid,omitempty"`
}

// CloseResult is the snapshot returned when an auction is closed.
type CloseResult struct {
	AuctionID string  `json:"auction_id"`
	ClosedBy  string  `json:"closed_by"`
	Outcome   Outcome `json:"outcome"`
}
