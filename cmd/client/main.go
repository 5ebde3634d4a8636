package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"auctionhouse/internal/models"

	"github.com/shopspring/decimal"
)

// client is a thin wrapper over the auction server's HTTP API. Each run gets
// its own anonymous session identity.
type client struct {
	baseURL string
	token   string
	userID  string
	http    *http.Client
	in      *bufio.Scanner
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: baseURL,
		http:    &http.Client{},
		in:      bufio.NewScanner(os.Stdin),
	}
}

func (c *client) connect() error {
	resp, err := c.http.Post(c.baseURL+"/session/guest", "application/json", nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer resp.Body.Close()

	var sess struct {
		UserID string `json:"user_id"`
		Token  string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return fmt.Errorf("bad session response: %w", err)
	}

	c.userID = sess.UserID
	c.token = sess.Token
	fmt.Println("Connected to auction server")
	fmt.Println("Your user ID for this session:", c.userID)
	return nil
}

func (c *client) do(method, path string, body interface{}, out interface{}) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil && errBody.Error != "" {
			return fmt.Errorf("%s", errBody.Error)
		}
		return fmt.Errorf("request failed: %s", resp.Status)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *client) prompt(label string) string {
	fmt.Print(label)
	if !c.in.Scan() {
		os.Exit(0)
	}
	return strings.TrimSpace(c.in.Text())
}

func (c *client) promptPrice(label string) (decimal.Decimal, error) {
	return decimal.NewFromString(c.prompt(label))
}

func displayMenu() {
	fmt.Println("Select an action")
	fmt.Println("1. View all auctions")
	fmt.Println("2. Create a new auction")
	fmt.Println("3. View auction details")
	fmt.Println("4. Place a bid")
	fmt.Println("5. View bids for an auction")
	fmt.Println("6. Close an auction")
	fmt.Println("7. View winning bids")
	fmt.Println("8. Exit")
}

func (c *client) start() {
	for {
		displayMenu()
		choice := c.prompt("Enter your choice: ")

		var err error
		switch choice {
		case "1":
			err = c.viewAllAuctions()
		case "2":
			err = c.createAuction()
		case "3":
			err = c.viewAuction()
		case "4":
			err = c.placeBid()
		case "5":
			err = c.viewBids()
		case "6":
			err = c.closeAuction()
		case "7":
			err = c.viewWinningBids()
		case "8":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Invalid option. Please try again.")
		}

		if err != nil {
			fmt.Println(err)
		}
	}
}

func (c *client) viewAllAuctions() error {
	var resp struct {
		Auctions []models.Auction `json:"auctions"`
	}
	if err := c.do(http.MethodGet, "/auctions", nil, &resp); err != nil {
		return err
	}

	if len(resp.Auctions) == 0 {
		fmt.Println("---------------------")
		fmt.Println("No active auctions yet!")
		fmt.Println("---------------------")
		return nil
	}

	for _, a := range resp.Auctions {
		fmt.Println("---------------------")
		fmt.Println("ID:", a.ID)
		fmt.Println("Name:", a.Name)
		fmt.Println("Owner:", a.OwnerID)
		fmt.Println("Type:", a.Type)
		fmt.Println("Price:", a.InitialPrice)
		fmt.Println("Status:", a.Status)
		fmt.Println("---------------------")
	}
	return nil
}

func (c *client) createAuction() error {
	fmt.Println("Create a New Auction")
	name := c.prompt("Enter auction name: ")

	fmt.Println("Select auction type:")
	fmt.Println("1. REVERSE (lowest bid wins)")
	fmt.Println("2. DOUBLE (continuous matching of buy/sell orders)")

	var typ models.AuctionType
	switch c.prompt("Enter type (1 or 2): ") {
	case "1":
		typ = models.TypeReverse
	case "2":
		typ = models.TypeDouble
	default:
		return fmt.Errorf("this type of auction is not supported")
	}

	price, err := c.promptPrice("Enter initial price: ")
	if err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}

	var resp struct {
		AuctionID string `json:"auction_id"`
	}
	body := map[string]interface{}{
		"name":          name,
		"type":          typ,
		"initial_price": price,
	}
	if err := c.do(http.MethodPost, "/auctions", body, &resp); err != nil {
		return err
	}

	fmt.Println("Auction created successfully! ID:", resp.AuctionID)
	return nil
}

func (c *client) viewAuction() error {
	fmt.Println("View auction information")
	auctionID := c.prompt("Enter auction ID: ")

	var a models.Auction
	if err := c.do(http.MethodGet, "/auctions/"+auctionID, nil, &a); err != nil {
		return err
	}

	fmt.Println("Auction information")
	fmt.Println("ID:", a.ID)
	fmt.Println("Name:", a.Name)
	fmt.Println("Owner:", a.OwnerID)
	fmt.Println("Type:", a.Type)
	fmt.Println("Initial Price:", a.InitialPrice)
	fmt.Println("Status:", a.Status)
	return nil
}

func (c *client) placeBid() error {
	fmt.Println("Place a bid")
	auctionID := c.prompt("Enter auction ID: ")

	var a models.Auction
	if err := c.do(http.MethodGet, "/auctions/"+auctionID, nil, &a); err != nil {
		return err
	}

	// Reverse auctions are sell-side only, so only ask for double auctions.
	isBuyer := false
	if a.Type == models.TypeDouble {
		side := strings.ToUpper(c.prompt("Are you buying or selling? (B/S): "))
		isBuyer = strings.HasPrefix(side, "B")
	}

	price, err := c.promptPrice("Enter your bid price: ")
	if err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}

	var resp struct {
		BidID string `json:"bid_id"`
	}
	body := map[string]interface{}{
		"price":    price,
		"is_buyer": isBuyer,
	}
	if err := c.do(http.MethodPost, "/auctions/"+auctionID+"/bids", body, &resp); err != nil {
		return err
	}

	fmt.Println("Bid placed successfully! Bid ID:", resp.BidID)
	return nil
}

func (c *client) viewBids() error {
	fmt.Println("View bids for auction")
	auctionID := c.prompt("Enter auction ID: ")

	var resp struct {
		Bids []models.Bid `json:"bids"`
	}
	if err := c.do(http.MethodGet, "/auctions/"+auctionID+"/bids", nil, &resp); err != nil {
		return err
	}

	fmt.Println("Bids for Auction " + auctionID + ":")
	for _, b := range resp.Bids {
		fmt.Println("------------------------------")
		fmt.Println("ID:", b.ID)
		fmt.Println("User ID:", b.UserID)
		fmt.Println("Price:", b.Price)
		fmt.Println("Buyer?", yesNo(b.IsBuyer))
		fmt.Println("Matched?", yesNo(b.Matched))
		fmt.Println("------------------------------")
	}
	return nil
}

func (c *client) closeAuction() error {
	fmt.Println("Close an auction")
	auctionID := c.prompt("Enter auction ID: ")

	var result models.CloseResult
	if err := c.do(http.MethodPost, "/auctions/"+auctionID+"/close", nil, &result); err != nil {
		return err
	}

	fmt.Println("Auction " + auctionID + " closed successfully!")
	fmt.Println("Closed by:", result.ClosedBy)
	printOutcome(result.Outcome)
	return nil
}

func (c *client) viewWinningBids() error {
	fmt.Println("View winning bids")
	auctionID := c.prompt("Enter auction ID: ")

	var outcome models.Outcome
	if err := c.do(http.MethodGet, "/auctions/"+auctionID+"/winners", nil, &outcome); err != nil {
		return err
	}

	fmt.Println("Winning Bids for Auction " + auctionID + ":")
	printOutcome(outcome)
	return nil
}

func printOutcome(outcome models.Outcome) {
	if len(outcome.Matches) > 0 {
		fmt.Println("Matched Orders:")
		for _, m := range outcome.Matches {
			fmt.Println("------------------------------")
			fmt.Println("Buy Order:", m.BuyOrderID)
			fmt.Println("Sell Order:", m.SellOrderID)
			fmt.Println("Buyer:", m.BuyerID)
			fmt.Println("Seller:", m.SellerID)
			fmt.Println("Match Price: $" + m.MatchPrice.String())
			fmt.Println("------------------------------")
		}
		return
	}

	if outcome.WinningBid != nil {
		b := outcome.WinningBid
		fmt.Println("Winning Bid:")
		fmt.Println("Bid ID:", b.ID)
		fmt.Println("User ID:", b.UserID)
		fmt.Println("Price: $" + b.Price.String())
		return
	}

	fmt.Println("No winning bids found for this auction.")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func main() {
	baseURL := "http://localhost:8080"
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}

	c := newClient(baseURL)
	if err := c.connect(); err != nil {
		fmt.Fprintln(os.Stderr, "Client connection failed:", err)
		os.Exit(1)
	}

	c.start()
}
