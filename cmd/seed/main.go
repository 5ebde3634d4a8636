package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
)

// Seed the auction server with demo data: one double auction with a pair of
// crossing orders and one reverse auction with competing sell bids.
func main() {
	baseURL := "http://localhost:8080"
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}

	seller := newSession(baseURL)
	buyer := newSession(baseURL)

	// Double auction owned by the seller
	doubleID := seller.createAuction("Demo double auction", "DOUBLE", "100")
	seller.placeBid(doubleID, "100", false)
	buyer.placeBid(doubleID, "120", true)

	// Reverse auction owned by the buyer, two competing sellers
	reverseID := buyer.createAuction("Demo reverse auction", "REVERSE", "60")
	seller.placeBid(reverseID, "50", false)
	seller.placeBid(reverseID, "30", false)

	fmt.Println("Successfully seeded the auction server!")
	fmt.Println("Double auction:", doubleID)
	fmt.Println("Reverse auction:", reverseID)
}

type session struct {
	baseURL string
	token   string
	userID  string
}

func newSession(baseURL string) *session {
	resp, err := http.Post(baseURL+"/session/guest", "application/json", nil)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		UserID string `json:"user_id"`
		Token  string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Fatalf("Failed to decode session: %v", err)
	}

	return &session{baseURL: baseURL, token: body.Token, userID: body.UserID}
}

func (s *session) post(path string, payload map[string]interface{}, out interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("Failed to marshal request: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request to %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Fatalf("Request to %s failed: %s", path, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("Failed to decode response from %s: %v", path, err)
		}
	}
}

func (s *session) createAuction(name, typ, initialPrice string) string {
	var resp struct {
		AuctionID string `json:"auction_id"`
	}
	s.post("/auctions", map[string]interface{}{
		"name":          name,
		"type":          typ,
		"initial_price": initialPrice,
	}, &resp)
	return resp.AuctionID
}

func (s *session) placeBid(auctionID, price string, isBuyer bool) {
	s.post("/auctions/"+auctionID+"/bids", map[string]interface{}{
		"price":    price,
		"is_buyer": isBuyer,
	}, nil)
}
