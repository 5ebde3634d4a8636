package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"auctionhouse/internal/auction"
	"auctionhouse/internal/models"
	"auctionhouse/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Auctions *auction.Service
	Sessions *session.Service
	Log      *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(auctions *auction.Service, sessions *session.Service, log *zap.Logger) *Handler {
	return &Handler{Auctions: auctions, Sessions: sessions, Log: log}
}

// Routes mounts all endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// Public endpoints
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/session/guest", h.GuestSession)

	// Protected endpoints (require a session token)
	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Get("/auctions", h.ListAuctions)
		r.Post("/auctions", h.CreateAuction)
		r.Get("/auctions/{id}", h.GetAuction)
		r.Post("/auctions/{id}/bids", h.PlaceBid)
		r.Get("/auctions/{id}/bids", h.GetBids)
		r.Post("/auctions/{id}/match", h.MatchOrders)
		r.Get("/auctions/{id}/winners", h.GetWinningBids)
		r.Post("/auctions/{id}/close", h.CloseAuction)
	})

	return r
}

// writeError maps the service error taxonomy onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auction.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auction.ErrAuctionClosed):
		status = http.StatusConflict
	case errors.Is(err, auction.ErrInvalidSide), errors.Is(err, auction.ErrUnsupportedType):
		status = http.StatusBadRequest
	case errors.Is(err, auction.ErrUnauthorized):
		status = http.StatusForbidden
	}

	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, `{"error": "Username and password required"}`, http.StatusBadRequest)
		return
	}

	user, err := h.Sessions.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		http.Error(w, `{"error": "Failed to register user"}`, http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"id":       user.ID,
		"username": user.Username,
	})
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	token, err := h.Sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		http.Error(w, `{"error": "Invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// GuestSession mints an anonymous per-session identity and token.
func (h *Handler) GuestSession(w http.ResponseWriter, r *http.Request) {
	userID, token, err := h.Sessions.Guest(r.Context())
	if err != nil {
		http.Error(w, `{"error": "Failed to create session"}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"user_id": userID,
		"token":   token,
	})
}

// AuthMiddleware verifies session tokens
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			http.Error(w, `{"error": "Authorization header required"}`, http.StatusUnauthorized)
			return
		}

		// Remove "Bearer " prefix if present
		if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
			tokenString = tokenString[7:]
		}

		userID, err := h.Sessions.UserFromToken(tokenString)
		if err != nil {
			http.Error(w, `{"error": "Invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(userIDKey).(string)
	return id, ok && id != ""
}

// CreateAuction handles auction creation
func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Name         string          `json:"name"`
		Type         string          `json:"type"`
		InitialPrice decimal.Decimal `json:"initial_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, `{"error": "Auction name required"}`, http.StatusBadRequest)
		return
	}
	if req.InitialPrice.IsNegative() {
		http.Error(w, `{"error": "Initial price must not be negative"}`, http.StatusBadRequest)
		return
	}

	auctionID, err := h.Auctions.CreateAuction(req.Name, userID, models.AuctionType(req.Type), req.InitialPrice)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Log.Info("auction created",
		zap.String("auction_id", auctionID),
		zap.String("owner_id", userID),
		zap.String("type", req.Type))

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"auction_id": auctionID})
}

// ListAuctions returns all active auctions
func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	auctions := h.Auctions.ListActiveAuctions()
	json.NewEncoder(w).Encode(map[string]interface{}{"auctions": auctions})
}

// GetAuction returns a single auction snapshot
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	a, err := h.Auctions.GetAuction(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(a)
}

// PlaceBid handles bid placement and, for double auctions, matching
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Price   decimal.Decimal `json:"price"`
		IsBuyer bool            `json:"is_buyer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "Invalid request body"}`, http.StatusBadRequest)
		return
	}

	if !req.Price.IsPositive() {
		http.Error(w, `{"error": "Price must be positive"}`, http.StatusBadRequest)
		return
	}

	auctionID := chi.URLParam(r, "id")
	bidID, err := h.Auctions.PlaceBid(auctionID, userID, req.Price, req.IsBuyer)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Log.Info("bid placed",
		zap.String("auction_id", auctionID),
		zap.String("bid_id", bidID),
		zap.String("price", req.Price.String()),
		zap.Bool("is_buyer", req.IsBuyer))

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"bid_id": bidID})
}

// GetBids returns an auction's bids in arrival order
func (h *Handler) GetBids(w http.ResponseWriter, r *http.Request) {
	bids, err := h.Auctions.GetBids(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"bids": bids})
}

// MatchOrders runs an explicit matching pass on a double auction
func (h *Handler) MatchOrders(w http.ResponseWriter, r *http.Request) {
	matches, err := h.Auctions.MatchOrders(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"matches": matches})
}

// GetWinningBids returns the auction outcome
func (h *Handler) GetWinningBids(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.Auctions.GetWinningBids(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(outcome)
}

// CloseAuction closes an auction on behalf of its owner
func (h *Handler) CloseAuction(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		http.Error(w, `{"error": "Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	auctionID := chi.URLParam(r, "id")
	result, err := h.Auctions.CloseAuction(auctionID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.Log.Info("auction closed",
		zap.String("auction_id", auctionID),
		zap.String("closed_by", userID))

	json.NewEncoder(w).Encode(result)
}
