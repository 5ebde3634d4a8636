package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"auctionhouse/internal/api"
	"auctionhouse/internal/auction"
	"auctionhouse/internal/models"
	"auctionhouse/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type WSClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

var (
	clients   = make(map[*WSClient]bool)
	clientsMu sync.RWMutex
)

// broadcastAuctions pushes the current active-auction list and each
// auction's outcome to every connected websocket client.
func broadcastAuctions(svc *auction.Service, log *zap.Logger) {
	active := svc.ListActiveAuctions()
	outcomes := make(map[string]models.Outcome, len(active))
	for _, a := range active {
		outcome, err := svc.GetWinningBids(a.ID)
		if err != nil {
			continue
		}
		outcomes[a.ID] = outcome
	}

	feed := struct {
		Auctions []models.Auction          `json:"auctions"`
		Outcomes map[string]models.Outcome `json:"outcomes"`
	}{
		Auctions: active,
		Outcomes: outcomes,
	}
	data, err := json.Marshal(feed)
	if err != nil {
		log.Error("failed to marshal auction feed", zap.Error(err))
		return
	}

	clientsMu.RLock()
	var dead []*WSClient
	for client := range clients {
		client.mu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()
		if err != nil {
			log.Warn("failed to send feed message", zap.Error(err))
			dead = append(dead, client)
		}
	}
	clientsMu.RUnlock()

	if len(dead) > 0 {
		clientsMu.Lock()
		for _, client := range dead {
			delete(clients, client)
		}
		clientsMu.Unlock()
	}
}

func handleWebSocket(svc *auction.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("failed to upgrade connection", zap.Error(err))
			return
		}

		client := &WSClient{conn: conn}
		clientsMu.Lock()
		clients[client] = true
		clientsMu.Unlock()

		// Send initial state
		broadcastAuctions(svc, log)

		// Keep connection alive and handle disconnection
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				clientsMu.Lock()
				delete(clients, client)
				clientsMu.Unlock()
				break
			}
		}
	}
}

// Main entry point: sets up the auction service, sessions, and HTTP server
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("jwt_secret", "dev-secret-change-me")
	viper.SetDefault("token_ttl", 24*time.Hour)
	viper.SetDefault("broadcast_interval", 5*time.Second)

	viper.SetConfigName("auctionhouse")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("auctionhouse")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logger.Fatal("failed to read config", zap.Error(err))
		}
	}

	// Initialize the auction service (registry, ledger, matching engine)
	svc := auction.NewService()

	// Initialize session service
	sessions := session.NewService(viper.GetString("jwt_secret"), viper.GetDuration("token_ttl"))

	// Initialize API handlers
	handler := api.NewHandler(svc, sessions, logger)

	// Set up HTTP router
	r := chi.NewRouter()

	// Enable CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WebSocket feed
	r.Get("/ws", handleWebSocket(svc, logger))

	// API endpoints
	r.Mount("/", handler.Routes())

	// Start periodic auction feed broadcast
	go func() {
		ticker := time.NewTicker(viper.GetDuration("broadcast_interval"))
		for range ticker.C {
			broadcastAuctions(svc, logger)
		}
	}()

	// Start server
	addr := viper.GetString("listen_addr")
	logger.Info("starting auction server", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
