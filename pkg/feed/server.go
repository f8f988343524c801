package feed

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/MilaKyr/trading-app/pkg/exchange"
)

// Server is the read-only market-data tap over the matching registry:
// REST endpoints for the catalog, book depth and recent trades, plus a
// WebSocket stream of executed trades. It never mutates registry state.
type Server struct {
	registry *exchange.Registry
	router   *mux.Router
	hub      *Hub
	log      *zap.SugaredLogger
}

func NewServer(registry *exchange.Registry, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{
		registry: registry,
		router:   mux.NewRouter(),
		hub:      NewHub(log),
		log:      log,
	}
	s.setupRoutes()
	return s
}

// Hub returns the WebSocket hub so it can be attached to the registry as a
// trade sink.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/products", s.handleGetProducts).Methods("GET")
	api.HandleFunc("/depth", s.handleGetDepth).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the market-data server. Blocks until the listener fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	s.log.Infow("feed_listening", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleGetProducts(w http.ResponseWriter, r *http.Request) {
	products := exchange.Products()
	response := make([]ProductInfo, len(products))
	for i, p := range products {
		response[i] = ProductInfo{Symbol: p.String()}
	}
	respondJSON(w, response)
}

func (s *Server) handleGetDepth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.registry.Depth())
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		limit = n
	}

	trades := s.registry.RecentTrades(limit)
	response := make([]TradeInfo, len(trades))
	for i, t := range trades {
		response[i] = TradeInfo{
			Product:   t.Symbol,
			Buyer:     uint64(t.BuyerID),
			Seller:    uint64(t.SellerID),
			Timestamp: t.Timestamp.UnixMilli(),
		}
	}
	respondJSON(w, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, StatusInfo{Status: "ok", Traders: s.registry.TraderCount()})
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
