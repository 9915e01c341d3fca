package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/hsong-dev/tradegate/pkg/asset"
	"github.com/hsong-dev/tradegate/pkg/exchange"
)

// OrderReader is the read side of the store used by the query
// endpoints.
type OrderReader interface {
	ListOrdersByOwner(ctx context.Context, owner string) ([]*exchange.Order, error)
	ListTradesBySymbol(ctx context.Context, symbol string, limit int) ([]*exchange.Trade, error)
	ListTradesByOwner(ctx context.Context, owner string) ([]*exchange.Trade, error)
}

// AssetAdmin exposes the on-chain asset registration operations.
type AssetAdmin interface {
	RegisterAsset(ctx context.Context, a asset.Asset) (*exchange.SettlementReceipt, error)
	UnregisterAsset(ctx context.Context, assetID [32]byte) (*exchange.SettlementReceipt, error)
}

// Server handles REST API and WebSocket connections
type Server struct {
	orch     *exchange.Orchestrator
	reader   OrderReader
	registry *asset.Registry
	admin    AssetAdmin
	router   *mux.Router
	hub      *Hub
	notifier *HubNotifier
	txLog    *os.File // Order submission log file
	origins  []string
}

// NewServer creates a new API server
func NewServer(orch *exchange.Orchestrator, reader OrderReader, registry *asset.Registry, admin AssetAdmin, corsOrigins []string) *Server {
	// Open submission log file
	txLogPath := os.Getenv("TX_LOG_FILE")
	if txLogPath == "" {
		// Create data directory if it doesn't exist
		os.MkdirAll("data", 0755)
		txLogPath = "data/orders.log"
	}

	txLog, err := os.OpenFile(txLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("[api] WARNING: failed to open order log file %s: %v", txLogPath, err)
		txLog = nil // Continue without submission logging
	} else {
		log.Printf("[api] order log: %s", txLogPath)
	}

	hub := NewHub()
	s := &Server{
		orch:     orch,
		reader:   reader,
		registry: registry,
		admin:    admin,
		router:   mux.NewRouter(),
		hub:      hub,
		notifier: NewHubNotifier(hub, nil),
		txLog:    txLog,
		origins:  corsOrigins,
	}

	s.setupRoutes()
	return s
}

// Notify implements the orchestrator's Notifier port over the
// websocket hub.
func (s *Server) Notify(dest string, ev exchange.Event) error {
	return s.notifier.Notify(dest, ev)
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Order submission
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")

	// Read endpoints
	api.HandleFunc("/orders/{owner}", s.handleGetOrdersByOwner).Methods("GET")
	api.HandleFunc("/trades/{symbol}", s.handleGetTradesBySymbol).Methods("GET")
	api.HandleFunc("/trades/owner/{owner}", s.handleGetTradesByOwner).Methods("GET")

	// Asset endpoints
	api.HandleFunc("/assets", s.handleGetAssets).Methods("GET")
	api.HandleFunc("/admin/assets", s.handleRegisterAsset).Methods("POST")
	api.HandleFunc("/admin/assets/{symbol}", s.handleUnregisterAsset).Methods("DELETE")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	// Start WebSocket hub
	go s.hub.Run()

	// CORS configuration
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	handler := c.Handler(s.router)

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, handler)
}

// ==============================
// Order Handlers
// ==============================

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body", err.Error())
		return
	}

	// The pipeline outlives the request: a requester disconnect must
	// not cancel a settlement that may already be on chain. The
	// configured settlement timeout is the only bound on the wait.
	out := s.orch.ProcessOrder(context.WithoutCancel(r.Context()), body)

	resp := SubmitOrderResponse{Status: out.Status}
	if out.Order != nil {
		resp.OrderID = out.Order.ID
	}
	if out.Trade != nil {
		resp.TradeID = out.Trade.ID
		resp.TxHash = out.Trade.SettlementTxHash
	}
	if out.Err != nil {
		resp.Message = summarize(out.Err)
	}

	s.logSubmission(out)

	if out.Status == exchange.OutcomeMatched && out.Trade != nil {
		s.broadcastTrade(out.Trade)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode(out.Status))
	json.NewEncoder(w).Encode(resp)
}

func statusCode(outcome string) int {
	switch outcome {
	case exchange.OutcomeRejected:
		return http.StatusBadRequest
	case exchange.OutcomeStorageFailed:
		return http.StatusServiceUnavailable
	case exchange.OutcomeSettlementFailed, exchange.OutcomeEnqueueFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

// broadcastTrade publishes a settled trade to trades:<symbol>
// subscribers.
func (s *Server) broadcastTrade(t *exchange.Trade) {
	s.hub.BroadcastToChannel("trades:"+t.Symbol, TradeUpdate{
		Type:        "trade",
		Symbol:      t.Symbol,
		TradeID:     t.ID,
		Price:       t.Price.String(),
		Qty:         t.Qty.String(),
		Side:        t.Side.String(),
		TxHash:      t.SettlementTxHash,
		BlockNumber: t.SettlementBlockNumber,
		Timestamp:   t.MatchedAt.UnixMilli(),
	})
}

// ==============================
// Read Handlers
// ==============================

func (s *Server) handleGetOrdersByOwner(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]
	orders, err := s.reader.ListOrdersByOwner(r.Context(), owner)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query failed", "")
		return
	}
	if orders == nil {
		orders = []*exchange.Order{}
	}
	respondJSON(w, orders)
}

func (s *Server) handleGetTradesBySymbol(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	trades, err := s.reader.ListTradesBySymbol(r.Context(), symbol, 100)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query failed", "")
		return
	}
	if trades == nil {
		trades = []*exchange.Trade{}
	}
	respondJSON(w, trades)
}

func (s *Server) handleGetTradesByOwner(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]
	trades, err := s.reader.ListTradesByOwner(r.Context(), owner)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "query failed", "")
		return
	}
	if trades == nil {
		trades = []*exchange.Trade{}
	}
	respondJSON(w, trades)
}

// ==============================
// Asset Handlers
// ==============================

func (s *Server) handleGetAssets(w http.ResponseWriter, r *http.Request) {
	assets := s.registry.List()
	response := make([]AssetInfo, len(assets))
	for i, a := range assets {
		response[i] = AssetInfo{
			Symbol:   a.Symbol,
			Decimals: a.Decimals,
			AssetID:  "0x" + hex.EncodeToString(a.ID[:]),
		}
	}
	respondJSON(w, response)
}

func (s *Server) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req RegisterAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	a, err := s.registry.Resolve(req.Symbol)
	if err != nil {
		respondError(w, http.StatusNotFound, "unsupported asset", req.Symbol)
		return
	}

	receipt, err := s.admin.RegisterAsset(r.Context(), a)
	if err != nil {
		respondError(w, http.StatusBadGateway, "asset registration failed", summarize(err))
		return
	}
	respondJSON(w, RegisterAssetResponse{
		Symbol:      a.Symbol,
		AssetID:     "0x" + hex.EncodeToString(a.ID[:]),
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
	})
}

func (s *Server) handleUnregisterAsset(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	a, err := s.registry.Resolve(symbol)
	if err != nil {
		respondError(w, http.StatusNotFound, "unsupported asset", symbol)
		return
	}

	receipt, err := s.admin.UnregisterAsset(r.Context(), a.ID)
	if err != nil {
		respondError(w, http.StatusBadGateway, "asset unregistration failed", summarize(err))
		return
	}
	respondJSON(w, map[string]string{"status": "unregistered", "txHash": receipt.TxHash})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

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

// summarize caps how much of an internal error reaches the requester.
func summarize(err error) string {
	msg := err.Error()
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// logSubmission writes a submission outcome to the log file
func (s *Server) logSubmission(out exchange.Outcome) {
	if s.txLog == nil {
		return // Logging disabled
	}

	data := map[string]interface{}{"status": out.Status}
	if out.Order != nil {
		data["order_id"] = out.Order.ID
		data["symbol"] = out.Order.Symbol
	}
	if out.Trade != nil {
		data["trade_id"] = out.Trade.ID
	}
	entry := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
		"event":     "ORDER_SUBMIT",
		"data":      data,
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		log.Printf("[api] failed to marshal order log entry: %v", err)
		return
	}

	// Write to file (one JSON object per line)
	s.txLog.Write(jsonData)
	s.txLog.Write([]byte("\n"))
}
