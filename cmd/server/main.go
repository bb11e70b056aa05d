// Package main runs the launchpad service: the trade engine, its payout
// reconciler, the storage mirror, the websocket feed and the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"curve-launchpad/internal/engine"
	"curve-launchpad/internal/feed"
	"curve-launchpad/internal/graduation"
	"curve-launchpad/internal/ledger"
	"curve-launchpad/internal/observability"
	"curve-launchpad/internal/storage"
	chstore "curve-launchpad/internal/storage/clickhouse"
	"curve-launchpad/internal/storage/memory"
	"curve-launchpad/internal/storage/migrations"
	pgstore "curve-launchpad/internal/storage/postgres"
)

// Server holds the wired components behind the HTTP API.
type Server struct {
	engine   *engine.Engine
	recorder *storage.Recorder
	hub      *feed.Hub
	tokens   storage.TokenStore
	receipts storage.ReceiptStore
	events   storage.GraduationEventStore
	logger   *log.Logger

	mu      sync.Mutex
	started time.Time
	trades  int
}

// allStores holds the storage backends behind the mirror.
type allStores struct {
	tokens    storage.TokenStore
	receipts  storage.ReceiptStore
	events    storage.GraduationEventStore
	analytics storage.ReceiptStore // nil without ClickHouse
}

func main() {
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")

	defaults := engine.DefaultConfig()
	initialPrice := flag.Uint64("initial-price", envOrUint64("INITIAL_PRICE", defaults.InitialPrice), "Curve price at zero supply (scaled)")
	growthConstant := flag.Uint64("growth-constant", envOrUint64("GROWTH_CONSTANT", defaults.GrowthConstant), "Curve exponent at full supply (1e18 scale)")
	graduationSupply := flag.Uint64("graduation-supply", envOrUint64("GRADUATION_SUPPLY", defaults.GraduationSupply), "Quantity that ends curve issuance")
	graduationThreshold := flag.Uint64("graduation-threshold", envOrUint64("GRADUATION_THRESHOLD", defaults.GraduationThresholdValue), "Raised value at which a token graduates")
	platformFeeBps := flag.Uint64("platform-fee-bps", envOrUint64("PLATFORM_FEE_BPS", defaults.PlatformFeeBps), "Platform fee in basis points")
	creatorFeeBps := flag.Uint64("creator-fee-bps", envOrUint64("CREATOR_FEE_BPS", defaults.CreatorFeeBps), "Creator fee in basis points")
	minTradeValue := flag.Uint64("min-trade-value", envOrUint64("MIN_TRADE_VALUE", defaults.MinTradeValue), "Smallest accepted gross trade value")
	maxTradeValue := flag.Uint64("max-trade-value", envOrUint64("MAX_TRADE_VALUE", defaults.MaxTradeValue), "Largest accepted gross trade value")
	feeDestination := flag.String("protocol-fee-destination", envOr("PROTOCOL_FEE_DESTINATION", defaults.ProtocolFeeDestination), "Account receiving the platform fee share")

	flag.Parse()

	cfg := defaults
	cfg.InitialPrice = *initialPrice
	cfg.GrowthConstant = *growthConstant
	cfg.GraduationSupply = *graduationSupply
	cfg.GraduationThresholdValue = *graduationThreshold
	cfg.PlatformFeeBps = *platformFeeBps
	cfg.CreatorFeeBps = *creatorFeeBps
	cfg.MinTradeValue = *minTradeValue
	cfg.MaxTradeValue = *maxTradeValue
	cfg.ProtocolFeeDestination = *feeDestination

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	hub := feed.NewHub(feed.Options{
		Logger: log.New(os.Stdout, "[feed] ", log.LstdFlags),
	})
	defer hub.Close()

	eng, err := engine.New(engine.Options{
		Config: cfg,
		Payout: &loggingRail{logger: log.New(os.Stdout, "[payout] ", log.LstdFlags)},
		Pool:   &loggingPool{logger: log.New(os.Stdout, "[pool] ", log.LstdFlags)},
		Logger: log.New(os.Stdout, "[engine] ", log.LstdFlags),
	})
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}

	recorder := storage.NewRecorder(storage.RecorderOptions{
		Tokens:    stores.tokens,
		Receipts:  stores.receipts,
		Events:    stores.events,
		Analytics: stores.analytics,
		Snapshots: eng,
		Logger:    log.New(os.Stdout, "[recorder] ", log.LstdFlags),
	})

	// Committed events fan out to the durable mirror and the live feed.
	eng.SetSink(engine.MultiSink(recorder, hub))

	server := &Server{
		engine:   eng,
		recorder: recorder,
		hub:      hub,
		tokens:   stores.tokens,
		receipts: stores.receipts,
		events:   stores.events,
		logger:   logger,
		started:  time.Now(),
	}

	go recorder.Run(ctx)
	go func() {
		if err := eng.Reconciler().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("reconciler stopped: %v", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              *listenAddr,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	logger.Printf("Listening on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the storage backends.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			tokens:   memory.NewTokenStore(),
			receipts: memory.NewReceiptStore(),
			events:   memory.NewGraduationEventStore(),
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	stores := &allStores{
		tokens:   pgstore.NewTokenStore(pool),
		receipts: pgstore.NewReceiptStore(pool),
		events:   pgstore.NewGraduationEventStore(pool),
	}
	cleanup := func() { pool.Close() }

	// ClickHouse is optional; without it the analytics copy is skipped.
	if clickhouseDSN != "" {
		chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		stores.analytics = chstore.NewTradeFeedStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/tokens", s.handleCreateToken)
	mux.HandleFunc("GET /api/tokens/{id}", s.handleGetToken)
	mux.HandleFunc("GET /api/tokens/{id}/receipts", s.handleGetReceipts)
	mux.HandleFunc("GET /api/tokens/{id}/graduation", s.handleGetGraduation)
	mux.HandleFunc("POST /api/tokens/{id}/buy", s.handleBuy)
	mux.HandleFunc("POST /api/tokens/{id}/sell", s.handleSell)

	mux.Handle("GET /ws", s.hub)
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)

	return mux
}

// CreateTokenRequest is the JSON body for POST /api/tokens.
type CreateTokenRequest struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Creator string `json:"creator"`
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req CreateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.engine.CreateToken(req.Name, req.Symbol, req.Creator)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	// Mirror synchronously so the row exists before the first trade lands.
	s.recorder.RecordToken(r.Context(), token)

	writeJSON(w, http.StatusCreated, token)
}

// TradeRequest is the JSON body for buy and sell.
type TradeRequest struct {
	// Buy: Value is the gross payment; MinQuantityOut the slippage floor.
	Value          uint64 `json:"value,omitempty"`
	MinQuantityOut uint64 `json:"min_quantity_out,omitempty"`

	// Sell: Quantity is the units surrendered; MinValueOut the slippage floor.
	Quantity    uint64 `json:"quantity,omitempty"`
	MinValueOut uint64 `json:"min_value_out,omitempty"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := s.engine.Buy(r.Context(), r.PathValue("id"), req.Value, req.MinQuantityOut)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	s.countTrade()
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := s.engine.Sell(r.Context(), r.PathValue("id"), req.Quantity, req.MinValueOut)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	s.countTrade()
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	token, err := s.engine.Token(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (s *Server) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.receipts.GetByTokenID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

func (s *Server) handleGetGraduation(w http.ResponseWriter, r *http.Request) {
	event, err := s.events.GetByTokenID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "token has not graduated")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	Trades        int    `json:"trades"`
	FeedClients   int    `json:"feed_clients"`
	PendingPayout int    `json:"pending_payouts"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	trades := s.trades
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).String(),
		Trades:        trades,
		FeedClients:   s.hub.ClientCount(),
		PendingPayout: s.engine.Reconciler().QueueDepth(),
	})
}

func (s *Server) countTrade() {
	s.mu.Lock()
	s.trades++
	s.mu.Unlock()
}

// writeEngineError maps engine and ledger errors to HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrInvalidMetadata),
		errors.Is(err, engine.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrSlippageExceeded),
		errors.Is(err, ledger.ErrSupplyExceeded),
		errors.Is(err, ledger.ErrAlreadyGraduated):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// loggingRail is the in-process stand-in for the fee transfer rail.
type loggingRail struct {
	logger *log.Logger
}

func (r *loggingRail) Transfer(_ context.Context, destination string, amount uint64) error {
	r.logger.Printf("transfer %d to %s", amount, destination)
	return nil
}

// loggingPool is the in-process stand-in for the external liquidity pool.
type loggingPool struct {
	logger *log.Logger
}

func (p *loggingPool) SeedLiquidity(_ context.Context, tokenID string, quantity, value uint64) (string, error) {
	p.logger.Printf("seeding pool for %s: quantity=%d value=%d", tokenID, quantity, value)
	return "pool-" + tokenID, nil
}

var _ graduation.PoolSeeder = (*loggingPool)(nil)

// envOr returns the env var value or a default.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envOrUint64 returns the env var parsed as uint64, or a default.
func envOrUint64(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
