package rpc

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"stakeledger/core"
	"stakeledger/core/types"
	"stakeledger/indexer"
	"stakeledger/native/staking"
	"stakeledger/observability"
	"stakeledger/observability/logging"
)

const defaultMaxRequestBytes = 1 << 20 // 1 MiB

// Ledger is the node surface served over JSON-RPC.
type Ledger interface {
	ApplyTransaction(tx *types.Transaction) (*types.Receipt, error)
	Config() (*staking.Config, error)
	Participant(owner [20]byte) (*staking.Participant, error)
	StakeRecord(addr [20]byte) (*staking.StakeRecord, error)
	StakesByOwner(owner [20]byte) ([]*staking.StakeRecord, error)
	Balances(owner [20]byte) (*core.Balances, error)
	Nonce(addr [20]byte) (uint64, error)
}

// Head exposes the committed chain head. *core.Node satisfies it.
type Head interface {
	ChainID() uint64
	Height() uint64
	StateRoot() common.Hash
}

// EventSource lists indexed events.
type EventSource interface {
	List(filter indexer.Filter) ([]indexer.EventRecord, error)
}

// ServerConfig tunes the HTTP listener.
type ServerConfig struct {
	AuthToken          string
	RateLimitPerSecond float64
	RateLimitBurst     int
	MaxBodyBytes       int64
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

type Server struct {
	node    Ledger
	head    Head
	events  EventSource
	cfg     ServerConfig
	limiter *rateLimiter
	logger  *slog.Logger

	serverMu   sync.Mutex
	httpServer *http.Server
}

type requestIDKey struct{}

// NewServer builds a JSON-RPC server over node. events may be nil when the
// event index is disabled.
func NewServer(node Ledger, events EventSource, cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxRequestBytes
	}
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	srv := &Server{
		node:    node,
		events:  events,
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		logger:  logger,
	}
	if head, ok := node.(Head); ok {
		srv.head = head
	}
	return srv
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestContext)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(rpc chi.Router) {
		if s.limiter != nil {
			rpc.Use(s.limiter.middleware)
		}
		rpc.Post("/", s.handle)
		rpc.Post("/rpc", s.handle)
	})
	return otelhttp.NewHandler(r, "stakeledger.rpc")
}

// Serve accepts connections on listener until Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}
	s.serverMu.Lock()
	s.httpServer = srv
	s.serverMu.Unlock()
	s.logger.Info("json-rpc server listening", slog.String("addr", listener.Addr().String()))
	return srv.Serve(listener)
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	srv := s.httpServer
	s.serverMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func writeError(w http.ResponseWriter, id interface{}, rpcErr *RPCError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rpcErr.httpStatus())
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

// handle decodes a single JSON-RPC request and routes it to its handler.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer func() {
		_ = reader.Close()
	}()

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxBodyBytes)
		}
		writeError(w, nil, newError(status, codeInvalidRequest, message, err.Error()))
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, nil, newError(http.StatusBadRequest, codeInvalidRequest, "request body required", nil))
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, nil, newError(http.StatusBadRequest, codeParseError, "invalid JSON payload", err.Error()))
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, req.ID, newError(http.StatusBadRequest, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC))
		return
	}
	if req.Method == "" {
		writeError(w, req.ID, newError(http.StatusBadRequest, codeInvalidRequest, "method required", nil))
		return
	}

	started := time.Now()
	result, rpcErr := s.dispatch(r, req)
	code := 0
	if rpcErr != nil {
		code = rpcErr.Code
	}
	observability.ModuleMetrics().Observe("stake", req.Method, code, time.Since(started))
	s.logger.Debug("rpc request",
		slog.String("request_id", requestID(r.Context())),
		slog.String("method", req.Method),
		slog.String("remote", clientSource(r)),
		logging.MaskField("authorization", r.Header.Get("Authorization")),
		slog.Int("code", code),
		slog.Duration("elapsed", time.Since(started)))
	if rpcErr != nil {
		writeError(w, req.ID, rpcErr)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) dispatch(r *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	switch req.Method {
	case "stake_sendTransaction":
		if authErr := s.requireAuth(r); authErr != nil {
			return nil, authErr
		}
		return s.handleSendTransaction(req)
	case "stake_status":
		return s.handleStatus()
	case "stake_getConfig":
		return s.handleGetConfig()
	case "stake_getParticipant":
		return s.handleGetParticipant(req)
	case "stake_getPosition":
		return s.handleGetPosition(req)
	case "stake_listPositions":
		return s.handleListPositions(req)
	case "stake_listEvents":
		return s.handleListEvents(req)
	case "stake_getBalance":
		return s.handleGetBalance(req)
	default:
		return nil, newError(http.StatusNotFound, codeMethodNotFound, fmt.Sprintf("unknown method %q", req.Method), nil)
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.cfg.AuthToken == "" {
		return newError(http.StatusUnauthorized, codeUnauthorized, "RPC authentication token not configured", nil)
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return newError(http.StatusUnauthorized, codeUnauthorized, "missing Authorization header", nil)
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return newError(http.StatusUnauthorized, codeUnauthorized, "Authorization header must use Bearer scheme", nil)
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return newError(http.StatusUnauthorized, codeUnauthorized, "missing bearer token", nil)
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
		return newError(http.StatusUnauthorized, codeUnauthorized, "invalid RPC credentials", nil)
	}
	return nil
}
