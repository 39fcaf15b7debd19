// Package server exposes the action dispatcher and the Prometheus metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-ensemble/internal/engine"
	"github.com/rxtech-lab/argo-ensemble/internal/logger"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	dispatcher engine.Dispatcher
	metrics    http.Handler
	logger     *logger.Logger

	httpServer *http.Server
	listener   net.Listener
}

// NewServer creates a server. metrics may be nil, in which case /metrics is not routed.
func NewServer(dispatcher engine.Dispatcher, metrics http.Handler, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Server{
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     log.Named("server"),
	}
}

// Router builds the routes:
//
//	GET|POST /api/actions/{action}
//	GET      /metrics
//	GET      /healthz
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/actions/{action}", s.handleAction).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	if s.metrics != nil {
		router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	return router
}

// Start listens on address and serves in the background. ":0" picks a free port.
func (s *Server) Start(address string) error {
	if address == "" {
		address = ":0"
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to listen on %s", address)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("Serving", zap.String("address", listener.Addr().String()))

	return nil
}

func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// Address returns the address the server listens on.
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

// handleAction reads the params from the query string, or from a JSON body on POST.
// Mutating actions are only accepted on POST.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["action"]

	action, err := engine.ParseAction(name)
	if err == nil && action.Mutates() && r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error": name + " changes state and must be sent as POST",
		})

		return
	}

	params, err := parseParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})

		return
	}

	report := s.dispatcher.Dispatch(r.Context(), name, params)

	status := http.StatusOK

	switch {
	case report.OK:
	case len(report.ValidActions) > 0:
		status = http.StatusNotFound
	default:
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseParams(r *http.Request) (engine.Params, error) {
	var params engine.Params

	if r.Method == http.MethodPost && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			return engine.Params{}, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid request body", err)
		}
	}

	query := r.URL.Query()

	if symbols := query.Get("symbols"); symbols != "" {
		params.Symbols = nil

		for _, symbol := range strings.Split(symbols, ",") {
			if symbol = strings.ToUpper(strings.TrimSpace(symbol)); symbol != "" {
				params.Symbols = append(params.Symbols, symbol)
			}
		}
	}

	if symbol := query.Get("symbol"); symbol != "" {
		params.Symbol = strings.ToUpper(strings.TrimSpace(symbol))
	}

	if limit := query.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return engine.Params{}, errors.Newf(errors.ErrCodeInvalidParameter, "invalid limit %q", limit)
		}

		params.Limit = n
	}

	return params, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
