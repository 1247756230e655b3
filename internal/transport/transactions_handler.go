// Package transport exposes the read API over HTTP.
package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/model"
	"github.com/goodnatureofminers/blockinsight7000-evm/internal/evm/service/query"
)

const (
	RouteTransactions        = "/transactions"
	RouteTransactionsByValue = "/transactions/by-value"
	RouteTransactionsCount   = "/transactions/count"
	RouteHealth              = "/healthz"
)

type errorResponse struct {
	Error string `json:"error"`
}

// TransactionsHandler serves address lookups.
type TransactionsHandler struct {
	querier Querier
	metrics Metrics
	logger  *zap.Logger
}

// NewTransactionsHandler returns a TransactionsHandler instance.
func NewTransactionsHandler(querier Querier, metrics Metrics, logger *zap.Logger) (*TransactionsHandler, error) {
	if querier == nil {
		return nil, errors.New("transactions handler querier is required")
	}
	if metrics == nil {
		return nil, errors.New("transactions handler metrics is required")
	}
	return &TransactionsHandler{querier: querier, metrics: metrics, logger: logger}, nil
}

// Register mounts the read routes and the health check on mux.
func (h *TransactionsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+RouteTransactions, h.list(RouteTransactions, model.OrderBlockPosition, "Error retrieving transactions"))
	mux.HandleFunc("GET "+RouteTransactionsByValue, h.list(RouteTransactionsByValue, model.OrderValueDesc, "Error retrieving transactions sorted by value"))
	mux.HandleFunc("GET "+RouteTransactionsCount, h.count)
	mux.HandleFunc("GET "+RouteHealth, h.health)
}

func (h *TransactionsHandler) list(route string, order model.Order, failure string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		q := r.URL.Query()

		result, err := h.querier.Transactions(r.Context(), query.ListParams{
			Address: q.Get("address"),
			Page:    q.Get("page"),
			Limit:   q.Get("limit"),
		}, order)
		if err != nil {
			h.fail(w, route, err, failure, started)
			return
		}
		h.respond(w, route, http.StatusOK, result, started)
	}
}

func (h *TransactionsHandler) count(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	result, err := h.querier.Count(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		h.fail(w, RouteTransactionsCount, err, "Error retrieving transaction count", started)
		return
	}
	h.respond(w, RouteTransactionsCount, http.StatusOK, result, started)
}

func (h *TransactionsHandler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *TransactionsHandler) fail(w http.ResponseWriter, route string, err error, failure string, started time.Time) {
	var argErr *query.ArgumentError
	if errors.As(err, &argErr) {
		h.respond(w, route, http.StatusBadRequest, errorResponse{Error: argErr.Reason}, started)
		return
	}
	h.logger.Error("request failed", zap.String("route", route), zap.Error(err))
	h.respond(w, route, http.StatusInternalServerError, errorResponse{Error: failure}, started)
}

func (h *TransactionsHandler) respond(w http.ResponseWriter, route string, code int, body any, started time.Time) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("write response", zap.String("route", route), zap.Error(err))
	}
	h.metrics.Observe(route, code, started)
}
