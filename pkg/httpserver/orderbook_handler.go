package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/mselser95/predmarket-arb/internal/discovery"
	"github.com/mselser95/predmarket-arb/internal/orderbook"
	"github.com/mselser95/predmarket-arb/pkg/types"
	"go.uber.org/zap"
)

// OrderbookHandler serves a read-only view of the live ladders held by the
// store, keyed by market slug so the dashboard can link straight to it.
type OrderbookHandler struct {
	store            *orderbook.Store
	discoveryService *discovery.Service
	logger           *zap.Logger
}

// NewOrderbookHandler creates a new orderbook handler.
func NewOrderbookHandler(store *orderbook.Store, discSvc *discovery.Service, logger *zap.Logger) *OrderbookHandler {
	return &OrderbookHandler{
		store:            store,
		discoveryService: discSvc,
		logger:           logger,
	}
}

// OutcomeOrderbook represents orderbook data for a single outcome.
type OutcomeOrderbook struct {
	Outcome      string  `json:"outcome"`
	TokenID      string  `json:"token_id"`
	BestBidPrice float64 `json:"best_bid_price"`
	BestBidSize  float64 `json:"best_bid_size"`
	BestAskPrice float64 `json:"best_ask_price"`
	BestAskSize  float64 `json:"best_ask_size"`
}

// OrderbookResponse represents the HTTP response for orderbook data.
type OrderbookResponse struct {
	MarketID   string             `json:"market_id"`
	MarketSlug string             `json:"market_slug"`
	Question   string             `json:"question"`
	Outcomes   []OutcomeOrderbook `json:"outcomes"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleOrderbook handles GET /api/orderbook?slug=<market-slug> requests.
func (h *OrderbookHandler) HandleOrderbook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	slug := r.URL.Query().Get("slug")
	if slug == "" {
		h.writeError(w, "missing required query parameter: slug", http.StatusBadRequest)
		return
	}

	h.logger.Debug("orderbook-request-received", zap.String("slug", slug))

	marketSub := h.findBySlug(slug)
	if marketSub == nil {
		h.writeError(w, "market not found or not subscribed", http.StatusNotFound)
		return
	}

	outcomes := make([]OutcomeOrderbook, 0, len(marketSub.Outcomes))
	for _, outcome := range marketSub.Outcomes {
		view, found := h.store.Book(marketSub.MarketID, outcome.TokenID)
		if !found {
			h.logger.Debug("orderbook-not-available",
				zap.String("token-id", outcome.TokenID),
				zap.String("outcome", outcome.Outcome))
			continue
		}

		outcomeBook := OutcomeOrderbook{Outcome: outcome.Outcome, TokenID: outcome.TokenID}
		if bid, ok := view.BestBid(); ok {
			outcomeBook.BestBidPrice, _ = bid.Price.Float64()
			outcomeBook.BestBidSize, _ = bid.Size.Float64()
		}
		if ask, ok := view.BestAsk(); ok {
			outcomeBook.BestAskPrice, _ = ask.Price.Float64()
			outcomeBook.BestAskSize, _ = ask.Size.Float64()
		}
		outcomes = append(outcomes, outcomeBook)
	}

	response := OrderbookResponse{
		MarketID:   marketSub.MarketID,
		MarketSlug: marketSub.MarketSlug,
		Question:   marketSub.Question,
		Outcomes:   outcomes,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *OrderbookHandler) findBySlug(slug string) *types.MarketSubscription {
	for _, sub := range h.discoveryService.GetSubscribedMarkets() {
		if sub.MarketSlug == slug {
			return sub
		}
	}
	return nil
}

// writeError writes a JSON error response.
func (h *OrderbookHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
