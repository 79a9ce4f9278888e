package types

import (
	"encoding/json"
	"time"
)

// Market is a market-catalog record as fetched from the Gamma HTTP API and
// consumed by discovery/correlation: {market_id, condition_id, question,
// slug, category, asset_ids[], outcome_names[], end_time, volume_24h,
// active, closed, order_book_enabled, event_id}.
type Market struct {
	ID              string    `json:"id"`
	ConditionID     string    `json:"conditionId"`
	Question        string    `json:"question"`
	Slug            string    `json:"slug"`
	Category        string    `json:"category"`
	Closed          bool      `json:"closed"`
	Active          bool      `json:"active"`
	EnableOrderBook bool      `json:"enableOrderBook"`
	Tokens          []Token   `json:"-"` // populated from outcomes + clobTokenIds
	CreatedAt       time.Time `json:"createdAt"`
	EndDate         time.Time `json:"endDate"`
	Description     string    `json:"description"`
	Outcomes        string    `json:"outcomes"`      // JSON string: "[\"Yes\", \"No\"]"
	ClobTokens      string    `json:"clobTokenIds"`  // JSON string: "[\"token1\", \"token2\"]"
	Volume24hr      float64   `json:"volume24hr,string"`
	EventID         string    `json:"-"` // flattened from events[0].id

	// Trading constraints (fetched separately from the CLOB API).
	MinOrderSize float64 `json:"min_order_size"`
	TickSize     float64 `json:"tick_size"`
}

// gammaEvent mirrors the nested events[] array the Gamma API embeds in
// each market record; only the id is consumed (§6).
type gammaEvent struct {
	ID string `json:"id"`
}

// UnmarshalJSON parses outcomes/clobTokenIds into Tokens and flattens the
// first events[].id into EventID.
func (m *Market) UnmarshalJSON(data []byte) error {
	type Alias Market
	aux := &struct {
		Events []gammaEvent `json:"events"`
		*Alias
	}{
		Alias: (*Alias)(m),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.Events) > 0 {
		m.EventID = aux.Events[0].ID
	}

	if m.Outcomes != "" && m.ClobTokens != "" {
		var outcomes []string
		var tokenIDs []string

		if err := json.Unmarshal([]byte(m.Outcomes), &outcomes); err == nil {
			if err := json.Unmarshal([]byte(m.ClobTokens), &tokenIDs); err == nil {
				m.Tokens = make([]Token, 0, len(outcomes))
				for i, outcome := range outcomes {
					if i < len(tokenIDs) {
						m.Tokens = append(m.Tokens, Token{
							TokenID: tokenIDs[i],
							Outcome: outcome,
						})
					}
				}
			}
		}
	}

	return nil
}

// EligibleForSubscription applies the catalog filters from §6: order-book
// enabled (when enforced), active and not closed, at least two outcomes
// with matching token-id length, and a minimum 24h volume.
func (m *Market) EligibleForSubscription(enforceOrderBook bool, minVolume24h float64, blacklist map[string]bool) bool {
	if blacklist != nil && blacklist[m.Slug] {
		return false
	}
	if enforceOrderBook && !m.EnableOrderBook {
		return false
	}
	if !m.Active || m.Closed {
		return false
	}
	if len(m.Tokens) < 2 {
		return false
	}
	if m.Volume24hr < minVolume24h {
		return false
	}
	return true
}

// Token represents a market outcome token (YES/NO, or a named outcome for
// multi-outcome markets).
type Token struct {
	TokenID      string  `json:"token_id"`
	Outcome      string  `json:"outcome"`
	Price        float64 `json:"price,omitempty"`
	MinOrderSize float64 `json:"min_order_size,omitempty"`
	TickSize     float64 `json:"tick_size,omitempty"`
}

// GetTokenByOutcome returns the token for a specific outcome (YES or NO),
// case-insensitively for the binary convention.
func (m *Market) GetTokenByOutcome(outcome string) *Token {
	for i := range m.Tokens {
		tokenOutcome := m.Tokens[i].Outcome
		if tokenOutcome == outcome ||
			(outcome == "YES" && tokenOutcome == "Yes") ||
			(outcome == "NO" && tokenOutcome == "No") {
			return &m.Tokens[i]
		}
	}
	return nil
}

// OutcomeToken represents a single outcome in a market subscription.
type OutcomeToken struct {
	TokenID string
	Outcome string
}

// MarketSubscription tracks subscription state for a market. Supports both
// binary (2 outcomes) and multi-outcome (3+) markets.
type MarketSubscription struct {
	MarketID     string
	MarketSlug   string
	EventID      string
	Question     string
	Outcomes     []OutcomeToken
	SubscribedAt time.Time
}

// MarketsResponse represents the response from the Gamma API markets
// endpoint.
type MarketsResponse struct {
	Data     []Market `json:"data"`
	Count    int      `json:"count"`
	NextPage string   `json:"next_page,omitempty"`
	Limit    int      `json:"limit"`
	Offset   int      `json:"offset"`
}
