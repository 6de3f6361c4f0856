package httpapi

import "time"

// analyzeRequest is the POST /analyze and POST /analyze/batch item body
// (spec §6).
type analyzeRequest struct {
	Message   string            `json:"message" binding:"required,min=1,max=10000"`
	UserID    *string           `json:"user_id,omitempty"`
	ChannelID *string           `json:"channel_id,omitempty"`
	Timezone  *string           `json:"timezone,omitempty"`
	History   []historyItemJSON `json:"history,omitempty"`
	Algorithm string            `json:"algorithm,omitempty" binding:"omitempty,oneof=weighted majority unanimous conflict_aware"`
	Verbosity string            `json:"verbosity,omitempty" binding:"omitempty,oneof=minimal standard detailed"`
}

type historyItemJSON struct {
	Text        string    `json:"text" binding:"required"`
	Timestamp   time.Time `json:"timestamp" binding:"required"`
	CrisisScore *float64  `json:"crisis_score,omitempty"`
}

// batchAnalyzeRequest is the POST /analyze/batch body: an array of items.
// The binding tags on analyzeRequest are not applied to batch items (Items
// has no dive tag), so items are not validated one by one; a body that
// does not decode fails the whole batch, while an item whose analysis
// fails is reported in its own slot without failing the batch.
type batchAnalyzeRequest struct {
	Items []analyzeRequest `json:"items" binding:"required,min=1,max=100"`
}

// consensusConfigView is the GET/PUT /config/consensus representation.
type consensusConfigView struct {
	DefaultAlgorithm string `json:"default_algorithm" binding:"omitempty,oneof=weighted majority unanimous conflict_aware"`
	Verbosity        string `json:"verbosity" binding:"omitempty,oneof=minimal standard detailed"`
}

// contextConfigView is the GET/PUT /config/context representation.
type contextConfigView struct {
	Enabled               bool    `json:"enabled"`
	MaxHistory            int     `json:"max_history" binding:"omitempty,min=1"`
	LateNightWindowStart  int     `json:"late_night_window_start"`
	LateNightWindowEnd    int     `json:"late_night_window_end"`
	RapidPostingK         int     `json:"rapid_posting_k" binding:"omitempty,min=1"`
	RapidPostingWindowMin float64 `json:"rapid_posting_window_min" binding:"omitempty,min=0"`
	TrendWindowN          int     `json:"trend_window_n" binding:"omitempty,min=2"`
	TrendEpsilon          float64 `json:"trend_epsilon" binding:"omitempty,min=0"`
	TrendVolatility       float64 `json:"trend_volatility" binding:"omitempty,min=0"`
}
