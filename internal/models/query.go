package models

import (
	"errors"
	"strings"
)

// ErrEmptyQuery is returned when a query has no searchable text.
var ErrEmptyQuery = errors.New("query cannot be empty")

// SearchQuery is a retrieval request: free text plus the requested hit count.
type SearchQuery struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// Validate trims the query and normalizes K. K <= 0 becomes defaultK and K is
// capped at maxK when maxK > 0.
func (q *SearchQuery) Validate(defaultK, maxK int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return ErrEmptyQuery
	}
	if q.K <= 0 {
		q.K = defaultK
	}
	if maxK > 0 && q.K > maxK {
		q.K = maxK
	}
	return nil
}

// AskRequest asks a question to be answered from retrieved passages.
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
	Stream   bool   `json:"stream,omitempty"`
}
