package models

import "strings"

// RetrieveRequest is a retrieval or ask request.
type RetrieveRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate trims the query and normalizes TopK. A zero TopK takes defaultTopK; values above
// maxTopK are capped. Returns a ValidationError for an empty or whitespace-only query.
func (r *RetrieveRequest) Validate(defaultTopK, maxTopK int) error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return &ValidationError{Field: "query", Message: "query cannot be empty"}
	}
	if r.TopK < 0 {
		return &ValidationError{Field: "top_k", Message: "top_k cannot be negative"}
	}
	if r.TopK == 0 {
		r.TopK = defaultTopK
	}
	if maxTopK > 0 && r.TopK > maxTopK {
		r.TopK = maxTopK
	}
	return nil
}
