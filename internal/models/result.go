package models

// ScoredChunk is a chunk with its similarity to the query. The chunk fields are
// flattened into the JSON object.
type ScoredChunk struct {
	*Chunk
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// RetrievalResult is the ordered outcome of one query, highest score first.
type RetrievalResult struct {
	Query     string         `json:"query"`
	Chunks    []*ScoredChunk `json:"results"`
	QueryTime int64          `json:"query_time_ms"`
}

// Len returns the number of chunks in the result.
func (r *RetrievalResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Chunks)
}

// Source is a de-duplicated citation.
type Source struct {
	File    string `json:"file"`
	Label   string `json:"label"`
	IsFAQ   bool   `json:"is_faq"`
	Related string `json:"resource_link,omitempty"`
}

// RetrieveResponse is the API shape returned by the retrieve endpoint and CLI.
type RetrieveResponse struct {
	Query             string         `json:"query"`
	Results           []*ScoredChunk `json:"results"`
	NoRelevantContext bool           `json:"no_relevant_context"`
	// Suggestions holds "did you mean" queries built from corpus vocabulary when nothing matched.
	Suggestions []string `json:"suggestions,omitempty"`
	QueryTime   int64    `json:"query_time_ms"`
}

// AskResponse is a generated answer with its citations.
type AskResponse struct {
	Query             string    `json:"query"`
	Answer            string    `json:"answer"`
	Sources           []*Source `json:"sources"`
	NoRelevantContext bool      `json:"no_relevant_context"`
	Suggestions       []string  `json:"suggestions,omitempty"`
	Provider          string    `json:"provider"`
}
