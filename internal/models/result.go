package models

// Hit is a retrieved chunk with its cosine similarity to the query.
// It serializes flat as {id, file, page, text, score}.
type Hit struct {
	Chunk
	Score float64 `json:"score"`
}

// SearchResponse is the response for a search request. An empty Hits list
// means no sufficiently grounded passage was found.
type SearchResponse struct {
	Hits      []Hit  `json:"hits"`
	Total     int    `json:"total"`
	QueryTime int64  `json:"query_time_ms"`
	Query     string `json:"query"`
}

// Source describes one passage that was given to the generator, numbered as it
// appeared in the assembled context.
type Source struct {
	Number  int     `json:"number"`
	ID      string  `json:"id"`
	File    string  `json:"file"`
	Page    int     `json:"page"`
	Excerpt string  `json:"excerpt"`
	Score   float64 `json:"score"`
}

// AskResponse is a grounded answer together with the passages it was built from.
type AskResponse struct {
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Refused   bool     `json:"refused"`
	Sources   []Source `json:"sources"`
	QueryTime int64    `json:"query_time_ms"`
}
