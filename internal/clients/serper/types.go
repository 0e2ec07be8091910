package serper

import "encoding/json"

// SearchOptions tunes a search request.
type SearchOptions struct {
	Num      int
	GL       string
	HL       string
	Location string
	Page     int
	APIKey   string
}

// ScrapeOptions tunes a scrape request.
type ScrapeOptions struct {
	Markdown bool
	APIKey   string
}

type searchRequest struct {
	Q        string `json:"q"`
	Num      int    `json:"num"`
	GL       string `json:"gl"`
	HL       string `json:"hl"`
	Page     int    `json:"page"`
	Location string `json:"location,omitempty"`
}

type scrapeRequest struct {
	URL             string `json:"url"`
	IncludeMarkdown bool   `json:"includeMarkdown"`
}

// SearchParameters echoes the query serper ran.
type SearchParameters struct {
	Q    string `json:"q"`
	GL   string `json:"gl"`
	HL   string `json:"hl"`
	Num  int    `json:"num"`
	Page int    `json:"page"`
}

// SearchResult is one organic hit.
type SearchResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
}

// SearchResponse is the decoded search result. Raw holds the full body.
type SearchResponse struct {
	SearchParameters SearchParameters `json:"searchParameters"`
	Organic          []SearchResult   `json:"organic,omitempty"`
	KnowledgeGraph   json.RawMessage  `json:"knowledgeGraph,omitempty"`
	AnswerBox        json.RawMessage  `json:"answerBox,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ScrapeResponse is the decoded scrape result. Raw holds the full body.
type ScrapeResponse struct {
	URL      string   `json:"url"`
	Title    string   `json:"title,omitempty"`
	Text     string   `json:"text,omitempty"`
	Markdown string   `json:"markdown,omitempty"`
	Links    []string `json:"links,omitempty"`
	Images   []string `json:"images,omitempty"`

	Raw json.RawMessage `json:"-"`
}
