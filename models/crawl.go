package models

import "time"

// CrawledPage represents a single fetched page of a URL ingestion
type CrawledPage struct {
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CrawledAt  time.Time `json:"crawled_at"`
	StatusCode int       `json:"status_code"`
	Size       int64     `json:"size"`
	WordCount  int       `json:"word_count"`
}

// URLRequest is the body of a URL ingestion call
type URLRequest struct {
	URL string `json:"url" binding:"required"`
}
