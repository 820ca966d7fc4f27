package models

import "time"

// PageContent is the structured payload extracted from one dictionary page.
type PageContent struct {
	H1          string    `json:"h1"`
	H2          string    `json:"h2"`
	Content     string    `json:"content"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Empty reports whether nothing usable was extracted. An attempt that yields
// an empty payload is recorded as failed, not succeeded.
func (p PageContent) Empty() bool {
	return p.H1 == "" && p.H2 == "" && p.Content == ""
}
