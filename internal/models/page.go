package models

import "time"

// Page is one rendered report page known to the index.
type Page struct {
	Filename  string
	DocSlug   string
	PageLabel string
	Text      string
}

type PromptResponse struct {
	Query   string
	Sources []string
	Content string
	Elapsed time.Duration
}
