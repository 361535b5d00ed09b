package rag

import (
	"context"
	"time"

	"vision-rag/internal/models"
)

// RAG runs the full question-to-answer pipeline.
type RAG struct {
	matcher  *Matcher
	answerer *Answerer
}

func NewRAG(matcher *Matcher, answerer *Answerer) *RAG {
	return &RAG{matcher: matcher, answerer: answerer}
}

// Query matches page images for query and asks the chat model about them.
// Matching errors propagate; answering failures come back as the sentinel
// text with the cause in the returned error.
func (r *RAG) Query(ctx context.Context, query string, topK int) (*models.PromptResponse, error) {
	start := time.Now()
	matched, err := r.matcher.MatchImages(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	ans := r.answerer.GetAnswer(ctx, query, matched)
	return &models.PromptResponse{
		Query:   query,
		Sources: matched,
		Content: ans.Text,
		Elapsed: time.Since(start),
	}, ans.Err
}
