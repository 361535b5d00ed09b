package rag

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"vision-rag/internal/models"
	"vision-rag/internal/pageimage"
)

// BuildPrompt assembles the system and user messages for a question and its
// matched page images. It fails as a whole if any image cannot be encoded.
func BuildPrompt(resolver *pageimage.Resolver, question string, matchedPaths []string) ([]llms.MessageContent, error) {
	images := make([]llms.ContentPart, 0, len(matchedPaths))
	references := make([]string, 0, len(matchedPaths))
	for _, p := range matchedPaths {
		uri, err := resolver.DataURI(p)
		if err != nil {
			return nil, err
		}
		images = append(images, llms.ImageURLContent{URL: uri})
		references = append(references, pageimage.ParseCaption(resolver.Resolve(p)).Reference())
	}
	if len(references) == 0 {
		references = append(references, models.NoImagesPlaceholder)
	}

	userPrompt := fmt.Sprintf(models.UserPromptTemplate, question, strings.Join(references, "\n"))
	parts := append([]llms.ContentPart{llms.TextContent{Text: userPrompt}}, images...)

	return []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: models.SystemPrompt}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: parts,
		},
	}, nil
}
