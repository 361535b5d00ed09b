package models

const (
	// FailureSentinel is returned in place of an answer when the request could not be completed.
	FailureSentinel = "Error occurred during processing."

	NoImagesPlaceholder = "- No images retrieved."
	UnknownPageLabel    = "unknown"
	PageMarker          = "_page"

	// SearchQueryInput tags a query embedding as opposed to an indexed document.
	SearchQueryInput    = "search_query"
	ImageInput          = "image"

	DefaultMaxTokens = 1000
)

var (
	SystemPrompt = "You analyze scanned pages from World Bank Trust Fund annual reports. " +
		"Use only the provided images to answer user questions. " +
		"When possible, quote exact figures/text, name the chart or table you relied on, " +
		"and keep responses concise (2-4 sentences or bullet points). " +
		"If the images do not contain the answer, say so explicitly."

	UserPromptTemplate = `Question: %s
Instructions:
- Inspect every attached image (each corresponds to a PDF page).
- Summarize the relevant insight and cite the image filename, page label, and source document name.
- Highlight quantitative values directly from the visuals.
- If evidence is missing, respond with "No evidence in provided images."

Image references:
%s`
)
