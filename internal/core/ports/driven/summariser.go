package driven

import "context"

// Summariser produces the document-level summary stored in
// Document.Content and embedded for document ranking. The default
// implementation is extractive; LLM-backed implementations can be
// injected without changing the pipeline.
type Summariser interface {
	// Summarise returns a short summary of the text, at most
	// maxSentences sentences long.
	Summarise(ctx context.Context, text string, maxSentences int) (string, error)
}
