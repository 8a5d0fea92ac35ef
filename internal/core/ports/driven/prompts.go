package driven

// Prompt template names resolved through the PromptStore.
const (
	// PromptRefineChunk asks the completion service to adjust a chunk
	// boundary so the chunk is self-contained and within the word band.
	PromptRefineChunk = "refine_chunk"

	// PromptClassify asks for category, framework and keywords as JSON.
	PromptClassify = "classify"

	// PromptAnswer is the context-only cite-or-refuse answer contract.
	PromptAnswer = "answer"
)

// PromptStore resolves prompt templates by name. Templates are user
// editable with embedded defaults; the cite-or-refuse contract lives in
// the answer template and is testable without any provider.
type PromptStore interface {
	// Load returns the template for the given name.
	Load(name string) (string, error)
}
