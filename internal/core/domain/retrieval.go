package domain

import (
	"fmt"
	"strings"
)

// CollectionHit is one nearest-neighbour result from a vector collection.
type CollectionHit struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// RetrievalContext carries the three tiers of context handed to generation.
type RetrievalContext struct {
	Specific   []string `json:"specific"`
	Historical []string `json:"historical"`
	Regulatory []string `json:"regulatory"`
}

func (c RetrievalContext) Size() int {
	return len(c.Specific) + len(c.Historical) + len(c.Regulatory)
}

// PreparedQuery is the output of query preprocessing.
type PreparedQuery struct {
	Text     string            `json:"text"`
	Metadata DocumentMetadata  `json:"metadata"`
	Document *IngestedDocument `json:"document,omitempty"`
}

type ModelChoice string

const (
	ModelDefault   ModelChoice = "default"
	ModelFinetuned ModelChoice = "finetuned"
)

// ParseModelChoice accepts the canonical names plus the legacy gemini-*
// aliases. An empty value selects the default model.
func ParseModelChoice(raw string) (ModelChoice, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "default", "gemini-default":
		return ModelDefault, nil
	case "finetuned", "fine-tuned", "gemini-finetuned":
		return ModelFinetuned, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse model choice", fmt.Errorf("unknown llm choice %q", raw))
	}
}

// Analysis is the final answer for a penalty question.
type Analysis struct {
	Answer   string           `json:"response"`
	Model    ModelChoice      `json:"model"`
	Metadata DocumentMetadata `json:"metadata"`
	Context  RetrievalContext `json:"context"`
}
