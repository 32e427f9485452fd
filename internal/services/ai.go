package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/stridehq/product-lifecycle-api/internal/models"
)

type AIService struct {
	client *openai.Client
}

// ClassifyNote is one mind-map node submitted for classification.
type ClassifyNote struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// TypeSuggestion is the suggested work-item type for one note.
type TypeSuggestion struct {
	NodeID        string              `json:"node_id"`
	SuggestedType models.WorkItemType `json:"suggested_type"`
	Reason        string              `json:"reason,omitempty"`
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
	}
}

// ClassifyNotes asks the model to classify mind-map notes into work-item
// types. Suggestions with unknown node IDs or types are dropped.
func (s *AIService) ClassifyNotes(ctx context.Context, notes []ClassifyNote) ([]TypeSuggestion, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notes: %w", err)
	}

	prompt := fmt.Sprintf(`You are a product-management assistant. Classify each note below into exactly one work-item type.

Valid types: idea, epic, feature, user_story, task, bug

Notes (JSON array of {id, label}):
%s

Return ONLY a JSON array in this form, one entry per note:
[
  {"node_id": "<id of the note>", "suggested_type": "<one of the valid types>", "reason": "<one short sentence>"}
]

Rules:
- Use "bug" only when the note describes broken behavior.
- Use "epic" for large multi-feature bodies of work, "idea" for vague or exploratory notes.
- Return JSON only, no explanations outside the array.`, string(notesJSON))

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4oMini,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.2,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	var raw []TypeSuggestion
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	known := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		known[n.ID] = struct{}{}
	}

	suggestions := make([]TypeSuggestion, 0, len(raw))
	for _, sug := range raw {
		if _, ok := known[sug.NodeID]; !ok {
			continue
		}
		if !models.ValidWorkItemType(sug.SuggestedType) {
			continue
		}
		suggestions = append(suggestions, sug)
	}

	return suggestions, nil
}
