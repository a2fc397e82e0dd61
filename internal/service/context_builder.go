package service

import (
	"storefront-support/backend/ai"
	"storefront-support/backend/internal/models"
)

// MapSender translates a stored sender into a model turn role
func MapSender(sender models.Sender) ai.Role {
	if sender == models.SenderAI {
		return ai.RoleAssistant
	}
	return ai.RoleUser
}

// BuildContext assembles the model input: the system prompt, then history in
// stored order, then the new user message. history is expected to be already
// bounded by the caller.
func BuildContext(systemPrompt string, history []models.Message, userMessage string) []ai.Turn {
	turns := make([]ai.Turn, 0, len(history)+2)
	turns = append(turns, ai.Turn{Role: ai.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		turns = append(turns, ai.Turn{Role: MapSender(m.Sender), Content: m.Content})
	}
	return append(turns, ai.Turn{Role: ai.RoleUser, Content: userMessage})
}
