package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/todo-web/internal/constants"
)

// SuggestedTask is one to-do item extracted from free text.
type SuggestedTask struct {
	Content  string  `json:"content"`
	DueDate  *string `json:"due_date"`
	Priority string  `json:"priority"`
}

// SuggestionService extracts to-do items from free text with a chat model.
type SuggestionService struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

// NewSuggestionService creates a SuggestionService. baseURL may be empty to
// use the public API.
func NewSuggestionService(apiKey, baseURL string) *SuggestionService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &SuggestionService{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.GPT4oMini,
		now:    time.Now,
	}
}

// SuggestTasks asks the model for to-do items contained in text.
func (s *SuggestionService) SuggestTasks(ctx context.Context, text string) ([]SuggestedTask, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("suggestion client not initialized")
	}

	today := s.now().Format(constants.DueDateLayout)
	prompt := fmt.Sprintf(`Extract the concrete to-do items from the text below.

Today is %s.

Text:
%s

Answer with a JSON array only, no prose:
[
  {
    "content": "short task description (at most %d characters)",
    "due_date": "YYYY-MM-DD, or null when no deadline is stated",
    "priority": "Low, Medium or High"
  }
]

Rules:
- Return [] when the text contains no tasks
- Convert relative deadlines ("tomorrow", "next Friday") to dates`, today, text, constants.MaxContentLength)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
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

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var tasks []SuggestedTask
	if err := json.Unmarshal([]byte(content), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	return tasks, nil
}

// stripCodeFence removes a surrounding ``` block that models often add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
