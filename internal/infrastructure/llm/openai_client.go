package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"mailtriage/internal/domain/email"
)

// Client is a TextAnalyzer backed by an OpenAI chat model. The model is asked
// for sentiment polarity and DATE/MONEY entities, nothing else; intent rules
// stay in the classifier.
type Client struct {
	api    openai.Client
	model  string
	logger *zap.Logger
}

func NewClient(apiKey, model string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Client{
		api:    client,
		model:  model,
		logger: logger,
	}, nil
}

type llmEntity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

type llmResponse struct {
	Polarity float64     `json:"polarity"`
	Entities []llmEntity `json:"entities"`
}

const analyzePrompt = `Analyze the following text and return ONLY pure JSON, without markdown and without backticks.

Fields:
- "polarity": sentiment polarity as a number between -1.0 (very negative) and 1.0 (very positive), 0.0 when neutral.
- "entities": named entities found in the text, each {"text":"...","label":"..."}. Use label "DATE" for dates and relative dates (e.g. "next week", "Monday"), "MONEY" for monetary amounts, "TIME", "PERSON" or "ORG" for the rest.

Format:
{"polarity":0.0,"entities":[{"text":"...","label":"..."}]}

Text:
%s`

func (c *Client) Analyze(ctx context.Context, text string) (*email.Analysis, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(analyzePrompt, text)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty LLM response")
	}

	analysis, err := parseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.Warn("LLM parse error", zap.Error(err))
		return nil, err
	}

	return analysis, nil
}

func parseAnalysis(raw string) (*email.Analysis, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var llmResp llmResponse
	if err := json.Unmarshal([]byte(text), &llmResp); err != nil {
		return nil, fmt.Errorf("cannot parse JSON: %w (raw=%s)", err, text)
	}

	analysis := &email.Analysis{Polarity: clampPolarity(llmResp.Polarity)}
	for _, e := range llmResp.Entities {
		analysis.Entities = append(analysis.Entities, email.Entity{
			Text:  e.Text,
			Label: email.EntityLabel(strings.ToUpper(strings.TrimSpace(e.Label))),
		})
	}

	return analysis, nil
}

func clampPolarity(p float64) float64 {
	switch {
	case p < -1:
		return -1
	case p > 1:
		return 1
	}
	return p
}
