package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/gdugdh24/handshake-backend/internal/domain"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ChainNarrator writes the short text shown to participants of a new chain.
type ChainNarrator interface {
	DescribeChain(ctx context.Context, chain *domain.MatchChain, names map[string]string, categories map[int64]string) (string, error)
}

type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-1.5-flash")
	model.SetTemperature(0.4)

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

func (c *GeminiClient) Close() {
	c.client.Close()
}

// DescribeChain asks the model for a summary and falls back to the template
// when the API fails or returns nothing.
func (c *GeminiClient) DescribeChain(ctx context.Context, chain *domain.MatchChain, names map[string]string, categories map[int64]string) (string, error) {
	prompt := fmt.Sprintf(`
		A group of people can help each other in a ring. Each line is "giver -> receiver: skill".
		%s
		Task: Write one friendly sentence (max 30 words) inviting them to confirm the exchange.
		Output: Just the sentence.
	`, strings.Join(describeLinks(chain, names, categories), "\n"))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return TemplateNarrator{}.DescribeChain(ctx, chain, names, categories)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return TemplateNarrator{}.DescribeChain(ctx, chain, names, categories)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return TemplateNarrator{}.DescribeChain(ctx, chain, names, categories)
	}
	return text, nil
}

// TemplateNarrator renders the summary without a model.
type TemplateNarrator struct{}

func (TemplateNarrator) DescribeChain(_ context.Context, chain *domain.MatchChain, names map[string]string, categories map[int64]string) (string, error) {
	return fmt.Sprintf("Exchange of %d: %s.", len(chain.Links), strings.Join(describeLinks(chain, names, categories), "; ")), nil
}

func describeLinks(chain *domain.MatchChain, names map[string]string, categories map[int64]string) []string {
	lines := make([]string, 0, len(chain.Links))
	for _, l := range chain.Links {
		lines = append(lines, fmt.Sprintf("%s -> %s: %s",
			lookup(names, l.GiverID), lookup(names, l.ReceiverID), categoryName(categories, l.CategoryID)))
	}
	return lines
}

func lookup(names map[string]string, id string) string {
	if n := names[id]; n != "" {
		return n
	}
	return id
}

func categoryName(categories map[int64]string, id int64) string {
	if n := categories[id]; n != "" {
		return n
	}
	return fmt.Sprintf("category %d", id)
}
