package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rankreport/rankreport-backend/internal/domain"
	"google.golang.org/api/option"
)

const maxInsights = 5

// InsightWriter turns fetched metrics into short plain-language observations
type InsightWriter interface {
	Insights(ctx context.Context, client *domain.Client, metrics *domain.MetricsV1) ([]string, error)
}

// GeminiInsightWriter asks Gemini for a JSON array of insights
type GeminiInsightWriter struct {
	client *genai.Client
	model  string
}

// NewGeminiInsightWriter creates a Gemini-backed InsightWriter
func NewGeminiInsightWriter(ctx context.Context, apiKey, model string) (*GeminiInsightWriter, error) {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiInsightWriter{client: client, model: model}, nil
}

// Close releases the underlying connection
func (g *GeminiInsightWriter) Close() error {
	return g.client.Close()
}

func (g *GeminiInsightWriter) Insights(ctx context.Context, client *domain.Client, metrics *domain.MetricsV1) ([]string, error) {
	payload, err := json.Marshal(metrics)
	if err != nil {
		return nil, err
	}

	m := g.client.GenerativeModel(g.model)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0.2)

	prompt := fmt.Sprintf(`You are an SEO analyst writing for the owner of %s.
Read the report data below and return a JSON array of at most %d short strings.
Each string is one concrete observation or recommendation in plain English.
Return JSON only. No markdown.

Report data:
%s`, client.Domain, maxInsights, payload)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: no content")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return parseInsights(text.String())
}

func parseInsights(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var insights []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &insights); err != nil {
		return nil, fmt.Errorf("gemini: invalid insights json: %w", err)
	}

	out := make([]string, 0, len(insights))
	for _, s := range insights {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
		if len(out) == maxInsights {
			break
		}
	}
	return out, nil
}
