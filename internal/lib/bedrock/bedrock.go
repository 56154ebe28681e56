// Package bedrock генерирует текстовый комментарий к рыночному снимку
// через модели Anthropic в Amazon Bedrock.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/magabrotheeeer/market-digest/internal/config"
	"github.com/magabrotheeeer/market-digest/internal/lib/awsconf"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

const anthropicVersion = "bedrock-2023-05-31"

const systemPrompt = "You are a financial markets editor. Write a short, neutral " +
	"summary of the market snapshot for a newsletter. Two paragraphs at most. " +
	"No investment advice, no predictions, plain text only."

// API — часть клиента bedrockruntime, используемая Narrator.
type API interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Narrator превращает снимок в связный текст.
type Narrator struct {
	client    API
	modelID   string
	maxTokens int
	log       *slog.Logger
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type request struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
	Temperature      float64   `json:"temperature"`
}

type response struct {
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// New создаёт Narrator поверх готового клиента.
func New(client API, modelID string, maxTokens int, log *slog.Logger) *Narrator {
	return &Narrator{client: client, modelID: modelID, maxTokens: maxTokens, log: log}
}

// NewFromConfig создаёт клиент Bedrock со стандартной цепочкой учётных данных.
func NewFromConfig(ctx context.Context, cfg config.Narrator, log *slog.Logger) (*Narrator, error) {
	const op = "bedrock.NewFromConfig"
	awsCfg, err := awsconf.Load(ctx, cfg.BedrockRegion, "", "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return New(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID, cfg.MaxTokens, log), nil
}

// Narrate возвращает комментарий к снимку.
func (n *Narrator) Narrate(ctx context.Context, snap *models.Snapshot) (string, error) {
	const op = "bedrock.Narrate"

	body, err := json.Marshal(request{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        n.maxTokens,
		System:           systemPrompt,
		Messages: []message{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: Prompt(snap)}},
		}},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", op, err)
	}

	out, err := n.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(n.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("%s: invoke model: %w", op, err)
	}

	var resp response
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", op, err)
	}

	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	n.log.Debug("narrative generated",
		slog.Int("input_tokens", resp.Usage.InputTokens),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
	)
	return strings.TrimSpace(sb.String()), nil
}

// Prompt описывает снимок в виде, понятном модели.
func Prompt(snap *models.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Market snapshot as of %s.\n", snap.AsOf.UTC().Format("2006-01-02"))
	fmt.Fprintf(&sb, "Sentiment score: %.0f/100.\n", snap.SentimentScore)
	if snap.IndexName != "" {
		fmt.Fprintf(&sb, "%s: %.2f (%+.2f%%), volatility %.2f.\n",
			snap.IndexName, snap.IndexValue, snap.ChangePercent, snap.Volatility)
	}
	for _, ind := range snap.Indicators {
		fmt.Fprintf(&sb, "Indicator %s = %.2f (%s).\n", ind.Name, ind.Value, ind.Signal)
	}
	for _, m := range snap.TopMovers {
		fmt.Fprintf(&sb, "Mover %s at %.2f (%+.2f%%).\n", m.Symbol, m.Price, m.ChangePercent)
	}
	for _, h := range snap.Headlines {
		fmt.Fprintf(&sb, "Headline: %s.\n", h.Title)
	}
	return sb.String()
}
