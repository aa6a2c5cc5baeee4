package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/predictops/tipsync/internal/model"
)

const predictorSystemPrompt = `You are a football prediction assistant for a betting pool.
You are given evidence documents (standings, recent form, news) and one entity to predict.
Answer with a single JSON object and nothing else.
For a match, answer {"home": <int>, "away": <int>}.
For a bonus question, answer {"options": ["<option-id>", ...]} using only the listed option identifiers.`

// Predictor turns evidence documents into a prediction for one entity via
// the Anthropic API. A nil value with a nil error means "failed to
// predict"; callers treat that as a skip, not a fault.
type Predictor struct {
	client    Client
	model     string
	maxTokens int64
}

// NewPredictor creates a Predictor using the given model.
func NewPredictor(client Client, modelID string, maxTokens int64) *Predictor {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Predictor{client: client, model: modelID, maxTokens: maxTokens}
}

// Predict asks the model for a value for entity given the evidence
// documents. Transport failures are returned as errors; an answer the
// parser cannot use yields (nil, nil).
func (p *Predictor) Predict(ctx context.Context, entity model.Entity, evidence []model.Document) (model.PredictionValue, error) {
	system := []SystemBlock{{Text: predictorSystemPrompt}}
	if len(evidence) > 0 {
		// Evidence is shared across entities in one run; cache it.
		system = append(system, SystemBlock{
			Text:         renderEvidence(evidence),
			CacheControl: &CacheControl{TTL: "5m"},
		})
	}

	resp, err := p.client.CreateMessage(ctx, MessageRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		System:    system,
		Messages:  []Message{{Role: "user", Content: renderEntity(entity)}},
	})
	if err != nil {
		return nil, err
	}
	resp.Usage.LogCost(p.model, "predict")

	value := parseValue(entity, responseText(resp))
	if value == nil {
		zap.L().Warn("anthropic: unusable prediction answer",
			zap.String("entity", entity.Key()),
			zap.String("model", p.model),
		)
		return nil, nil
	}
	if err := entity.Validate(value); err != nil {
		zap.L().Warn("anthropic: model produced invalid value",
			zap.String("entity", entity.Key()),
			zap.Error(err),
		)
		return nil, nil
	}
	return value, nil
}

func renderEvidence(docs []model.Document) string {
	var sb strings.Builder
	sb.WriteString("Evidence documents:\n")
	for _, d := range docs {
		fmt.Fprintf(&sb, "\n--- %s (version %d) ---\n%s\n", d.Name, d.Version, d.Content)
	}
	return sb.String()
}

func renderEntity(entity model.Entity) string {
	switch e := entity.(type) {
	case model.MatchEntity:
		return fmt.Sprintf("Predict the final score of the match %s vs %s (entity %s).", e.Home, e.Away, e.ID)
	case model.BonusQuestion:
		bounds := fmt.Sprintf("select at least %d", e.MinSelections)
		if e.MaxSelections > 0 {
			bounds = fmt.Sprintf("select between %d and %d", e.MinSelections, e.MaxSelections)
		}
		return fmt.Sprintf("Bonus question %s: %s\nOption identifiers: %s (%s).",
			e.ID, e.Prompt, strings.Join(e.Options, ", "), bounds)
	default:
		return fmt.Sprintf("Predict a value for entity %s.", entity.Key())
	}
}

func responseText(resp *MessageResponse) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// parseValue extracts the first JSON object from the answer and decodes it
// according to the entity variant. Returns nil when nothing usable is found.
func parseValue(entity model.Entity, text string) model.PredictionValue {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil
	}
	raw := text[start : end+1]

	switch entity.(type) {
	case model.BonusQuestion:
		var answer struct {
			Options []string `json:"options"`
		}
		if err := json.Unmarshal([]byte(raw), &answer); err != nil || answer.Options == nil {
			return nil
		}
		return model.Selection{Options: answer.Options}
	default:
		var answer struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		}
		if err := json.Unmarshal([]byte(raw), &answer); err != nil || answer.Home == nil || answer.Away == nil {
			return nil
		}
		return model.Score{Home: *answer.Home, Away: *answer.Away}
	}
}
