package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/duetapp/duet-backend/internal/logger"
	"github.com/duetapp/duet-backend/internal/taste"
)

// ErrUnavailable marks any transport or parse failure of the external
// scorer. Callers treat it as non-fatal and keep the local score.
var ErrUnavailable = errors.New("gemini scorer unavailable")

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Scorer asks Gemini to rate the musical affinity of two taste profiles
// on a 0-100 scale.
type Scorer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

func NewScorer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Scorer{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// ScorePair rates the affinity between two profiles. The score is
// clamped to [0, 100]; the reason is whatever one-liner the model gave.
func (s *Scorer) ScorePair(ctx context.Context, a, b *taste.Profile) (float64, string, error) {
	if a == nil || b == nil {
		return 0, "", fmt.Errorf("both taste profiles are required")
	}

	aJSON, err := json.Marshal(profilePayload(a))
	if err != nil {
		return 0, "", fmt.Errorf("marshal profile payload: %w", err)
	}

	bJSON, err := json.Marshal(profilePayload(b))
	if err != nil {
		return 0, "", fmt.Errorf("marshal profile payload: %w", err)
	}

	prompt := buildPrompt(string(aJSON), string(bJSON))

	s.logger.Debug("gemini affinity request",
		zap.Int64("user_a", a.UserID),
		zap.Int64("user_b", b.UserID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.logger.Debug("gemini affinity response",
		zap.Int64("user_a", a.UserID),
		zap.Int64("user_b", b.UserID),
		zap.String("response_preview", logger.TruncateForLog(raw, s.maxLogLen)),
	)

	score, reason, err := parseResponse(raw)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return score, reason, nil
}

func profilePayload(p *taste.Profile) map[string]any {
	return map[string]any{
		"genres":  []string(p.Genres),
		"artists": []string(p.Artists),
		"songs":   []string(p.Songs),
	}
}

func buildPrompt(aJSON, bJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Profile A:\n{{PROFILE_A_JSON}}\n\nProfile B:\n{{PROFILE_B_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{PROFILE_A_JSON}}", aJSON)
	prompt = strings.ReplaceAll(prompt, "{{PROFILE_B_JSON}}", bJSON)
	return prompt
}

func parseResponse(raw string) (float64, string, error) {
	cleaned := extractJSON(strings.TrimSpace(raw))

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return 0, "", fmt.Errorf("parse gemini response: %w", err)
	}

	score := coerceFloat(data["score"])
	reason := coerceString(data["reason"])

	if math.IsNaN(score) {
		return 0, "", fmt.Errorf("gemini response carried no usable score")
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return score, reason, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
