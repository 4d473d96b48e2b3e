package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/duetapp/duet-backend/internal/taste"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testProfiles() (*taste.Profile, *taste.Profile) {
	a := &taste.Profile{
		UserID:  1,
		Genres:  []string{"indie rock", "jazz"},
		Artists: []string{"khruangbin"},
		Songs:   []string{"so we won't forget"},
	}
	b := &taste.Profile{
		UserID:  2,
		Genres:  []string{"jazz"},
		Artists: []string{"bonobo"},
		Songs:   []string{"kerala"},
	}
	return a, b
}

func TestScorerScorePair(t *testing.T) {
	stub := &stubGenerator{response: `{"score": 72, "reason": "Shared jazz leanings"}`}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	a, b := testProfiles()

	score, reason, err := scorer.ScorePair(context.Background(), a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if score != 72 {
		t.Fatalf("expected score 72, got %v", score)
	}

	if reason != "Shared jazz leanings" {
		t.Fatalf("unexpected reason: %s", reason)
	}

	if stub.lastPrompt == "" {
		t.Fatalf("expected prompt to be sent")
	}

	if !strings.Contains(stub.lastPrompt, "khruangbin") {
		t.Fatalf("expected profile A artists in prompt, got: %s", stub.lastPrompt)
	}

	if !strings.Contains(stub.lastPrompt, "kerala") {
		t.Fatalf("expected profile B songs in prompt, got: %s", stub.lastPrompt)
	}
}

func TestScorerClampsScore(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     float64
	}{
		{"above range", `{"score": 140, "reason": "enthusiastic"}`, 100},
		{"below range", `{"score": -3, "reason": "hostile"}`, 0},
		{"string score", `{"score": "88.5", "reason": "coerced"}`, 88.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubGenerator{response: tc.response}
			scorer := NewScorer(stub, zap.NewNop(), 0)

			a, b := testProfiles()
			score, _, err := scorer.ScorePair(context.Background(), a, b)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if score != tc.want {
				t.Fatalf("expected score %v, got %v", tc.want, score)
			}
		})
	}
}

func TestScorerHandlesCodeBlock(t *testing.T) {
	raw := "```json\n{\"score\": 55, \"reason\": \"fenced\"}\n```"
	score, reason, err := parseResponse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if score != 55 {
		t.Fatalf("expected score 55, got %v", score)
	}

	if reason != "fenced" {
		t.Fatalf("unexpected reason: %s", reason)
	}
}

func TestScorerRejectsUnusableScore(t *testing.T) {
	stub := &stubGenerator{response: `{"reason": "no score at all"}`}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	a, b := testProfiles()
	if _, _, err := scorer.ScorePair(context.Background(), a, b); err == nil {
		t.Fatalf("expected error for missing score")
	}
}

func TestScorerPropagatesGeneratorError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("upstream unavailable")}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	a, b := testProfiles()
	_, _, err := scorer.ScorePair(context.Background(), a, b)
	if err == nil {
		t.Fatalf("expected generator error to propagate")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got: %v", err)
	}
}

func TestScorerMarksParseFailuresUnavailable(t *testing.T) {
	stub := &stubGenerator{response: "sorry, I cannot rate these profiles"}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	a, b := testProfiles()
	_, _, err := scorer.ScorePair(context.Background(), a, b)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got: %v", err)
	}
}
