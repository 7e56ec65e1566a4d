package services

import (
	"encoding/json"
	"testing"

	"trial-viewer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestClassifierInvestigationEncodings(t *testing.T) {
	tests := []struct {
		name      string
		event     models.RawEvent
		wantCount int
	}{
		{
			name: "полный список evidence",
			event: models.RawEvent{Phase: "investigation", Evidence: []models.EvidenceItem{
				{Source: "reuters.com", Summary: "опровержение", Score: 9},
				{Source: "blog.example", Summary: "слухи", Score: 2},
			}},
			wantCount: 2,
		},
		{
			name: "alias sources",
			event: models.RawEvent{Phase: "investigation", Sources: []models.EvidenceItem{
				{Source: "apnews.com", Summary: "подтверждение", Score: 8},
			}},
			wantCount: 1,
		},
		{
			name:      "только evidence_count",
			event:     models.RawEvent{Phase: "investigation", EvidenceCount: intPtr(3)},
			wantCount: 3,
		},
		{
			name:      "evidence_count ноль",
			event:     models.RawEvent{Phase: "investigation", EvidenceCount: intPtr(0)},
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier()
			pe := c.Classify(tt.event)
			require.Equal(t, EventEvidence, pe.Kind)
			assert.Len(t, pe.Evidence, tt.wantCount)
			// У заглушек обязаны быть непустые source и summary
			for _, item := range pe.Evidence {
				assert.NotEmpty(t, item.Source)
				assert.NotEmpty(t, item.Summary)
			}
		})
	}
}

func TestClassifierEvidenceCountPlaceholders(t *testing.T) {
	c := NewClassifier()
	pe := c.Classify(models.RawEvent{Phase: "investigation", EvidenceCount: intPtr(3)})

	require.Len(t, pe.Evidence, 3)
	for _, item := range pe.Evidence {
		assert.EqualValues(t, placeholderScore, item.Score)
	}

	// Готовность следствия: count > 0 ⇔ непустой список
	led := NewLedger("")
	led.SetEvidence(pe.Evidence)
	assert.True(t, led.EvidenceReady())

	zero := c.Classify(models.RawEvent{Phase: "investigation", EvidenceCount: intPtr(0)})
	led.SetEvidence(zero.Evidence)
	assert.False(t, led.EvidenceReady())
}

func TestClassifierTrialRoles(t *testing.T) {
	c := NewClassifier()

	pe := c.Classify(models.RawEvent{Phase: "trial", Agent: "prosecutor", Round: 1, Argument: "обвинение", Confidence: 70})
	require.Equal(t, EventArgument, pe.Kind)
	assert.Equal(t, models.RoleProsecutor, pe.Argument.Role)

	// Бэкенд говорит defendant, канонически это defender
	pe = c.Classify(models.RawEvent{Phase: "trial", Agent: "defendant", Round: 1, Argument: "защита"})
	require.Equal(t, EventArgument, pe.Kind)
	assert.Equal(t, models.RoleDefender, pe.Argument.Role)

	pe = c.Classify(models.RawEvent{Phase: "trial", Agent: "defender", Round: 2, Argument: "защита"})
	require.Equal(t, EventArgument, pe.Kind)
	assert.Equal(t, models.RoleDefender, pe.Argument.Role)
	assert.Equal(t, 2, pe.Argument.Round)
}

func TestClassifierMalformedTrialDropped(t *testing.T) {
	tests := []struct {
		name  string
		event models.RawEvent
	}{
		{"неизвестный агент", models.RawEvent{Phase: "trial", Agent: "witness", Round: 1, Argument: "x"}},
		{"нулевой раунд", models.RawEvent{Phase: "trial", Agent: "prosecutor", Round: 0, Argument: "x"}},
		{"пустой аргумент", models.RawEvent{Phase: "trial", Agent: "prosecutor", Round: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier()
			pe := c.Classify(tt.event)
			assert.Equal(t, EventUnrecognized, pe.Kind)
			assert.EqualValues(t, 1, c.Unrecognized())
		})
	}
}

func TestClassifierClaimRidesAlongAnyTag(t *testing.T) {
	c := NewClassifier()

	// claim вместе с investigation
	pe := c.Classify(models.RawEvent{Phase: "investigation", Claim: "Земля плоская", EvidenceCount: intPtr(1)})
	assert.Equal(t, "Земля плоская", pe.Claim)
	assert.Equal(t, EventEvidence, pe.Kind)

	// массив claims на claim_extraction
	pe = c.Classify(models.RawEvent{Phase: "claim_extraction", Claims: []models.ClaimInfo{{Text: "первое утверждение"}, {Text: "второе"}}})
	assert.Equal(t, "первое утверждение", pe.Claim)

	// claim даже на незнакомом теге извлекается
	pe = c.Classify(models.RawEvent{Phase: "что-то новое", Claim: "вода мокрая"})
	assert.Equal(t, EventUnrecognized, pe.Kind)
	assert.Equal(t, "вода мокрая", pe.Claim)
}

func TestClassifierUnknownCountedNeverPanics(t *testing.T) {
	c := NewClassifier()

	events := []models.RawEvent{
		{Phase: "jury_dance"},
		{Phase: ""},
		{Phase: "verdict"},         // verdict без тела
		{Phase: "awareness_score"}, // тоже без тела
	}
	for _, ev := range events {
		pe := c.Classify(ev)
		assert.Equal(t, EventUnrecognized, pe.Kind)
	}
	assert.EqualValues(t, len(events), c.Unrecognized())
}

func TestClassifierTerminalAndInformationalTags(t *testing.T) {
	c := NewClassifier()

	assert.Equal(t, EventComplete, c.Classify(models.RawEvent{Phase: "complete", Status: "finished"}).Kind)
	assert.Equal(t, EventDeliberation, c.Classify(models.RawEvent{Phase: "deliberation", Status: "jury_deliberating"}).Kind)

	pe := c.Classify(models.RawEvent{Phase: "education", Education: json.RawMessage(`{"red_flags":["кликбейт"]}`)})
	assert.Equal(t, EventEducation, pe.Kind)
	assert.JSONEq(t, `{"red_flags":["кликбейт"]}`, string(pe.Education))

	pe = c.Classify(models.RawEvent{Phase: "verdict", Verdict: &models.Verdict{Score: 72}})
	require.Equal(t, EventVerdict, pe.Kind)
	assert.Equal(t, 72, pe.Verdict.Score)
}

func TestCoerceJudgement(t *testing.T) {
	assert.Equal(t, models.JudgementPlausible, models.CoerceJudgement("plausible"))
	assert.Equal(t, models.JudgementNotSure, models.CoerceJudgement("not sure"))
	assert.Equal(t, models.JudgementNotSure, models.CoerceJudgement("not_sure"))
	assert.Equal(t, models.JudgementNeutral, models.CoerceJudgement("что угодно"))
	assert.Equal(t, models.JudgementNeutral, models.CoerceJudgement(""))
}

func TestEvidenceItemAliases(t *testing.T) {
	var item models.EvidenceItem
	err := json.Unmarshal([]byte(`{"source_url":"https://reuters.com/x","text":"опровергнуто","credibility_score":8.5}`), &item)
	require.NoError(t, err)
	assert.Equal(t, "https://reuters.com/x", item.Source)
	assert.Equal(t, "опровергнуто", item.Summary)
	assert.Equal(t, 8.5, item.Score)
}
