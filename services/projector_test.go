package services

import (
	"testing"

	"trial-viewer/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectIntake(t *testing.T) {
	led := NewLedger(ClaimPlaceholder)
	m := NewMachine(2)

	vm := Project("case-1", led, m)
	assert.Equal(t, "case-1", vm.CaseID)
	assert.Equal(t, models.PhaseIntake, vm.Phase)
	assert.Equal(t, ClaimPlaceholder, vm.Claim)
	assert.True(t, vm.CanContinue, "из INTAKE можно всегда")
	assert.False(t, vm.AwaitingJudgement)
}

func TestProjectContinueFlipsOnLedgerMutation(t *testing.T) {
	led := NewLedger("")
	m := NewMachine(2)
	m.Advance(led)

	vm := Project("c", led, m)
	assert.False(t, vm.CanContinue, "аргумента прокурора ещё нет")
	assert.Nil(t, vm.CurrentArgument)

	led.RecordArgument(models.RoundArgument{Role: models.RoleProsecutor, Round: 1, Text: "обвинение", Confidence: 65})

	vm = Project("c", led, m)
	assert.True(t, vm.CanContinue, "кнопка оживает сразу после события")
	require.NotNil(t, vm.CurrentArgument)
	assert.Equal(t, "обвинение", vm.CurrentArgument.Text)
}

func TestProjectAwaitingJudgement(t *testing.T) {
	led := NewLedger("")
	m := NewMachine(2)
	m.Advance(led)
	led.RecordArgument(models.RoundArgument{Role: models.RoleProsecutor, Round: 1, Text: "p"})
	m.Advance(led)
	led.RecordArgument(models.RoundArgument{Role: models.RoleDefender, Round: 1, Text: "d"})
	m.Advance(led)

	require.Equal(t, models.PhaseEpochUser, m.Phase())
	vm := Project("c", led, m)
	assert.True(t, vm.AwaitingJudgement)
	assert.False(t, vm.CanContinue, "в EPOCH_USER ждём суждение, а не кнопку")

	led.RecordJudgement(models.UserJudgement{Round: 1, Label: models.JudgementPlausible})
	vm = Project("c", led, m)
	assert.False(t, vm.AwaitingJudgement)
}

// FINAL_VERDICT без вердикта в леджере рендерится как pending и не падает.
func TestProjectFinalVerdictPending(t *testing.T) {
	led := NewLedger("")
	led.SetStreamError("ошибка канала: обрыв")
	m := &Machine{phase: models.PhaseFinalVerdict, round: 2, maxRounds: 2}

	vm := Project("c", led, m)
	assert.Equal(t, models.PhaseFinalVerdict, vm.Phase)
	assert.True(t, vm.VerdictPending)
	assert.Nil(t, vm.Verdict)
	assert.False(t, vm.CanContinue)
	assert.NotEmpty(t, vm.StreamError)

	led.SetVerdict(&models.Verdict{Score: 72, Category: "Скорее правда"})
	vm = Project("c", led, m)
	assert.False(t, vm.VerdictPending)
	require.NotNil(t, vm.Verdict)
	assert.Equal(t, 72, vm.Verdict.Score)
}

func TestProjectIsPure(t *testing.T) {
	led := NewLedger("исходное утверждение")
	led.SetEvidence([]models.EvidenceItem{{Source: "s", Summary: "x", Score: 5}})
	m := NewMachine(2)

	vm := Project("c", led, m)
	vm.Evidence[0].Source = "испорчено"
	vm.Claim = "испорчено"

	again := Project("c", led, m)
	assert.Equal(t, "исходное утверждение", again.Claim)
	assert.Equal(t, "s", again.Evidence[0].Source)
}
