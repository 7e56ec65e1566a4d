package services

import (
	"log"

	"trial-viewer/models"
)

// DefaultMaxRounds — два раунда обмена аргументами, как в зале суда.
const DefaultMaxRounds = 2

// Machine — явная машина фаз процесса.
//
//	INTAKE → EPOCH_PROSECUTOR → EPOCH_DEFENDER → EPOCH_USER
//	  → (цикл на следующий раунд, до maxRounds)
//	  → FINAL_USER_VERDICT → FINAL_VERDICT (терминал)
//
// Переходы срабатывают только от явного внешнего триггера (кнопка
// "дальше" или принятое суждение) и только когда леджер готов.
// Готовность каждый раз выводится из леджера заново — ничего не
// кэшируется, поэтому кнопка "дальше" оживает в момент прихода
// нужного события без какого-либо поллинга.
type Machine struct {
	phase     models.Phase
	round     int
	maxRounds int
}

func NewMachine(maxRounds int) *Machine {
	if maxRounds < 1 {
		maxRounds = DefaultMaxRounds
	}
	return &Machine{
		phase:     models.PhaseIntake,
		round:     0,
		maxRounds: maxRounds,
	}
}

func (m *Machine) Phase() models.Phase {
	return m.phase
}

// Round — текущий раунд (0 до выхода из INTAKE).
func (m *Machine) Round() int {
	return m.round
}

func (m *Machine) MaxRounds() int {
	return m.maxRounds
}

// CanAdvance — чистая функция от (леджер, раунд, прошлые действия зрителя).
// Ни время, ни порядок прихода событий сверх того, что уже лежит
// в леджере, на неё не влияют.
func (m *Machine) CanAdvance(led *Ledger) bool {
	switch m.phase {
	case models.PhaseIntake:
		return true
	case models.PhaseEpochProsecutor:
		return led.HasArgument(models.RoleProsecutor, m.round)
	case models.PhaseEpochDefender:
		return led.HasArgument(models.RoleDefender, m.round)
	case models.PhaseEpochUser:
		return led.HasJudgement(m.round)
	case models.PhaseFinalUserVerdict:
		return led.Prediction() != nil
	case models.PhaseFinalVerdict:
		return false // терминал
	}
	return false
}

// Advance — единственная мутирующая точка входа. Преждевременный вызов
// (данные не готовы) — no-op, не ошибка: машина защищается сама,
// а не портит состояние.
func (m *Machine) Advance(led *Ledger) bool {
	if !m.CanAdvance(led) {
		log.Printf("[MACHINE] ⚠ Преждевременный advance из %s (раунд %d) — игнорирую", m.phase, m.round)
		return false
	}

	switch m.phase {
	case models.PhaseIntake:
		m.round = 1
		m.phase = models.PhaseEpochProsecutor
	case models.PhaseEpochProsecutor:
		m.phase = models.PhaseEpochDefender
	case models.PhaseEpochDefender:
		m.phase = models.PhaseEpochUser
	case models.PhaseEpochUser:
		if m.round < m.maxRounds {
			m.round++
			m.phase = models.PhaseEpochProsecutor
		} else {
			m.phase = models.PhaseFinalUserVerdict
		}
	case models.PhaseFinalUserVerdict:
		m.phase = models.PhaseFinalVerdict
	}

	log.Printf("[MACHINE] → %s (раунд %d/%d)", m.phase, m.round, m.maxRounds)
	return true
}
