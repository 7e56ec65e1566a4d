package services

import "trial-viewer/models"

// Project строит ViewModel из текущих снапшотов леджера и машины фаз.
// Строго чистая функция: ничего не мутирует, результат полностью
// выводится из аргументов.
func Project(caseID string, led *Ledger, m *Machine) models.ViewModel {
	vm := models.ViewModel{
		CaseID:    caseID,
		Phase:     m.Phase(),
		Round:     m.Round(),
		MaxRounds: m.MaxRounds(),

		Claim:    led.Claim(),
		Evidence: led.Evidence(),

		Transcript: led.Transcript(),
		Judgements: led.Judgements(),

		Deliberating: led.Deliberating(),
		Complete:     led.Complete(),

		Verdict:    led.Verdict(),
		Awareness:  led.Awareness(),
		Education:  led.Education(),
		Prediction: led.Prediction(),

		StreamError: led.StreamError(),
	}

	switch m.Phase() {
	case models.PhaseEpochProsecutor:
		if arg, ok := led.Argument(models.RoleProsecutor, m.Round()); ok {
			vm.CurrentArgument = &arg
		}
	case models.PhaseEpochDefender:
		if arg, ok := led.Argument(models.RoleDefender, m.Round()); ok {
			vm.CurrentArgument = &arg
		}
	case models.PhaseEpochUser:
		vm.AwaitingJudgement = !led.HasJudgement(m.Round())
	case models.PhaseFinalVerdict:
		// Машина уже в терминале, но показывать нечего, пока вердикт не пришёл
		vm.VerdictPending = led.Verdict() == nil
	}

	// Кнопка "дальше" — для фаз, где следующий шаг не требует отдельного
	// действия зрителя (суждение и финальная догадка идут своими ручками)
	if m.Phase() != models.PhaseEpochUser && m.Phase() != models.PhaseFinalUserVerdict {
		vm.CanContinue = m.CanAdvance(led)
	}

	return vm
}
