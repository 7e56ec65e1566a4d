package services

import (
	"encoding/json"
	"log"
	"time"

	"trial-viewer/cache"
	"trial-viewer/database"
	"trial-viewer/models"
)

const archiveTTL = 24 * time.Hour

// ArchiveTrial сохраняет финальную проекцию завершённого дела:
// в Redis — чтобы /view отвечал после закрытия дела,
// в PostgreSQL — для статистики и истории.
// Работает и без того, и без другого (nil-tolerant, как и весь сервис).
func ArchiveTrial(vm models.ViewModel) {
	data, err := json.Marshal(vm)
	if err != nil {
		log.Printf("[ARCHIVE] ⚠ Не удалось сериализовать дело %s: %v", vm.CaseID, err)
		return
	}

	if err := cache.Set("trial:"+vm.CaseID, string(data), archiveTTL); err != nil {
		log.Printf("[ARCHIVE] ⚠ Redis недоступен для дела %s: %v", vm.CaseID, err)
	}

	if database.DB == nil {
		return
	}

	verdictJSON := []byte("null")
	if vm.Verdict != nil {
		verdictJSON, _ = json.Marshal(vm.Verdict)
	}
	awarenessJSON := []byte("null")
	if vm.Awareness != nil {
		awarenessJSON, _ = json.Marshal(vm.Awareness)
	}
	judgementsJSON, _ := json.Marshal(vm.Judgements)

	_, err = database.DB.Exec(`
		INSERT INTO trial_results (case_id, claim, verdict, awareness, judgements)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (case_id) DO UPDATE SET
			verdict    = EXCLUDED.verdict,
			awareness  = EXCLUDED.awareness,
			judgements = EXCLUDED.judgements
	`, vm.CaseID, vm.Claim, verdictJSON, awarenessJSON, judgementsJSON)
	if err != nil {
		log.Printf("[ARCHIVE] ⚠ Ошибка записи дела %s в БД: %v", vm.CaseID, err)
		return
	}
	log.Printf("[ARCHIVE] ✓ Дело %s сохранено", vm.CaseID)
}

// ArchivedTrial достаёт финальную проекцию закрытого дела:
// сначала Redis, затем PostgreSQL.
func ArchivedTrial(caseID string) (models.ViewModel, bool) {
	var vm models.ViewModel

	if data, err := cache.Get("trial:" + caseID); err == nil {
		if json.Unmarshal([]byte(data), &vm) == nil {
			return vm, true
		}
	}

	if database.DB == nil {
		return vm, false
	}

	var claim string
	var verdictJSON, awarenessJSON, judgementsJSON []byte
	err := database.DB.QueryRow(`
		SELECT claim, verdict, awareness, judgements
		FROM trial_results WHERE case_id = $1
	`, caseID).Scan(&claim, &verdictJSON, &awarenessJSON, &judgementsJSON)
	if err != nil {
		return vm, false
	}

	vm.CaseID = caseID
	vm.Phase = models.PhaseFinalVerdict
	vm.Claim = claim
	vm.Complete = true
	json.Unmarshal(verdictJSON, &vm.Verdict)
	json.Unmarshal(awarenessJSON, &vm.Awareness)
	json.Unmarshal(judgementsJSON, &vm.Judgements)
	vm.VerdictPending = vm.Verdict == nil
	return vm, true
}
