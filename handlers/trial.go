package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"trial-viewer/models"
	"trial-viewer/services"
)

// TrialHandler — HTTP фасад движка процесса для рендерера.
type TrialHandler struct {
	registry *services.Registry
}

func NewTrialHandler(registry *services.Registry) *TrialHandler {
	return &TrialHandler{registry: registry}
}

func allowCORS(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Start — POST /api/trial/start, {content, input_type} → {case_id}.
// Запускает дело на бэкенде и открывает его поток событий.
func (h *TrialHandler) Start(w http.ResponseWriter, r *http.Request) {
	allowCORS(w, "POST")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не поддерживается", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Content   string `json:"content"`
		InputType string `json:"input_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeError(w, http.StatusBadRequest, "необходимо указать 'content'")
		return
	}

	log.Printf("[TRIAL] 📥 Запуск дела (%d символов контента)", len(req.Content))

	c, err := h.registry.Start(r.Context(), req.Content, req.InputType)
	if err != nil {
		log.Printf("[TRIAL] ❌ Запуск не удался: %v", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"case_id": c.ID,
		"status":  "started",
	})
}

// View — GET /api/trial/view?case_id=… → текущий ViewModel.
// Для закрытых дел отвечает из архива (Redis → PostgreSQL).
func (h *TrialHandler) View(w http.ResponseWriter, r *http.Request) {
	allowCORS(w, "GET")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	caseID := r.URL.Query().Get("case_id")
	if caseID == "" {
		writeError(w, http.StatusBadRequest, "необходимо указать 'case_id'")
		return
	}

	if c, ok := h.registry.Get(caseID); ok {
		writeJSON(w, http.StatusOK, c.View())
		return
	}

	if vm, ok := services.ArchivedTrial(caseID); ok {
		writeJSON(w, http.StatusOK, vm)
		return
	}

	writeError(w, http.StatusNotFound, "дело не найдено")
}

// Watch — GET /api/trial/watch?case_id=…, SSE поток ViewModel снапшотов.
// Одно событие на каждое изменение состояния — рендереру не нужен поллинг.
func (h *TrialHandler) Watch(w http.ResponseWriter, r *http.Request) {
	caseID := r.URL.Query().Get("case_id")
	if caseID == "" {
		writeError(w, http.StatusBadRequest, "необходимо указать 'case_id'")
		return
	}

	c, ok := h.registry.Get(caseID)
	if !ok {
		writeError(w, http.StatusNotFound, "дело не найдено")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming не поддерживается", http.StatusInternalServerError)
		return
	}

	sendView := func(vm models.ViewModel) {
		data, _ := json.Marshal(vm)
		fmt.Fprintf(w, "event: view\ndata: %s\n\n", data)
		flusher.Flush()
	}

	// Сразу текущее состояние, дальше — по изменениям
	sendView(c.View())

	sub := c.Subscribe()
	defer c.Unsubscribe(sub)

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case vm, open := <-sub:
			if !open {
				return
			}
			sendView(vm)
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// Continue — POST /api/trial/continue, {case_id}. Кнопка "дальше".
// Неготовый переход — не ошибка, просто advanced=false.
func (h *TrialHandler) Continue(w http.ResponseWriter, r *http.Request) {
	allowCORS(w, "POST")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не поддерживается", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		CaseID string `json:"case_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CaseID == "" {
		writeError(w, http.StatusBadRequest, "необходимо указать 'case_id'")
		return
	}

	c, ok := h.registry.Get(req.CaseID)
	if !ok {
		writeError(w, http.StatusNotFound, "дело не найдено")
		return
	}

	advanced := c.Advance()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"advanced": advanced,
		"view":     c.View(),
	})
}

// Judgement — POST /api/trial/judgement, {case_id, judgement}.
// Суждение за текущий раунд; машина уходит из EPOCH_USER только
// после подтверждения бэкендом.
func (h *TrialHandler) Judgement(w http.ResponseWriter, r *http.Request) {
	allowCORS(w, "POST")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не поддерживается", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		CaseID    string `json:"case_id"`
		Judgement string `json:"judgement"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CaseID == "" {
		writeError(w, http.StatusBadRequest, "необходимо указать 'case_id' и 'judgement'")
		return
	}

	c, ok := h.registry.Get(req.CaseID)
	if !ok {
		writeError(w, http.StatusNotFound, "дело не найдено")
		return
	}

	if err := c.SubmitJudgement(r.Context(), req.Judgement); err != nil {
		log.Printf("[TRIAL] ⚠ Суждение для дела %s не принято: %v", req.CaseID, err)
		// Машина осталась заблокированной — фронт может повторить
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "judgement_recorded",
		"view":   c.View(),
	})
}

// Prediction — POST /api/trial/prediction, {case_id, verdict, confidence}.
// Финальная догадка зрителя перед оглашением вердикта.
func (h *TrialHandler) Prediction(w http.ResponseWriter, r *http.Request) {
	allowCORS(w, "POST")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не поддерживается", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		CaseID     string `json:"case_id"`
		Verdict    string `json:"verdict"`
		Confidence string `json:"confidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CaseID == "" || req.Verdict == "" {
		writeError(w, http.StatusBadRequest, "необходимо указать 'case_id' и 'verdict'")
		return
	}

	c, ok := h.registry.Get(req.CaseID)
	if !ok {
		writeError(w, http.StatusNotFound, "дело не найдено")
		return
	}

	err := c.SubmitPrediction(models.UserPrediction{
		Verdict:    req.Verdict,
		Confidence: req.Confidence,
	})
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "prediction_recorded",
		"view":   c.View(),
	})
}

// CloseCase — POST /api/trial/close, {case_id}. Гасит поток и убирает
// дело из реестра; архив остаётся.
func (h *TrialHandler) CloseCase(w http.ResponseWriter, r *http.Request) {
	allowCORS(w, "POST")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Метод не поддерживается", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		CaseID string `json:"case_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CaseID == "" {
		writeError(w, http.StatusBadRequest, "необходимо указать 'case_id'")
		return
	}

	if !h.registry.Close(req.CaseID) {
		writeError(w, http.StatusNotFound, "дело не найдено")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// Health — GET /api/health.
func (h *TrialHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"active_cases": h.registry.Count(),
	})
}
