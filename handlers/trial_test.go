package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trial-viewer/models"
	"trial-viewer/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrchestrator — минимальный бэкенд: запуск дела, SSE поток, приём суждений.
func fakeOrchestrator(t *testing.T, events []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/trial/start", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"case_id": "case-h1", "status": "started"})
	})
	mux.HandleFunc("/api/trial/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/stream"):
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			for _, ev := range events {
				fmt.Fprintf(w, "data: %s\n\n", ev)
				flusher.Flush()
			}
		case strings.HasSuffix(r.URL.Path, "/judgement"):
			json.NewEncoder(w).Encode(map[string]string{"status": "judgement_recorded"})
		case strings.HasSuffix(r.URL.Path, "/prediction"):
			json.NewEncoder(w).Encode(map[string]string{"status": "prediction_recorded"})
		default:
			http.NotFound(w, r)
		}
	})
	return httptest.NewServer(mux)
}

func startCase(t *testing.T, h *TrialHandler) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/trial/start",
		strings.NewReader(`{"content":"подозрительная новость"}`))
	rec := httptest.NewRecorder()
	h.Start(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["case_id"])
	return resp["case_id"]
}

func waitForComplete(t *testing.T, h *TrialHandler, caseID string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		vm := getView(t, h, caseID)
		if vm.Complete {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("дело не дожевало поток")
}

func getView(t *testing.T, h *TrialHandler, caseID string) models.ViewModel {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/trial/view?case_id="+caseID, nil)
	rec := httptest.NewRecorder()
	h.View(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var vm models.ViewModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vm))
	return vm
}

func postJSON(t *testing.T, fn http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestTrialHandlerFlow(t *testing.T) {
	backend := fakeOrchestrator(t, []string{
		`{"phase":"claim_extraction","claim":"Утверждение"}`,
		`{"phase":"investigation","evidence_count":2}`,
		`{"phase":"trial","agent":"prosecutor","round":1,"argument":"p1"}`,
		`{"phase":"trial","agent":"defendant","round":1,"argument":"d1"}`,
		`{"phase":"trial","agent":"prosecutor","round":2,"argument":"p2"}`,
		`{"phase":"trial","agent":"defendant","round":2,"argument":"d2"}`,
		`{"phase":"verdict","verdict":{"mode":"fasttrack","final_verdict":"FAKE","confidence":85,"reasoning":"Очевидная утка"}}`,
		`{"phase":"complete"}`,
	})
	defer backend.Close()

	registry := services.NewRegistry(backend.URL, 2)
	h := NewTrialHandler(registry)

	caseID := startCase(t, h)
	waitForComplete(t, h, caseID)

	vm := getView(t, h, caseID)
	assert.Equal(t, models.PhaseIntake, vm.Phase)
	assert.Equal(t, "Утверждение", vm.Claim)
	assert.Len(t, vm.Evidence, 2)
	assert.True(t, vm.CanContinue)

	// INTAKE → раунд 1 прокурора
	rec := postJSON(t, h.Continue, "/api/trial/continue", `{"case_id":"`+caseID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// Прокрутка до суждения
	postJSON(t, h.Continue, "/api/trial/continue", `{"case_id":"`+caseID+`"}`)
	postJSON(t, h.Continue, "/api/trial/continue", `{"case_id":"`+caseID+`"}`)
	require.Equal(t, models.PhaseEpochUser, getView(t, h, caseID).Phase)

	rec = postJSON(t, h.Judgement, "/api/trial/judgement",
		`{"case_id":"`+caseID+`","judgement":"plausible"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, getView(t, h, caseID).Round)

	// Раунд 2 и финал
	postJSON(t, h.Continue, "/api/trial/continue", `{"case_id":"`+caseID+`"}`)
	postJSON(t, h.Continue, "/api/trial/continue", `{"case_id":"`+caseID+`"}`)
	postJSON(t, h.Judgement, "/api/trial/judgement",
		`{"case_id":"`+caseID+`","judgement":"misleading"}`)
	require.Equal(t, models.PhaseFinalUserVerdict, getView(t, h, caseID).Phase)

	rec = postJSON(t, h.Prediction, "/api/trial/prediction",
		`{"case_id":"`+caseID+`","verdict":"fake","confidence":"high"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	vm = getView(t, h, caseID)
	assert.Equal(t, models.PhaseFinalVerdict, vm.Phase)
	require.NotNil(t, vm.Verdict)
	assert.True(t, vm.Verdict.IsFastTrack())
	assert.Equal(t, "FAKE", vm.Verdict.FinalVerdict)
	assert.Len(t, vm.Judgements, 2)
}

func TestTrialHandlerContinueNotReadyIsNotAnError(t *testing.T) {
	backend := fakeOrchestrator(t, []string{`{"phase":"complete"}`})
	defer backend.Close()

	registry := services.NewRegistry(backend.URL, 2)
	h := NewTrialHandler(registry)
	caseID := startCase(t, h)
	waitForComplete(t, h, caseID)

	// INTAKE → EPOCH_PROSECUTOR, аргумента нет — advance холостой
	postJSON(t, h.Continue, "/api/trial/continue", `{"case_id":"`+caseID+`"}`)
	rec := postJSON(t, h.Continue, "/api/trial/continue", `{"case_id":"`+caseID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Advanced bool             `json:"advanced"`
		View     models.ViewModel `json:"view"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Advanced)
	assert.Equal(t, models.PhaseEpochProsecutor, resp.View.Phase)
}

func TestTrialHandlerUnknownCase(t *testing.T) {
	registry := services.NewRegistry("http://localhost:1", 2)
	h := NewTrialHandler(registry)

	req := httptest.NewRequest(http.MethodGet, "/api/trial/view?case_id=нет-такого", nil)
	rec := httptest.NewRecorder()
	h.View(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(t, h.CloseCase, "/api/trial/close", `{"case_id":"нет-такого"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrialHandlerStartValidation(t *testing.T) {
	registry := services.NewRegistry("http://localhost:1", 2)
	h := NewTrialHandler(registry)

	rec := postJSON(t, h.Start, "/api/trial/start", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.Start, "/api/trial/start", `не json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
