package services

import (
	"context"
	"log"
	"sync"
)

// Registry — живые дела в памяти, по одному Case на case_id.
// Зеркало active_trials на стороне бэкенда.
type Registry struct {
	mu    sync.Mutex
	cases map[string]*Case

	backend    *BackendClient
	backendURL string
	maxRounds  int
}

func NewRegistry(backendURL string, maxRounds int) *Registry {
	return &Registry{
		cases:      make(map[string]*Case),
		backend:    NewBackendClient(backendURL),
		backendURL: backendURL,
		maxRounds:  maxRounds,
	}
}

// Start запускает дело на бэкенде, создаёт Case и открывает его поток.
func (r *Registry) Start(ctx context.Context, content, inputType string) (*Case, error) {
	caseID, err := r.backend.StartTrial(ctx, content, inputType)
	if err != nil {
		return nil, err
	}

	stream := NewEventStream(r.backendURL)
	gateway := NewJudgementGateway(r.backendURL)

	c := NewCase(caseID, stream, gateway, r.maxRounds)
	c.OnFinished(ArchiveTrial)

	r.mu.Lock()
	r.cases[caseID] = c
	total := len(r.cases)
	r.mu.Unlock()

	// Поток живёт дольше HTTP запроса на запуск — свой контекст,
	// гасится через Case.Close
	go c.Run(context.Background())

	log.Printf("[REGISTRY] ⚖ Дело %s запущено (активных дел: %d)", caseID, total)
	return c, nil
}

// Get возвращает живое дело по id.
func (r *Registry) Get(caseID string) (*Case, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cases[caseID]
	return c, ok
}

// Close закрывает дело и убирает его из реестра.
// Финальный результат остаётся доступен через архив.
func (r *Registry) Close(caseID string) bool {
	r.mu.Lock()
	c, ok := r.cases[caseID]
	if ok {
		delete(r.cases, caseID)
	}
	r.mu.Unlock()

	if ok {
		c.Close()
	}
	return ok
}

// Count — сколько дел сейчас активно.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cases)
}
