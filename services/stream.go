package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"trial-viewer/models"
)

// EventStream — один долгоживущий SSE канал от бэкенда для одного дела.
//
// Контракт: Open отдаёт канал типизированных событий до Close() или
// терминального сигнала. EOF транспорта эквивалентен тегу complete —
// канал событий просто закрывается. Ошибка транспорта сигналится
// ровно один раз через канал ошибок, без тихих ретраев: политика
// переподключения — решение вызывающего, не канала.
type EventStream struct {
	backendURL string
	client     *http.Client

	mu        sync.Mutex
	opened    bool
	cancel    context.CancelFunc
	closeOnce sync.Once

	malformed int
}

func NewEventStream(backendURL string) *EventStream {
	return &EventStream{
		backendURL: strings.TrimRight(backendURL, "/"),
		// Без общего таймаута: поток живёт неограниченно долго
		client: &http.Client{},
	}
}

// Open подключается к SSE потоку дела и начинает читать события.
// На один EventStream — максимум одно открытое соединение.
func (s *EventStream) Open(ctx context.Context, caseID string) (<-chan models.RawEvent, <-chan error, error) {
	s.mu.Lock()
	if s.opened {
		s.mu.Unlock()
		return nil, nil, fmt.Errorf("поток для дела %s уже открыт", caseID)
	}
	s.opened = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	url := fmt.Sprintf("%s/api/trial/%s/stream", s.backendURL, caseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось открыть поток: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, nil, fmt.Errorf("бэкенд ответил %d на открытие потока", resp.StatusCode)
	}

	log.Printf("[STREAM] 📡 Поток открыт для дела %s", caseID)

	events := make(chan models.RawEvent, 16)
	errs := make(chan error, 1)

	go s.readLoop(resp.Body, caseID, events, errs)

	return events, errs, nil
}

// readLoop читает SSE строки до EOF, ошибки или отмены контекста.
// Строки "data: {json}" декодируются в RawEvent; служебные строки
// ("event:", комментарии, пустые) пропускаются. Кривой JSON считается
// и отбрасывается — пайплайн не падает.
func (s *EventStream) readLoop(body io.ReadCloser, caseID string, events chan<- models.RawEvent, errs chan<- error) {
	defer body.Close()
	defer close(events)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var ev models.RawEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			s.mu.Lock()
			s.malformed++
			n := s.malformed
			s.mu.Unlock()
			log.Printf("[STREAM] ⚠ Кривой JSON в потоке (%d-й), пропускаю: %v", n, err)
			continue
		}
		events <- ev
	}

	if err := scanner.Err(); err != nil && !isClosedErr(err) {
		log.Printf("[STREAM] ❌ Ошибка канала для дела %s: %v", caseID, err)
		errs <- fmt.Errorf("ошибка канала: %w", err)
		return
	}

	// EOF == complete
	log.Printf("[STREAM] ✓ Поток дела %s завершён", caseID)
}

// Close закрывает соединение. Идемпотентен: повторные вызовы
// и вызов после ошибки безопасны.
func (s *EventStream) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		cancel := s.cancel
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}

// Malformed — сколько строк потока не удалось декодировать.
func (s *EventStream) Malformed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.malformed
}

func isClosedErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "context canceled") ||
		strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "http: read on closed response body")
}
