package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"trial-viewer/config"
	"trial-viewer/database"
	"trial-viewer/logger"
	"trial-viewer/services"

	"github.com/gorilla/websocket"
)

type AdminHandler struct {
	cfg      *config.Config
	registry *services.Registry
}

func NewAdminHandler(cfg *config.Config, registry *services.Registry) *AdminHandler {
	return &AdminHandler{
		cfg:      cfg,
		registry: registry,
	}
}

// AuthMiddleware проверяет токен администратора
func (h *AdminHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Admin-Token")
		if token != h.cfg.AdminToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type AdminStats struct {
	ActiveCases  int              `json:"active_cases"`
	TotalTrials  int              `json:"total_trials"`
	AverageScore float64          `json:"average_score"`
	FakeCount    int              `json:"fake_count"`
	RealCount    int              `json:"real_count"`
	RecentTrials []AdminTrialItem `json:"recent_trials"`
}

type AdminTrialItem struct {
	CaseID    string `json:"case_id"`
	Claim     string `json:"claim"`
	Score     int    `json:"score"`
	CreatedAt string `json:"created_at"`
}

func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := AdminStats{ActiveCases: h.registry.Count()}

	if database.DB == nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
		return
	}

	err := database.DB.QueryRow("SELECT COUNT(*) FROM trial_results").Scan(&stats.TotalTrials)
	if err != nil {
		log.Printf("[ADMIN] Error getting total count: %v", err)
	}

	// Средний балл вердиктов жюри
	database.DB.QueryRow("SELECT COALESCE(AVG((verdict->>'score')::int), 0) FROM trial_results WHERE verdict->>'score' IS NOT NULL").Scan(&stats.AverageScore)

	// Фейки: score <= 40 у жюри либо FAKE у fast-track
	database.DB.QueryRow(`
		SELECT COUNT(*) FROM trial_results
		WHERE (verdict->>'score')::int <= 40 OR verdict->>'final_verdict' = 'FAKE'
	`).Scan(&stats.FakeCount)
	stats.RealCount = stats.TotalTrials - stats.FakeCount

	// Последние 10 дел
	rows, err := database.DB.Query(`
		SELECT case_id, COALESCE(claim, ''), COALESCE((verdict->>'score')::int, 0), created_at
		FROM trial_results
		ORDER BY created_at DESC
		LIMIT 10
	`)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			item := AdminTrialItem{}
			rows.Scan(&item.CaseID, &item.Claim, &item.Score, &item.CreatedAt)
			stats.RecentTrials = append(stats.RecentTrials, item)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // В продакшене лучше ограничить
	},
}

func (h *AdminHandler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token != h.cfg.AdminToken {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ADMIN] WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	logsChan := logger.Instance.Subscribe()
	defer logger.Instance.Unsubscribe(logsChan)

	// Канал для отслеживания закрытия соединения со стороны клиента
	done := make(chan struct{})
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				close(done)
				return
			}
		}
	}()

	for {
		select {
		case msg := <-logsChan:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
