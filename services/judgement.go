package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"trial-viewer/models"
)

// JudgementGateway отправляет суждения зрителя на бэкенд и подтверждает
// приём до того, как машина фаз разблокируется. Повторная отправка тех же
// аргументов безопасна: бэкенд по контракту трактует дубликаты суждений
// за один раунд идемпотентно (допущение границы, мы его не контролируем).
type JudgementGateway struct {
	baseURL string
	client  *http.Client
}

func NewJudgementGateway(baseURL string) *JudgementGateway {
	return &JudgementGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Submit отправляет суждение за раунд. Ошибка означает, что суждение
// НЕ принято: вызывающий не записывает его и машина остаётся в EPOCH_USER.
func (g *JudgementGateway) Submit(ctx context.Context, caseID string, round int, label string) error {
	body, _ := json.Marshal(map[string]interface{}{
		"case_id":   caseID,
		"round":     round,
		"judgement": label,
	})

	url := fmt.Sprintf("%s/api/trial/%s/judgement", g.baseURL, caseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("суждение не доставлено: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("бэкенд отклонил суждение: статус %d", resp.StatusCode)
	}

	log.Printf("[GATEWAY] ✓ Суждение %q за раунд %d принято (дело %s)", label, round, caseID)
	return nil
}

// SubmitPrediction пересылает финальную догадку зрителя.
// Информационная: неуспех логируется, но ничего не блокирует.
func (g *JudgementGateway) SubmitPrediction(ctx context.Context, caseID string, p models.UserPrediction) error {
	body, _ := json.Marshal(map[string]string{
		"case_id":    caseID,
		"verdict":    p.Verdict,
		"confidence": p.Confidence,
	})

	url := fmt.Sprintf("%s/api/trial/%s/prediction", g.baseURL, caseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("бэкенд ответил %d на прогноз", resp.StatusCode)
	}
	return nil
}
