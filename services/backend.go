package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// BackendClient — тонкий клиент оркестратора процессов.
// Само следствие, аргументация и жюри живут на бэкенде;
// мы только запускаем дело и получаем case_id.
type BackendClient struct {
	baseURL string
	client  *http.Client
}

func NewBackendClient(baseURL string) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// StartTrial создаёт новое дело на бэкенде и возвращает его case_id.
func (b *BackendClient) StartTrial(ctx context.Context, content, inputType string) (string, error) {
	if inputType == "" {
		inputType = "text"
	}

	body, _ := json.Marshal(map[string]string{
		"content":    content,
		"input_type": inputType,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/trial/start", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("бэкенд недоступен: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("бэкенд ответил %d на запуск дела", resp.StatusCode)
	}

	var out struct {
		CaseID string `json:"case_id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("кривой ответ бэкенда: %w", err)
	}
	if out.CaseID == "" {
		return "", fmt.Errorf("бэкенд не вернул case_id")
	}
	return out.CaseID, nil
}
