package response

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rotationwatch/pkg/models"
)

type webhookRequest struct {
	Action    string `json:"action"`
	IP        string `json:"ip,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// webhookActions are the actions the enforcement webhook can carry out.
// The rest stay unmapped and are logged as pending by the dispatcher.
var webhookActions = []models.RemediationAction{
	models.ActionBlockIP,
	models.ActionSuspendUser,
	models.ActionTerminateSession,
	models.ActionAlertSecurityTeam,
	models.ActionLockKeys,
}

// NewWebhookHandlers builds a handler table that forwards remediation
// requests to an external enforcement webhook. The engine only requests;
// the webhook owner enforces.
func NewWebhookHandlers(url string, timeout time.Duration) (map[models.RemediationAction]ActionHandler, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook URL is empty")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	handlers := make(map[models.RemediationAction]ActionHandler, len(webhookActions))
	for _, action := range webhookActions {
		action := action
		handlers[action] = func(ctx context.Context, target Target) error {
			return postAction(ctx, client, url, webhookRequest{
				Action:    string(action),
				IP:        target.IP,
				UserID:    target.UserID,
				SessionID: target.SessionID,
			})
		}
	}
	return handlers, nil
}

func postAction(ctx context.Context, client *http.Client, url string, payload webhookRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal remediation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http request failed with status %s", resp.Status)
	}
	return nil
}
