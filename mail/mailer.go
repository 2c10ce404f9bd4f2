package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"text/template"
	"time"

	"go.uber.org/zap"
)

const apiURL = "https://api.brevo.com/v3/smtp/email"

var resetTemplate = template.Must(template.New("reset").Parse(`<h1>Password reset</h1>
<p>You requested a password reset. Follow the link below to continue:</p>
<a href="{{.ResetURL}}">Reset password</a>
<p>This link expires in 1 hour.</p>
<p>If you did not request a password reset, you can ignore this message.</p>`))

// Mailer sends transactional mail through the Brevo HTTP API. Without an API
// key it logs the mail instead, which keeps local development working.
type Mailer struct {
	apiKey string
	sender string
	client *http.Client
}

func New(apiKey, sender string) *Mailer {
	return &Mailer{
		apiKey: apiKey,
		sender: sender,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetClient overrides the HTTP client, used by tests.
func (m *Mailer) SetClient(c *http.Client) {
	m.client = c
}

// SendPasswordReset mails the time-limited reset link.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	var buf bytes.Buffer
	if err := resetTemplate.Execute(&buf, struct{ ResetURL string }{resetURL}); err != nil {
		return err
	}
	return m.send(ctx, to, "Password reset - Nexus", buf.String())
}

func (m *Mailer) send(ctx context.Context, to, subject, html string) error {
	if m.apiKey == "" {
		zap.S().Infof("[MAIL] to=%s subj=%s", to, subject)
		return nil
	}

	payload := map[string]any{
		"sender":      map[string]string{"email": m.sender},
		"to":          []map[string]string{{"email": to}},
		"subject":     subject,
		"htmlContent": html,
	}
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(payload); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail send failed status=%d", resp.StatusCode)
	}
	return nil
}
