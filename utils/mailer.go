package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Mailer sends transactional mail through an HTTP mail API.
type Mailer struct {
	apiURL      string
	apiKey      string
	senderEmail string
	senderName  string
	client      *http.Client
}

func NewMailer(apiURL, apiKey, senderEmail string) *Mailer {
	return &Mailer{
		apiURL:      apiURL,
		apiKey:      apiKey,
		senderEmail: senderEmail,
		senderName:  "Snackbox",
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailRequest struct {
	Personalizations []struct {
		To []mailAddress `json:"to"`
	} `json:"personalizations"`
	From    mailAddress   `json:"from"`
	Subject string        `json:"subject"`
	Content []mailContent `json:"content"`
}

// Send delivers one HTML mail to a single recipient.
func (m *Mailer) Send(toEmail, toName, subject, htmlBody string) error {
	body := mailRequest{
		Personalizations: []struct {
			To []mailAddress `json:"to"`
		}{
			{To: []mailAddress{{Email: toEmail, Name: toName}}},
		},
		From:    mailAddress{Email: m.senderEmail, Name: m.senderName},
		Subject: subject,
		Content: []mailContent{{Type: "text/html", Value: htmlBody}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, m.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call mail API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail API returned status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
