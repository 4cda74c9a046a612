package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/gommon/log"
)

// Result is the delivery outcome of a single send attempt. Failure is data,
// not an error: the caller logs the outcome either way.
type Result struct {
	Status       string
	MessageID    string
	Provider     string
	ErrorMessage string
	Cost         float64
}

// Sender delivers one SMS. Implementations own their own timeouts.
type Sender interface {
	Send(ctx context.Context, phone, message string) Result
}

// ProviderSender talks to the SMS gateway over HTTP.
type ProviderSender struct {
	APIKey     string
	APIURL     string
	SenderName string
	Client     *http.Client
}

func NewProviderSender(apiKey, apiURL, senderName string) *ProviderSender {
	return &ProviderSender{
		APIKey:     apiKey,
		APIURL:     apiURL,
		SenderName: senderName,
		Client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type providerRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
	From    string `json:"from"`
}

type providerResponse struct {
	MessageID string  `json:"message_id"`
	Cost      float64 `json:"cost"`
}

func (s *ProviderSender) Send(ctx context.Context, phone, message string) Result {
	fail := func(msg string) Result {
		return Result{Status: StatusFailed, Provider: "sms_provider", ErrorMessage: msg}
	}

	body, err := json.Marshal(providerRequest{
		To:      CleanPhone(phone),
		Message: message,
		From:    s.SenderName,
	})
	if err != nil {
		return fail(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIURL, bytes.NewReader(body))
	if err != nil {
		return fail(err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.Client.Do(req)
	if err != nil {
		log.Errorf("sms request failed: %v", err)
		return fail(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Errorf("sms api error: %d - %s", resp.StatusCode, string(b))
		return fail(fmt.Sprintf("API error: %d", resp.StatusCode))
	}

	var pr providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return fail(err.Error())
	}

	return Result{
		Status:    StatusSent,
		MessageID: pr.MessageID,
		Provider:  "sms_provider",
		Cost:      pr.Cost,
	}
}

// MockSender records messages instead of sending them. Used in development
// and in tests.
type MockSender struct {
	mu   sync.Mutex
	Sent []MockMessage

	// FailWith, when set, makes every send report a failure.
	FailWith string
}

type MockMessage struct {
	Phone   string
	Message string
}

func (m *MockSender) Send(_ context.Context, phone, message string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != "" {
		return Result{Status: StatusFailed, Provider: "mock_provider", ErrorMessage: m.FailWith}
	}

	m.Sent = append(m.Sent, MockMessage{Phone: phone, Message: message})
	log.Infof("mock sms to %s: %.50s", phone, message)
	return Result{
		Status:    StatusSent,
		MessageID: fmt.Sprintf("mock_%d", time.Now().UnixNano()),
		Provider:  "mock_provider",
		Cost:      0.1,
	}
}

func (m *MockSender) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
