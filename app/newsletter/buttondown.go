package newsletter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
)

const (
	DefaultEndpoint = "https://api.buttondown.com/v1/subscribers"
	SubscriberTag   = "nuxt-newsletter"
)

var (
	ErrInvalidEmail  = errors.New("invalid email address")
	ErrNotConfigured = errors.New("newsletter not configured")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@][^\s.@]*\.[^\s@]+$`)

// RejectedError is returned when Buttondown refuses a subscription.
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("buttondown rejected subscription (HTTP %d): %s", e.Status, e.Message)
}

type subscriberRequest struct {
	EmailAddress string   `json:"email_address"`
	Type         string   `json:"type"`
	Tags         []string `json:"tags"`
	IPAddress    string   `json:"ip_address,omitempty"`
}

type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewClient(apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		httpClient: httpClient,
	}
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Subscribe adds a regular subscriber. Existing subscribers are merged
// rather than rejected.
func (c *Client) Subscribe(ctx context.Context, email, ip string) error {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return ErrInvalidEmail
	}
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(subscriberRequest{
		EmailAddress: email,
		Type:         "regular",
		Tags:         []string{SubscriberTag},
		IPAddress:    ip,
	})
	if err != nil {
		return fmt.Errorf("failed to encode subscriber: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Buttondown-Collision-Behavior", "add")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach buttondown: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := rejectionMessage(data)
		slog.Warn("Buttondown rejected subscription", "status", resp.StatusCode, "message", message)
		return &RejectedError{Status: resp.StatusCode, Message: message}
	}

	slog.Info("Newsletter subscription added", "status", resp.StatusCode)
	return nil
}

func rejectionMessage(data []byte) string {
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Detail != "" {
			return body.Detail
		}
		if body.Error != "" {
			return body.Error
		}
	}

	if text := strings.TrimSpace(string(data)); text != "" {
		return text
	}
	return "Subscription failed"
}
