package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"SchoolBeacon/internal/config"
)

// BrowserSender forwards browser subscriptions to the web push relay, which
// performs the Web Push protocol handshake with the browser vendor.
type BrowserSender struct {
	config *config.WebPushConfig
	client *http.Client
}

func NewBrowserSender(cfg *config.WebPushConfig) *BrowserSender {
	return &BrowserSender{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type browserRequest struct {
	Endpoint string            `json:"endpoint"`
	Keys     browserKeys       `json:"keys"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
}

type browserKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// ValidEndpoint requires an https subscription URL and both encryption keys.
func (b *BrowserSender) ValidEndpoint(sub Subscription) bool {
	u, err := url.Parse(sub.Endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return false
	}
	return sub.P256dh != "" && sub.Auth != ""
}

func (b *BrowserSender) Send(ctx context.Context, sub Subscription, title, body string, data map[string]string) error {
	payload := browserRequest{
		Endpoint: sub.Endpoint,
		Keys:     browserKeys{P256dh: sub.P256dh, Auth: sub.Auth},
		Title:    title,
		Body:     body,
		Data:     data,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("Failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", b.config.APIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("Failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("Failed to reach push gateway: %w", err)
	}
	defer resp.Body.Close()

	// 404/410 mean the browser dropped the subscription
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return fmt.Errorf("%w: gateway returned %d", ErrEndpointGone, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var errorResponse map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errorResponse)
		return fmt.Errorf("Failed to send push, status code: %d, error: %v", resp.StatusCode, errorResponse)
	}
	return nil
}
