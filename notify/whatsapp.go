package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// WhatsAppClient sends messages through a self-hosted WhatsApp gateway
// (go-whatsapp-web-multidevice style REST service).
type WhatsAppClient struct {
	baseURL string
	client  *http.Client
}

// NewWhatsAppClient reads the gateway address from WHATSAPP_GATEWAY_URL.
func NewWhatsAppClient() (*WhatsAppClient, error) {
	baseURL := os.Getenv("WHATSAPP_GATEWAY_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("WHATSAPP_GATEWAY_URL environment variable is not set")
	}
	return &WhatsAppClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Send posts a text message to the gateway. The recipient is a phone number
// in international format without the leading plus.
func (w *WhatsAppClient) Send(recipient, text string) error {
	payload, err := json.Marshal(map[string]string{
		"phone":   recipient,
		"message": text,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, w.baseURL+"/send/message", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create whatsapp request: %w", err)
	}
	req.Header.Add("Content-Type", "application/json")

	res, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read whatsapp response: %w", err)
	}

	var output struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &output); err != nil {
		return fmt.Errorf("failed to parse whatsapp response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("whatsapp gateway returned %d: %s", res.StatusCode, output.Message)
	}
	return nil
}
