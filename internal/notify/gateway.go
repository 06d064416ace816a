package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/princedesai012/Doc-Flow/internal/config"
)

var nonDigits = regexp.MustCompile(`\D`)

// HTTPGateway sends messages through an external messaging gateway over
// HTTP. It tracks the gateway pairing lifecycle and republishes every status
// change to connected observers.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	events  StatusEvents
	log     *slog.Logger

	mu        sync.RWMutex
	status    GatewayStatus
	qrDataURL string
}

// NewHTTPGateway builds a gateway client. events may be nil when no observer
// fan-out is wanted (tests, CLI tools).
func NewHTTPGateway(cfg config.GatewayConfig, events StatusEvents, log *slog.Logger) *HTTPGateway {
	if log == nil {
		log = slog.Default()
	}
	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		events:  events,
		log:     log,
		status:  StatusDisconnected,
	}
}

// Status returns the current gateway status and, while pairing, the QR code
// data URL to display.
func (g *HTTPGateway) Status() (GatewayStatus, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status, g.qrDataURL
}

// Connect probes the gateway once and records the result. Safe to call at
// startup without blocking serving: a dead gateway just leaves the status
// disconnected.
func (g *HTTPGateway) Connect(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/status", nil)
	if err != nil {
		g.setStatus(StatusDisconnected, "")
		return
	}
	resp, err := g.client.Do(req)
	if err != nil {
		g.log.Warn("message gateway unreachable", "error", err)
		g.setStatus(StatusDisconnected, "")
		return
	}
	defer resp.Body.Close()

	var body struct {
		Ready bool `json:"ready"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || !body.Ready {
		g.setStatus(StatusDisconnected, "")
		return
	}
	g.setStatus(StatusReady, "")
}

// Pair requests a pairing code for the given phone number and moves the
// gateway into the pairing state. The returned QR data URL encodes the code
// for devices that scan instead of typing.
func (g *HTTPGateway) Pair(ctx context.Context, phoneNumber string) (string, error) {
	clean := nonDigits.ReplaceAllString(phoneNumber, "")
	if clean == "" {
		return "", fmt.Errorf("phone number is required")
	}

	payload, _ := json.Marshal(map[string]string{"phone": clean})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/pair", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request pairing code: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode pairing response: %w", err)
	}

	qr, err := qrcode.Encode(body.Code, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("encode pairing qr: %w", err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(qr)

	g.setStatus(StatusPairing, dataURL)
	return body.Code, nil
}

// Send posts one text message to the gateway. A successful send confirms the
// pairing, so the status is promoted to ready.
func (g *HTTPGateway) Send(ctx context.Context, contactHandle, text string) error {
	clean := nonDigits.ReplaceAllString(contactHandle, "")
	payload, _ := json.Marshal(map[string]string{"to": clean, "text": text})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		g.setStatus(StatusDisconnected, "")
		return fmt.Errorf("deliver message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	g.setStatus(StatusReady, "")
	return nil
}

func (g *HTTPGateway) setStatus(status GatewayStatus, qrDataURL string) {
	g.mu.Lock()
	changed := g.status != status || g.qrDataURL != qrDataURL
	g.status = status
	g.qrDataURL = qrDataURL
	g.mu.Unlock()

	if changed {
		g.log.Info("message gateway status", "status", string(status))
		if g.events != nil {
			g.events.GatewayStatusChanged(status, qrDataURL)
		}
	}
}
