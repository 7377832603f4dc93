// Package ocrsvc recognizes text regions from a screenshot, either via
// a remote HTTP endpoint or a local offline recognizer process.
package ocrsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"time"

	"github.com/bwan3150/test-toolkit-studio/internal/types"
)

// Mode selects the OCR backend.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// ErrNotConfigured is returned when a requested mode has no backend wired.
var ErrNotConfigured = fmt.Errorf("ocrsvc: requested mode is not configured")

// Adapter recognizes text in image bytes.
type Adapter struct {
	// OfflineBinary is the path to a local recognizer executable; empty
	// disables offline mode.
	OfflineBinary string
	// HTTPClient is used for online mode; a zero value gets a sane default.
	HTTPClient *http.Client
}

func New(offlineBinary string) *Adapter {
	return &Adapter{
		OfflineBinary: offlineBinary,
		HTTPClient:    &http.Client{Timeout: 20 * time.Second},
	}
}

type onlineResponseItem struct {
	Text       string        `json:"text"`
	Bbox       [4][2]float32 `json:"bbox"`
	Confidence float32       `json:"confidence"`
}

// Recognize dispatches to the online or offline backend. In online mode
// param is the full HTTP endpoint URL; in offline mode it is a language
// code.
func (a *Adapter) Recognize(ctx context.Context, imageBytes []byte, mode Mode, param string) ([]types.OcrText, error) {
	switch mode {
	case ModeOnline:
		return a.recognizeOnline(ctx, imageBytes, param)
	case ModeOffline:
		return a.recognizeOffline(ctx, imageBytes, param)
	default:
		return nil, fmt.Errorf("ocrsvc: unknown mode %q", mode)
	}
}

func (a *Adapter) recognizeOnline(ctx context.Context, imageBytes []byte, endpoint string) ([]types.OcrText, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: online OCR requires an endpoint URL", ErrNotConfigured)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("ocrsvc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	client := a.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocrsvc: online request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ocrsvc: read online response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocrsvc: online OCR status %d: %s", resp.StatusCode, string(body))
	}
	return parseItems(body)
}

func (a *Adapter) recognizeOffline(ctx context.Context, imageBytes []byte, lang string) ([]types.OcrText, error) {
	if a.OfflineBinary == "" {
		return nil, fmt.Errorf("%w: offline OCR requires a configured recognizer binary", ErrNotConfigured)
	}
	cmd := exec.CommandContext(ctx, a.OfflineBinary, "--lang", lang)
	cmd.Stdin = bytes.NewReader(imageBytes)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ocrsvc: offline recognizer failed: %w (%s)", err, stderr.String())
	}
	return parseItems(stdout.Bytes())
}

func parseItems(raw []byte) ([]types.OcrText, error) {
	var items []onlineResponseItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("ocrsvc: parse recognizer output: %w", err)
	}
	out := make([]types.OcrText, 0, len(items))
	for _, it := range items {
		var quad [4]types.Point2D
		for i, p := range it.Bbox {
			quad[i] = types.Point2D{X: p[0], Y: p[1]}
		}
		out = append(out, types.OcrText{Text: it.Text, Quad: quad, Confidence: it.Confidence})
	}
	return out, nil
}
