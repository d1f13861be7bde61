package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	chatSuffix       = "@c.us"
	maxResponseBytes = 1 << 20
)

// WhatsAppConfig configures the Green API gateway client.
type WhatsAppConfig struct {
	BaseURL     string
	CountryCode string
	Timeout     time.Duration
}

// WhatsAppNotifier uploads card images through the Green API sendFileByUpload endpoint.
type WhatsAppNotifier struct {
	cfg    WhatsAppConfig
	client *http.Client
	logger *slog.Logger
}

// NewWhatsAppNotifier builds a gateway client. A nil httpClient gets one with cfg.Timeout.
func NewWhatsAppNotifier(cfg WhatsAppConfig, httpClient *http.Client, logger *slog.Logger) *WhatsAppNotifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &WhatsAppNotifier{cfg: cfg, client: httpClient, logger: logger}
}

// ChatAddress converts a raw chat id into the gateway's addressing scheme.
func (n *WhatsAppNotifier) ChatAddress(chatID string) string {
	chatID = strings.TrimSpace(chatID)
	if strings.Contains(chatID, "@") {
		return chatID
	}
	return n.cfg.CountryCode + chatID + chatSuffix
}

func (n *WhatsAppNotifier) endpoint(r Recipient) string {
	return fmt.Sprintf("%s/waInstance%s/sendFileByUpload/%s", n.cfg.BaseURL, r.InstanceID, r.APIToken)
}

// Send uploads the file once. Replies that are not a JSON object come back as a
// Fault result, not an error.
func (n *WhatsAppNotifier) Send(ctx context.Context, upload Upload) (Result, error) {
	f, err := os.Open(upload.Path)
	if err != nil {
		return Result{}, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUpload(mw, f, n.ChatAddress(upload.Recipient.ChatID), upload.Caption))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint(upload.Recipient), pr)
	if err != nil {
		return Result{}, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := n.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send to gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read gateway response: %w", err)
	}

	if n.logger != nil {
		n.logger.Debug("gateway responded",
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", time.Since(start)),
			slog.String("instance_id", upload.Recipient.InstanceID),
		)
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return FaultResult(resp.StatusCode, string(raw)), nil
	}
	ack, ok := parsed.(map[string]any)
	if !ok {
		return NonObjectResult(resp.StatusCode, string(raw)), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &StatusError{StatusCode: resp.StatusCode, Body: ack}
	}
	return AckResult(ack), nil
}

func writeUpload(mw *multipart.Writer, f *os.File, chatAddress, caption string) error {
	if err := mw.WriteField("chatId", chatAddress); err != nil {
		return err
	}
	if err := mw.WriteField("caption", caption); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", filepath.Base(f.Name()))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	return mw.Close()
}
