package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	// FaultNonJSON tags a gateway reply whose body could not be parsed as JSON.
	FaultNonJSON = "Non-JSON response"
	// FaultNonObject tags valid JSON that is not an object: arrays, scalars or null.
	FaultNonObject = "Non-object JSON response"
)

// Recipient identifies who receives a card and which gateway account sends it.
// Credentials travel with each request; distinct callers may use distinct accounts.
type Recipient struct {
	ChatID     string
	InstanceID string
	APIToken   string
}

// Upload describes one file delivery.
type Upload struct {
	Path      string
	Recipient Recipient
	Caption   string
}

// Fault is the uniform shape returned when the gateway reply is not a JSON object.
type Fault struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Text       string `json:"text"`
}

// Result is either the gateway acknowledgment, verbatim, or a Fault. Exactly one is set.
type Result struct {
	Ack   map[string]any
	Fault *Fault
}

// AckResult wraps a parsed acknowledgment.
func AckResult(ack map[string]any) Result {
	if ack == nil {
		ack = map[string]any{}
	}
	return Result{Ack: ack}
}

// FaultResult wraps a non-JSON reply.
func FaultResult(status int, text string) Result {
	return Result{Fault: &Fault{Error: FaultNonJSON, StatusCode: status, Text: text}}
}

// NonObjectResult wraps a reply that parsed as JSON but is not an object.
func NonObjectResult(status int, text string) Result {
	return Result{Fault: &Fault{Error: FaultNonObject, StatusCode: status, Text: text}}
}

// IsFault reports whether the gateway reply was not a JSON object.
func (r Result) IsFault() bool { return r.Fault != nil }

// MarshalJSON encodes the acknowledgment object as-is, or the fault descriptor.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Fault != nil {
		return json.Marshal(r.Fault)
	}
	if r.Ack == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.Ack)
}

// StatusError reports a JSON reply with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       map[string]any
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway returned status %d: %v", e.StatusCode, e.Body)
}

// Notifier delivers rendered cards to downstream systems.
type Notifier interface {
	Send(ctx context.Context, upload Upload) (Result, error)
}

// LoggerNotifier is a stub implementation that writes deliveries to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send logs the upload and acknowledges it with a synthetic message id.
func (n *LoggerNotifier) Send(_ context.Context, upload Upload) (Result, error) {
	id := uuid.NewString()
	if n != nil && n.logger != nil {
		n.logger.Info("notification",
			slog.String("chat_id", upload.Recipient.ChatID),
			slog.String("instance_id", upload.Recipient.InstanceID),
			slog.String("file", filepath.Base(upload.Path)),
			slog.String("id_message", id),
		)
	}
	return AckResult(map[string]any{"idMessage": id, "delivery": "logged"}), nil
}
