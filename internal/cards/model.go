package cards

import (
	"errors"
	"fmt"
	"strings"

	"github.com/congo-pay/paycard/internal/notification"
)

// TemplateName is the receipt card template every run renders.
const TemplateName = "payment_paid_card_template.html"

// ErrInvalidRequest is wrapped by every ValidationError.
var ErrInvalidRequest = errors.New("invalid card request")

// CardRequest holds the fields needed to produce and deliver one receipt card.
// Values are copied around, never mutated after validation.
type CardRequest struct {
	Amount            string
	TimeStr           string
	MerchantName      string
	MerchantPhone     string
	TransactionID     string
	ProductOwnerPhone string
	Is1Bill           bool

	ChatID     string
	InstanceID string
	APIToken   string
}

// ValidationError lists the required fields that were missing or blank.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// Validate reports every required field that is absent or whitespace only.
func (r CardRequest) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"amount", r.Amount},
		{"time_str", r.TimeStr},
		{"merchant_name", r.MerchantName},
		{"chat_id", r.ChatID},
		{"instance_id", r.InstanceID},
		{"apiToken", r.APIToken},
	}

	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// TemplateFields maps the request onto the placeholders of the card template.
// Optional fields are always present so the template never sees a missing key.
func (r CardRequest) TemplateFields() map[string]any {
	return map[string]any{
		"amount":              r.Amount,
		"time_str":            r.TimeStr,
		"merchant_name":       r.MerchantName,
		"merchant_phone":      r.MerchantPhone,
		"transaction_id":      r.TransactionID,
		"product_owner_phone": r.ProductOwnerPhone,
		"is_1bill":            r.Is1Bill,
	}
}

// Recipient returns the delivery target with the request's own gateway credentials.
func (r CardRequest) Recipient() notification.Recipient {
	return notification.Recipient{
		ChatID:     r.ChatID,
		InstanceID: r.InstanceID,
		APIToken:   r.APIToken,
	}
}

// Job is one scheduled pipeline run: the request plus the artifact path reserved for it.
type Job struct {
	ID       string      `json:"id"`
	Request  CardRequest `json:"request"`
	FilePath string      `json:"file_path"`
}

// Outcome describes what a dispatched job produced.
// Queued outcomes carry only the reserved FilePath.
type Outcome struct {
	JobID    string
	FilePath string
	Queued   bool
	Degraded bool
	Delivery notification.Result
}
