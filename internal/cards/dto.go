package cards

import "github.com/congo-pay/paycard/internal/notification"

// GenerateRequest is the JSON body of POST /generate-payment-card.
type GenerateRequest struct {
	Amount            string `json:"amount"`
	TimeStr           string `json:"time_str"`
	MerchantName      string `json:"merchant_name"`
	MerchantPhone     string `json:"merchant_phone"`
	TransactionID     string `json:"transaction_id"`
	ProductOwnerPhone string `json:"product_owner_phone"`
	Is1Bill           bool   `json:"is_1bill"`
	ChatID            string `json:"chat_id"`
	APIToken          string `json:"apiToken"`
	InstanceID        string `json:"instance_id"`
}

// CardRequest converts the body into the domain value.
func (r GenerateRequest) CardRequest() CardRequest {
	return CardRequest{
		Amount:            r.Amount,
		TimeStr:           r.TimeStr,
		MerchantName:      r.MerchantName,
		MerchantPhone:     r.MerchantPhone,
		TransactionID:     r.TransactionID,
		ProductOwnerPhone: r.ProductOwnerPhone,
		Is1Bill:           r.Is1Bill,
		ChatID:            r.ChatID,
		InstanceID:        r.InstanceID,
		APIToken:          r.APIToken,
	}
}

// Response statuses.
const (
	StatusSuccess = "success"
	StatusQueued  = "queued"
)

// SuccessResponse is returned when the pipeline ran inline.
type SuccessResponse struct {
	Status           string              `json:"status"`
	FilePath         string              `json:"file_path"`
	WhatsAppResponse notification.Result `json:"whatsapp_response"`
}

// QueuedResponse is returned when the pipeline was deferred.
type QueuedResponse struct {
	Status   string `json:"status"`
	FilePath string `json:"file_path"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Detail   string `json:"detail"`
	FilePath string `json:"file_path,omitempty"`
}
