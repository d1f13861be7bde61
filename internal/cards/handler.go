package cards

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

// ErrUnavailable is returned by dispatchers that cannot accept more work.
var ErrUnavailable = errors.New("dispatcher unavailable")

// DegradedHeader is set on inline responses whose card fell back to a full-page capture.
const DegradedHeader = "X-Card-Degraded"

// Dispatcher decides whether a job runs inside the request or after it.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) (Outcome, error)
}

// Handler exposes the card generation endpoint.
type Handler struct {
	service    *Service
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewHandler constructs a card handler.
func NewHandler(service *Service, dispatcher Dispatcher, logger *slog.Logger) *Handler {
	return &Handler{service: service, dispatcher: dispatcher, logger: logger}
}

// Generate validates the body, dispatches the pipeline and reports the result.
func (h *Handler) Generate(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	job, err := h.service.Prepare(req.CardRequest())
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return fiber.NewError(http.StatusBadRequest, verr.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	filePath := filepath.ToSlash(job.FilePath)

	out, err := h.dispatcher.Dispatch(c.UserContext(), job)
	if err != nil {
		switch {
		case errors.Is(err, ErrDelivery):
			return c.Status(http.StatusBadGateway).JSON(ErrorResponse{Detail: err.Error(), FilePath: filePath})
		case errors.Is(err, ErrUnavailable):
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	if out.Queued {
		h.logger.Info("card queued", slog.String("job_id", job.ID), slog.String("file_path", filePath))
		return c.Status(http.StatusAccepted).JSON(QueuedResponse{Status: StatusQueued, FilePath: filePath})
	}

	if out.Degraded {
		c.Set(DegradedHeader, "true")
	}
	return c.Status(http.StatusOK).JSON(SuccessResponse{
		Status:           StatusSuccess,
		FilePath:         filepath.ToSlash(out.FilePath),
		WhatsAppResponse: out.Delivery,
	})
}
