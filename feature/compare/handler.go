package compare

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"koala-diff/core/diff"
	"koala-diff/core/logger"
)

// Handler handles HTTP requests for comparisons.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the compare routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Get("/healthz", h.HandleHealth)
	app.Post("/compare", h.HandleCompare)
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// HandleCompare runs a comparison synchronously and returns the report.
func (h *Handler) HandleCompare(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Source == "" || req.Target == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "source and target are required"})
	}

	rep, err := h.service.Run(c.Context(), req)
	if err != nil {
		status := fiber.StatusInternalServerError
		var mismatch *diff.SchemaMismatchError
		var overflow *diff.PartitionOverflowError
		switch {
		case errors.As(err, &mismatch):
			status = fiber.StatusUnprocessableEntity
		case errors.As(err, &overflow):
			status = fiber.StatusInsufficientStorage
		}
		l.Error("Comparison failed", zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(rep)
}
