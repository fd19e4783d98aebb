package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/pandadash/entregas-api/internal/application/dto"
	"github.com/pandadash/entregas-api/internal/application/queue"
	"github.com/pandadash/entregas-api/internal/domain"
)

// ColaHandler expone la cola de subida: la vista de inspección y las válvulas
// de escape manuales (reintentar todo, remover un trabajo).
type ColaHandler struct {
	cola *queue.Queue
}

// NewColaHandler construye el handler.
func NewColaHandler(cola *queue.Queue) *ColaHandler {
	return &ColaHandler{cola: cola}
}

// Stats métricas de la cola.
// GET /api/cola/stats
func (h *ColaHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.cola.Stats())
}

// Jobs instantánea de los trabajos encolados.
// GET /api/cola/jobs
func (h *ColaHandler) Jobs(c *fiber.Ctx) error {
	return c.JSON(h.cola.Jobs())
}

// RetryAll limpia los relojes de backoff y fuerza reintento inmediato.
// POST /api/cola/retry
func (h *ColaHandler) RetryAll(c *fiber.Ctx) error {
	h.cola.RetryAll()
	return c.JSON(h.cola.Stats())
}

// Remove saca un trabajo de la cola.
// DELETE /api/cola/jobs/:id
func (h *ColaHandler) Remove(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	if err := h.cola.RemoveJob(id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "trabajo no encontrado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Online mueve la compuerta de conectividad de la cola.
// POST /api/cola/online
func (h *ColaHandler) Online(c *fiber.Ctx) error {
	var in dto.OnlineRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	h.cola.SetOnline(in.Online)
	return c.JSON(fiber.Map{"online": h.cola.Online()})
}
