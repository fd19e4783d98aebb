package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/pandadash/entregas-api/internal/application/dto"
	"github.com/pandadash/entregas-api/internal/application/queue"
	"github.com/pandadash/entregas-api/internal/application/reconcile"
	"github.com/pandadash/entregas-api/internal/domain"
	"github.com/pandadash/entregas-api/pkg/logger"
	"github.com/pandadash/entregas-api/pkg/nit"
)

// EntregasHandler maneja las peticiones HTTP del cruce de entregas.
type EntregasHandler struct {
	engine *reconcile.Engine
	cola   *queue.Queue
	log    *logger.Logger
}

// NewEntregasHandler construye el handler.
func NewEntregasHandler(engine *reconcile.Engine, cola *queue.Queue, log *logger.Logger) *EntregasHandler {
	return &EntregasHandler{engine: engine, cola: cola, log: log}
}

// List devuelve la vista combinada de entregas por orden.
// GET /api/entregas?includeUnconfirmed=true
func (h *EntregasHandler) List(c *fiber.Ctx) error {
	if raw := c.Query("includeUnconfirmed"); raw != "" {
		return c.JSON(h.engine.ReconcileWith(c.Context(), reconcile.Options{
			IncludeUnconfirmedOrders: raw == "true" || raw == "1",
		}))
	}
	return c.JSON(h.engine.Reconcile(c.Context()))
}

// Entregada responde el predicado de entrega por factura.
// GET /api/entregas/:factura/entregada
func (h *EntregasHandler) Entregada(c *fiber.Ctx) error {
	factura := c.Params("factura")
	if factura == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "factura requerida"})
	}
	return c.JSON(dto.FacturaEntregadaResponse{
		Factura:   factura,
		Entregada: h.engine.IsFacturaEntregada(c.Context(), factura),
	})
}

// Confirmar encola una confirmación de entrega con prueba fotográfica.
// POST /api/entregas/confirmar
func (h *EntregasHandler) Confirmar(c *fiber.Ctx) error {
	var in dto.ConfirmarEntregaRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Factura == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "factura requerida"})
	}

	// forma del NIT: solo advertencia, el dato viene de orígenes sin esquema y
	// rechazarlo perdería la captura
	if in.NIT != "" {
		if err := nit.Validate(in.NIT); err != nil {
			h.log.Warn().Err(err).Str("factura", in.Factura).Msg("NIT con forma dudosa en confirmación")
		}
	}

	jobID, err := h.cola.Enqueue(c.Context(), map[string]string{
		"documento":  in.Documento,
		"lote":       in.Lote,
		"referencia": in.Referencia,
		"cantidad":   in.Cantidad,
		"factura":    in.Factura,
		"nit":        in.NIT,
		"fotoBase64": in.FotoBase64,
		"fotoNombre": in.FotoNombre,
		"fotoTipo":   in.FotoTipo,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "la factura ya está en cola"})
		}
		if errors.Is(err, domain.ErrAlreadyDone) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_DELIVERED", Message: "la entrega ya fue confirmada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ConfirmarEntregaResponse{JobID: jobID})
}
