package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pandadash/entregas-api/internal/application/queue"
	"github.com/pandadash/entregas-api/internal/application/reconcile"
	"github.com/pandadash/entregas-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine *reconcile.Engine
	Cola   *queue.Queue
	Log    *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	entregas := api.Group("/entregas")
	entregasHandler := NewEntregasHandler(deps.Engine, deps.Cola, deps.Log)
	entregas.Get("/", entregasHandler.List)
	entregas.Post("/confirmar", entregasHandler.Confirmar)
	entregas.Get("/:factura/entregada", entregasHandler.Entregada)

	cola := api.Group("/cola")
	colaHandler := NewColaHandler(deps.Cola)
	cola.Get("/stats", colaHandler.Stats)
	cola.Get("/jobs", colaHandler.Jobs)
	cola.Post("/retry", colaHandler.RetryAll)
	cola.Post("/online", colaHandler.Online)
	cola.Delete("/jobs/:id", colaHandler.Remove)
}
