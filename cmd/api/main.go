package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/pandadash/entregas-api/internal/application/queue"
	"github.com/pandadash/entregas-api/internal/application/reconcile"
	"github.com/pandadash/entregas-api/internal/infrastructure/jobstore"
	"github.com/pandadash/entregas-api/internal/infrastructure/sheets"
	"github.com/pandadash/entregas-api/internal/infrastructure/uploader"
	httpRouter "github.com/pandadash/entregas-api/internal/interfaces/http"
	"github.com/pandadash/entregas-api/pkg/config"
	"github.com/pandadash/entregas-api/pkg/logger"
	"github.com/pandadash/entregas-api/pkg/nit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("version", cfg.App.Version).
		Msg("iniciando aplicación")

	// lista cerrada de clientes: un NIT con forma inválida aquí produce llaves
	// que jamás cruzarán, mejor avisarlo al arrancar
	for _, c := range cfg.Reconcile.Clients {
		if err := nit.Validate(c.NIT); err != nil {
			log.Warn().Err(err).Str("cliente", c.Nombre).Msg("NIT dudoso en la lista de clientes")
		}
	}

	fetcher := sheets.New(sheets.Config{
		BaseURL:    cfg.Sheets.BaseURL,
		APIKey:     cfg.Sheets.APIKey,
		Timeout:    cfg.Sheets.Timeout,
		TTLs:       cfg.Sheets.TTLs(),
		DefaultTTL: cfg.Sheets.LedgerTTL,
	}, log)

	engine := reconcile.NewEngine(fetcher, reconcile.Config{
		OrdersID:                 cfg.Sheets.OrdersID,
		OrdersRange:              cfg.Sheets.OrdersRange,
		LedgerID:                 cfg.Sheets.LedgerID,
		LedgerRange:              cfg.Sheets.LedgerRange,
		LedgerDetailRange:        cfg.Sheets.LedgerDetailRange,
		ProofsID:                 cfg.Sheets.ProofsID,
		ProofsRange:              cfg.Sheets.ProofsRange,
		ValidPrefixes:            cfg.Reconcile.ValidPrefixes,
		ExcludedStatuses:         cfg.Reconcile.ExcludedStatuses,
		Clients:                  cfg.Reconcile.Clients,
		Proveedor3:               cfg.Reconcile.Proveedor3,
		Proveedor5:               cfg.Reconcile.Proveedor5,
		IncludeUnconfirmedOrders: cfg.Reconcile.IncludeUnconfirmedOrders,
		FuzzyClientMatch:         cfg.Reconcile.FuzzyClientMatch,
	}, log)

	store, err := jobstore.NewFileStore(cfg.Queue.StorePath)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir persistencia de la cola")
	}

	up := uploader.New(uploader.Config{
		URL:        cfg.Queue.UploadURL,
		Timeout:    cfg.Queue.Timeout,
		AppVersion: cfg.App.Version,
	})

	cola, err := queue.New(queue.Config{
		BaseDelay:  cfg.Queue.BaseDelay,
		MaxDelay:   cfg.Queue.MaxDelay,
		MaxRetries: cfg.Queue.MaxRetries,
		MaxJobs:    cfg.Queue.MaxJobs,
	}, store, up, engine.IsFacturaEntregada, log)
	if err != nil {
		log.Fatal().Err(err).Msg("recargar cola de subida")
	}

	drainCtx, stopDrain := context.WithCancel(context.Background())
	defer stopDrain()
	go cola.Start(drainCtx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Engine: engine,
		Cola:   cola,
		Log:    log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	stopDrain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
