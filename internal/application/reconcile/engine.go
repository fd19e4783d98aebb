// Package reconcile implementa el motor de cruce: convierte tres orígenes
// tabulares con llaves débiles (órdenes, libro contable y pruebas de entrega)
// en una vista de estado de entrega por orden. Reemplaza las variantes
// divergentes del origen con un solo motor parametrizado.
package reconcile

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/pandadash/entregas-api/internal/domain/entity"
	"github.com/pandadash/entregas-api/internal/domain/normalize"
	"github.com/pandadash/entregas-api/internal/domain/repository"
	"github.com/pandadash/entregas-api/pkg/logger"
)

// Posiciones de columna de cada rango. Los orígenes no imponen esquema, así
// que el contrato es posicional.

// columnas del rango de órdenes
const (
	ordDocumento = iota
	ordLote
	ordReferencia
	ordProveedor
)

// columnas del rango de cabecera del libro
const (
	libEstado = iota
	libFactura
	libFecha
	libCliente
	libSelector
	libLoteOp3
	libLoteOp5
)

// columnas del rango de detalle del libro
const (
	detLlave = iota
	detCantidad
	detReferencia
	detValor
)

// columnas del rango de pruebas
const (
	pruDocumento = iota
	pruLote
	pruReferencia
	pruCantidad
	pruNIT
	pruFactura
)

// Config parametriza el motor. Las diferencias de comportamiento observadas
// entre variantes del origen son banderas explícitas, no elecciones silenciosas.
type Config struct {
	OrdersID          string
	OrdersRange       string
	LedgerID          string
	LedgerRange       string
	LedgerDetailRange string
	ProofsID          string
	ProofsRange       string

	ValidPrefixes    []string
	ExcludedStatuses []string
	Clients          []normalize.Cliente
	Proveedor3       string
	Proveedor5       string

	IncludeUnconfirmedOrders bool
	FuzzyClientMatch         bool
}

// Engine el motor de cruce. Sin estado mutable propio: todo el estado vive en
// el fetcher cacheado inyectado.
type Engine struct {
	fetcher repository.SourceFetcher
	cfg     Config
	log     *logger.Logger
	match   normalize.Matcher
}

// NewEngine construye el motor.
func NewEngine(fetcher repository.SourceFetcher, cfg Config, log *logger.Logger) *Engine {
	match := normalize.ExactMatch
	if cfg.FuzzyClientMatch {
		match = normalize.FirstTwoWordsMatch
	}
	return &Engine{fetcher: fetcher, cfg: cfg, log: log, match: match}
}

// Options sobrescrituras por invocación.
type Options struct {
	IncludeUnconfirmedOrders bool
}

// filaLibro es una fila de cabecera ya filtrada, enriquecida y agregada.
type filaLibro struct {
	entrada   entity.LedgerEntry
	cliente   string // normalizado
	nit       string
	lote      string // valor seleccionado por la rama del selector
	proveedor string
	agregado  entity.DetalleAgregado
}

// Reconcile ejecuta el cruce completo con la configuración por defecto.
func (e *Engine) Reconcile(ctx context.Context) []entity.CombinedResult {
	return e.ReconcileWith(ctx, Options{IncludeUnconfirmedOrders: e.cfg.IncludeUnconfirmedOrders})
}

// ReconcileWith ejecuta el cruce completo. Los cuatro rangos se leen en
// paralelo (son lecturas independientes) y se combinan cuando todos responden.
// El orden de salida sigue el orden de iteración del rango de órdenes.
func (e *Engine) ReconcileWith(ctx context.Context, opts Options) []entity.CombinedResult {
	var filasOrdenes, filasLibro, filasDetalle, filasPruebas [][]string

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); filasOrdenes = e.fetcher.Fetch(ctx, e.cfg.OrdersID, e.cfg.OrdersRange) }()
	go func() { defer wg.Done(); filasLibro = e.fetcher.Fetch(ctx, e.cfg.LedgerID, e.cfg.LedgerRange) }()
	go func() { defer wg.Done(); filasDetalle = e.fetcher.Fetch(ctx, e.cfg.LedgerID, e.cfg.LedgerDetailRange) }()
	go func() { defer wg.Done(); filasPruebas = e.fetcher.Fetch(ctx, e.cfg.ProofsID, e.cfg.ProofsRange) }()
	wg.Wait()

	ordenes := parseOrdenes(filasOrdenes)
	libro := e.filtrarLibro(parseLibro(filasLibro))
	agregados := agregarDetalles(parseDetalles(filasDetalle))
	pruebas := mapaPruebas(parsePruebas(filasPruebas))

	e.log.Debug().
		Int("ordenes", len(ordenes)).
		Int("libro", len(libro)).
		Int("grupos_detalle", len(agregados)).
		Int("pruebas", len(pruebas)).
		Msg("cruce: orígenes leídos")

	resultados := make([]entity.CombinedResult, 0, len(ordenes))
	for _, orden := range ordenes {
		datos := e.datosDeOrden(orden, libro, agregados, pruebas)
		if len(datos) == 0 && !opts.IncludeUnconfirmedOrders {
			continue
		}
		resultados = append(resultados, entity.CombinedResult{
			Documento:  orden.Documento,
			Referencia: orden.Referencia,
			Lote:       orden.Lote,
			DatosSiesa: datos,
		})
	}
	return resultados
}

// IsFacturaEntregada responde si ya existe una prueba registrada cuya factura
// coincide. Es el predicado que la cola consulta antes de intentar una subida:
// si la entrega ya convergió por otro canal, el trabajo es irrelevante.
func (e *Engine) IsFacturaEntregada(ctx context.Context, factura string) bool {
	factura = strings.TrimSpace(factura)
	if factura == "" {
		return false
	}
	for _, p := range parsePruebas(e.fetcher.Fetch(ctx, e.cfg.ProofsID, e.cfg.ProofsRange)) {
		if strings.TrimSpace(p.Factura) == factura {
			return true
		}
	}
	return false
}

// datosDeOrden cruza una orden contra las filas de libro cuyo lote
// seleccionado coincide con el lote de la orden.
func (e *Engine) datosDeOrden(
	orden entity.OrderLine,
	libro []filaLibro,
	agregados map[string]entity.DetalleAgregado,
	pruebas map[string]entity.ProofRecord,
) []entity.DatoSiesa {
	lote := strings.TrimSpace(orden.Lote)
	if lote == "" {
		return nil
	}

	var datos []entity.DatoSiesa
	for _, fila := range libro {
		if strings.TrimSpace(fila.lote) != lote {
			continue
		}
		agregado := agregados[strings.TrimSpace(fila.entrada.Factura)]

		llave := entity.LlaveConfirmacion(
			orden.Documento, orden.Lote, orden.Referencia,
			agregado.SumaCantidad.String(), fila.nit,
		)
		datos = append(datos, entity.DatoSiesa{
			Factura:      fila.entrada.Factura,
			Fecha:        normalize.Date(fila.entrada.Fecha),
			Cliente:      fila.cliente,
			NIT:          fila.nit,
			Proveedor:    fila.proveedor,
			Lote:         fila.lote,
			Cantidad:     agregado.SumaCantidad,
			Valor:        agregado.SumaValor,
			Referencia:   agregado.Referencia,
			Confirmacion: entity.Confirmacion(pruebas, llave),
		})
	}
	return datos
}

// filtrarLibro aplica los tres filtros de cabecera (estado, prefijo de factura,
// cliente en lista cerrada) y resuelve la rama del selector. Las filas que no
// pasan se descartan en silencio: la ausencia es el contrato, no el error.
func (e *Engine) filtrarLibro(entradas []entity.LedgerEntry) []filaLibro {
	filas := make([]filaLibro, 0, len(entradas))
	for _, entrada := range entradas {
		if e.estadoExcluido(entrada.Estado) {
			continue
		}
		if !normalize.HasValidPrefix(entrada.Factura, e.cfg.ValidPrefixes) {
			continue
		}
		cliente := normalize.ClientName(entrada.ClienteRaw)
		nit := normalize.LookupNIT(cliente, e.cfg.Clients, e.match)
		if nit == "" {
			continue
		}

		var lote, proveedor string
		switch entrada.Selector {
		case entity.SelectorOp3:
			lote, proveedor = entrada.LoteOp3, e.cfg.Proveedor3
		case entity.SelectorOp5:
			lote, proveedor = entrada.LoteOp5, e.cfg.Proveedor5
		}

		filas = append(filas, filaLibro{
			entrada:   entrada,
			cliente:   cliente,
			nit:       nit,
			lote:      lote,
			proveedor: proveedor,
		})
	}
	return filas
}

func (e *Engine) estadoExcluido(estado string) bool {
	for _, s := range e.cfg.ExcludedStatuses {
		if estado == s {
			return true
		}
	}
	return false
}

// ── Parseo posicional de filas crudas ─────────────────────────────────────────

func celda(fila []string, i int) string {
	if i < len(fila) {
		return fila[i]
	}
	return ""
}

func parseOrdenes(filas [][]string) []entity.OrderLine {
	out := make([]entity.OrderLine, 0, len(filas))
	for _, f := range filas {
		doc := strings.TrimSpace(celda(f, ordDocumento))
		if doc == "" {
			continue
		}
		out = append(out, entity.OrderLine{
			Documento:  doc,
			Lote:       celda(f, ordLote),
			Referencia: celda(f, ordReferencia),
			Proveedor:  celda(f, ordProveedor),
		})
	}
	return out
}

func parseLibro(filas [][]string) []entity.LedgerEntry {
	out := make([]entity.LedgerEntry, 0, len(filas))
	for _, f := range filas {
		if len(f) == 0 {
			continue
		}
		out = append(out, entity.LedgerEntry{
			Estado:     strings.TrimSpace(celda(f, libEstado)),
			Factura:    strings.TrimSpace(celda(f, libFactura)),
			Fecha:      strings.TrimSpace(celda(f, libFecha)),
			ClienteRaw: celda(f, libCliente),
			Selector:   strings.TrimSpace(celda(f, libSelector)),
			LoteOp3:    celda(f, libLoteOp3),
			LoteOp5:    celda(f, libLoteOp5),
		})
	}
	return out
}

func parseDetalles(filas [][]string) []entity.LedgerDetail {
	out := make([]entity.LedgerDetail, 0, len(filas))
	for _, f := range filas {
		llave := strings.TrimSpace(celda(f, detLlave))
		if llave == "" {
			continue
		}
		out = append(out, entity.LedgerDetail{
			Llave:      llave,
			Cantidad:   normalize.Number(celda(f, detCantidad)),
			Referencia: strings.TrimSpace(celda(f, detReferencia)),
			Valor:      normalize.Number(celda(f, detValor)),
		})
	}
	return out
}

func parsePruebas(filas [][]string) []entity.ProofRecord {
	out := make([]entity.ProofRecord, 0, len(filas))
	for _, f := range filas {
		if len(f) == 0 {
			continue
		}
		out = append(out, entity.ProofRecord{
			Documento:  celda(f, pruDocumento),
			Lote:       celda(f, pruLote),
			Referencia: celda(f, pruReferencia),
			Cantidad:   celda(f, pruCantidad),
			NIT:        celda(f, pruNIT),
			Factura:    celda(f, pruFactura),
		})
	}
	return out
}

// agregarDetalles pliega los detalles que comparten llave: suma cantidades y
// valores, recolecta referencias y cuenta filas. La referencia agregada sale
// del conteo (0 ⇒ vacía, 1 ⇒ la única, >1 ⇒ RefVar).
func agregarDetalles(detalles []entity.LedgerDetail) map[string]entity.DetalleAgregado {
	type grupo struct {
		cantidad decimal.Decimal
		valor    decimal.Decimal
		refs     []string
	}
	grupos := make(map[string]*grupo)
	for _, d := range detalles {
		g, ok := grupos[d.Llave]
		if !ok {
			g = &grupo{}
			grupos[d.Llave] = g
		}
		g.cantidad = g.cantidad.Add(d.Cantidad)
		g.valor = g.valor.Add(d.Valor)
		g.refs = append(g.refs, d.Referencia)
	}

	out := make(map[string]entity.DetalleAgregado, len(grupos))
	for llave, g := range grupos {
		out[llave] = entity.DetalleAgregado{
			SumaCantidad: g.cantidad,
			SumaValor:    g.valor,
			Referencia:   entity.ReferenciaAgregada(g.refs),
			Conteo:       len(g.refs),
		}
	}
	return out
}

func mapaPruebas(pruebas []entity.ProofRecord) map[string]entity.ProofRecord {
	out := make(map[string]entity.ProofRecord, len(pruebas))
	for _, p := range pruebas {
		out[p.Llave()] = p
	}
	return out
}
