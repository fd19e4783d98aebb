package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandadash/entregas-api/internal/application/dto"
	"github.com/pandadash/entregas-api/internal/application/queue"
	"github.com/pandadash/entregas-api/internal/application/reconcile"
	"github.com/pandadash/entregas-api/internal/domain/entity"
	"github.com/pandadash/entregas-api/internal/domain/normalize"
	apphttp "github.com/pandadash/entregas-api/internal/interfaces/http"
	"github.com/pandadash/entregas-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// tablasFetcher sirve tablas fijas por (origen, rango).
type tablasFetcher struct {
	tablas map[string][][]string
}

func (f *tablasFetcher) Fetch(_ context.Context, sourceID, rango string) [][]string {
	if t, ok := f.tablas[sourceID+"|"+rango]; ok {
		return t
	}
	return [][]string{}
}

func (f *tablasFetcher) Clear(string) {}
func (f *tablasFetcher) ClearAll()    {}

// memStore persistencia en memoria.
type memStore struct{ jobs []entity.UploadJob }

func (s *memStore) Save(jobs []entity.UploadJob) error { s.jobs = jobs; return nil }
func (s *memStore) Load() ([]entity.UploadJob, error)  { return s.jobs, nil }

// nopUploader nunca se invoca en estos tests: la cola no se arranca.
type nopUploader struct{}

func (nopUploader) Upload(context.Context, entity.UploadJob) error { return nil }

// buildTestApp arma la aplicación con un motor sobre tablas fijas y una cola
// sin drenado (los trabajos quedan encolados para inspección).
func buildTestApp(t *testing.T, tablas map[string][][]string) *fiber.App {
	t.Helper()

	eng := reconcile.NewEngine(&tablasFetcher{tablas: tablas}, reconcile.Config{
		OrdersID:          "ordenes",
		OrdersRange:       "ord",
		LedgerID:          "siesa",
		LedgerRange:       "lib",
		LedgerDetailRange: "det",
		ProofsID:          "pruebas",
		ProofsRange:       "pru",
		ValidPrefixes:     []string{"FEV"},
		ExcludedStatuses:  []string{entity.EstadoAnuladas, entity.EstadoEnElaboracion},
		Clients: []normalize.Cliente{
			{Nombre: "El Templo De La Moda S.A.S", NIT: "900047252"},
		},
		Proveedor3: "CONFECCIONES PANDA S.A.S",
		Proveedor5: "TEXTILES PANDA ZONA FRANCA S.A.S",
	}, logger.Nop())

	cola, err := queue.New(queue.Config{
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
		MaxJobs:   50,
	}, &memStore{}, nopUploader{}, eng.IsFacturaEntregada, logger.Nop())
	require.NoError(t, err)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{Engine: eng, Cola: cola, Log: logger.Nop()})
	return app
}

func tablasBase() map[string][][]string {
	return map[string][][]string{
		"ordenes|ord": {{"REC1", "L5", "REF9", ""}},
		"siesa|lib":   {{"Activa", "FEV100", "29/11/2023", "El Templo De La Moda S.A.S", "3", "L5", ""}},
		"siesa|det":   {{"FEV100", "3", "REF9", "45000"}},
		"pruebas|pru": {},
	}
}

func doJSON(t *testing.T, app *fiber.App, method, ruta string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, ruta, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodificar[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestListEntregas(t *testing.T) {
	app := buildTestApp(t, tablasBase())

	resp := doJSON(t, app, http.MethodGet, "/api/entregas/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := decodificar[[]entity.CombinedResult](t, resp)
	require.Len(t, res, 1)
	assert.Equal(t, "REC1", res[0].Documento)
	require.Len(t, res[0].DatosSiesa, 1)
	assert.Equal(t, entity.ConfirmacionNinguna, res[0].DatosSiesa[0].Confirmacion)
}

func TestListEntregas_IncludeUnconfirmedOverride(t *testing.T) {
	tablas := tablasBase()
	tablas["ordenes|ord"] = [][]string{{"REC9", "L99", "REFX", ""}} // sin cruce
	app := buildTestApp(t, tablas)

	resp := doJSON(t, app, http.MethodGet, "/api/entregas/", nil)
	assert.Empty(t, decodificar[[]entity.CombinedResult](t, resp))

	resp = doJSON(t, app, http.MethodGet, "/api/entregas/?includeUnconfirmed=true", nil)
	assert.Len(t, decodificar[[]entity.CombinedResult](t, resp), 1)
}

func TestEntregada(t *testing.T) {
	tablas := tablasBase()
	tablas["pruebas|pru"] = [][]string{{"REC1", "L5", "REF9", "3", "900047252", "FEV100"}}
	app := buildTestApp(t, tablas)

	resp := doJSON(t, app, http.MethodGet, "/api/entregas/FEV100/entregada", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodificar[dto.FacturaEntregadaResponse](t, resp)
	assert.True(t, out.Entregada)

	resp = doJSON(t, app, http.MethodGet, "/api/entregas/FEV999/entregada", nil)
	assert.False(t, decodificar[dto.FacturaEntregadaResponse](t, resp).Entregada)
}

func TestConfirmar_EncolaYRechazaDuplicado(t *testing.T) {
	app := buildTestApp(t, tablasBase())

	body := dto.ConfirmarEntregaRequest{
		Documento:  "REC1",
		Lote:       "L5",
		Referencia: "REF9",
		Cantidad:   "3",
		Factura:    "FEV777",
		NIT:        "900047252",
		FotoBase64: "aGVsbG8=",
		FotoNombre: "entrega.jpg",
		FotoTipo:   "image/jpeg",
	}
	resp := doJSON(t, app, http.MethodPost, "/api/entregas/confirmar", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, decodificar[dto.ConfirmarEntregaResponse](t, resp).JobID)

	// misma factura en vuelo → conflicto
	resp = doJSON(t, app, http.MethodPost, "/api/entregas/confirmar", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// Una factura que ya tiene prueba registrada en el origen se rechaza como
// irrelevante antes de encolar.
func TestConfirmar_RechazaYaEntregada(t *testing.T) {
	tablas := tablasBase()
	tablas["pruebas|pru"] = [][]string{{"REC1", "L5", "REF9", "3", "900047252", "FEV100"}}
	app := buildTestApp(t, tablas)

	resp := doJSON(t, app, http.MethodPost, "/api/entregas/confirmar", dto.ConfirmarEntregaRequest{
		Factura: "FEV100",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestConfirmar_FacturaRequerida(t *testing.T) {
	app := buildTestApp(t, tablasBase())
	resp := doJSON(t, app, http.MethodPost, "/api/entregas/confirmar", dto.ConfirmarEntregaRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCola_StatsJobsYRemove(t *testing.T) {
	app := buildTestApp(t, tablasBase())

	resp := doJSON(t, app, http.MethodPost, "/api/entregas/confirmar", dto.ConfirmarEntregaRequest{Factura: "FEV500"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	jobID := decodificar[dto.ConfirmarEntregaResponse](t, resp).JobID

	stats := decodificar[dto.QueueStats](t, doJSON(t, app, http.MethodGet, "/api/cola/stats", nil))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Pending)

	jobs := decodificar[[]entity.UploadJob](t, doJSON(t, app, http.MethodGet, "/api/cola/jobs", nil))
	require.Len(t, jobs, 1)
	assert.Equal(t, jobID, jobs[0].ID)

	resp = doJSON(t, app, http.MethodDelete, "/api/cola/jobs/"+jobID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, http.MethodDelete, "/api/cola/jobs/"+jobID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCola_Online(t *testing.T) {
	app := buildTestApp(t, tablasBase())

	resp := doJSON(t, app, http.MethodPost, "/api/cola/online", dto.OnlineRequest{Online: false})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]bool
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out["online"])
}
