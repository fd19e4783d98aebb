// Package sheets implementa el puerto SourceFetcher contra el API tabular
// remoto (hojas de cálculo). Política deliberada: mejor dato viejo que fallo
// duro. Los errores de red se tragan y se responde con el último valor
// cacheado, o tabla vacía si nunca hubo uno, para no bloquear a los consumidores.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pandadash/entregas-api/pkg/logger"
)

// Config parámetros del cliente.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration            // por petición; 10s si es cero
	TTLs       map[string]time.Duration // TTL de caché por origen
	DefaultTTL time.Duration            // para orígenes sin TTL explícito
}

// Client cliente HTTP cacheado del API tabular. Seguro para uso concurrente.
type Client struct {
	httpClient *http.Client
	cfg        Config
	log        *logger.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	rows      [][]string
	fetchedAt time.Time
}

// valuesResponse cuerpo de respuesta del API: {"values": [[...], ...]}.
// values ausente o vacío se trata como tabla vacía.
type valuesResponse struct {
	Values [][]string `json:"values"`
}

// New construye el cliente.
func New(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{},
		cfg:        cfg,
		log:        log,
		cache:      make(map[string]cacheEntry),
	}
}

// Fetch devuelve las filas crudas de (origen, rango). Con caché vigente
// responde de memoria. Ante miss o expiración hace GET con timeout acotado;
// si el GET falla retorna el valor cacheado aunque esté vencido, o tabla
// vacía. Nunca retorna error: la frescura es mejor esfuerzo.
func (c *Client) Fetch(ctx context.Context, sourceID, rango string) [][]string {
	key := sourceID + "|" + rango
	ttl := c.ttl(sourceID)

	c.mu.Lock()
	entry, ok := c.cache[key]
	c.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < ttl {
		return entry.rows
	}

	rows, err := c.fetchRemote(ctx, sourceID, rango)
	if err != nil {
		c.log.Warn().Err(err).
			Str("origen", sourceID).
			Str("rango", rango).
			Bool("cache_vencida", ok).
			Msg("fallo al leer origen tabular; se responde con el último valor conocido")
		if ok {
			return entry.rows
		}
		return [][]string{}
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{rows: rows, fetchedAt: time.Now()}
	c.mu.Unlock()
	return rows
}

// Clear descarta las entradas de caché de un origen.
func (c *Client) Clear(sourceID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.cache {
		if len(key) > len(sourceID) && key[:len(sourceID)+1] == sourceID+"|" {
			delete(c.cache, key)
		}
	}
}

// ClearAll descarta toda la caché.
func (c *Client) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cacheEntry)
}

func (c *Client) ttl(sourceID string) time.Duration {
	if d, ok := c.cfg.TTLs[sourceID]; ok {
		return d
	}
	return c.cfg.DefaultTTL
}

func (c *Client) fetchRemote(ctx context.Context, sourceID, rango string) ([][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	u := fmt.Sprintf("%s/%s/values/%s?key=%s",
		c.cfg.BaseURL, url.PathEscape(sourceID), url.PathEscape(rango), url.QueryEscape(c.cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("sheets: armar petición: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheets: GET %s/%s: %w", sourceID, rango, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("sheets: GET %s/%s: HTTP %d", sourceID, rango, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sheets: leer respuesta: %w", err)
	}

	var vr valuesResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("sheets: decodificar respuesta: %w", err)
	}
	if vr.Values == nil {
		return [][]string{}, nil
	}
	return vr.Values, nil
}
