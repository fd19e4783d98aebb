// Package uploader implementa el puerto ProofUploader contra el endpoint
// remoto de ingestión: POST multipart/form-data, respuesta JSON
// {success, message}. Para la cola todo fallo es uno solo y reintentable.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/pandadash/entregas-api/internal/domain/entity"
)

// Config parámetros del uploader.
type Config struct {
	URL        string
	Timeout    time.Duration // 10s si es cero
	AppVersion string        // viaja en el campo appVersion del formulario
}

// MultipartUploader envía pruebas fotográficas al endpoint de ingestión.
type MultipartUploader struct {
	httpClient *http.Client
	cfg        Config
}

// uploadResponse respuesta esperada del endpoint.
type uploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// New construye el uploader.
func New(cfg Config) *MultipartUploader {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &MultipartUploader{
		httpClient: &http.Client{},
		cfg:        cfg,
	}
}

// Upload envía el trabajo como formulario multipart. Los campos del payload
// del trabajo van tal cual; timestamp, uploadAttempt, jobId y appVersion se
// agregan aquí para que el lado servidor pueda deduplicar y auditar.
func (u *MultipartUploader) Upload(ctx context.Context, job entity.UploadJob) error {
	ctx, cancel := context.WithTimeout(ctx, u.cfg.Timeout)
	defer cancel()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for campo, valor := range job.Data {
		if err := w.WriteField(campo, valor); err != nil {
			return fmt.Errorf("uploader: campo %s: %w", campo, err)
		}
	}
	extras := map[string]string{
		"timestamp":     job.Timestamp.UTC().Format(time.RFC3339),
		"uploadAttempt": strconv.Itoa(job.Retries + 1),
		"jobId":         job.ID,
		"appVersion":    u.cfg.AppVersion,
	}
	for campo, valor := range extras {
		if err := w.WriteField(campo, valor); err != nil {
			return fmt.Errorf("uploader: campo %s: %w", campo, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("uploader: cerrar formulario: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.cfg.URL, &buf)
	if err != nil {
		return fmt.Errorf("uploader: armar petición: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploader: POST: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("uploader: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("uploader: leer respuesta: %w", err)
	}
	var ur uploadResponse
	if err := json.Unmarshal(body, &ur); err != nil {
		return fmt.Errorf("uploader: respuesta malformada: %w", err)
	}
	if !ur.Success {
		return fmt.Errorf("uploader: el servidor rechazó la subida: %s", ur.Message)
	}
	return nil
}
