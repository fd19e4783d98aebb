package repository

import (
	"context"

	"github.com/pandadash/entregas-api/internal/domain/entity"
)

// ProofUploader define el puerto de salida hacia el endpoint remoto de
// ingestión de pruebas fotográficas. Cualquier fallo (red, timeout, HTTP no
// 2xx, JSON malformado, success=false) se reporta como un único error
// reintentable; la cola no distingue categorías.
type ProofUploader interface {
	Upload(ctx context.Context, job entity.UploadJob) error
}
