package repository

import "github.com/pandadash/entregas-api/internal/domain/entity"

// JobStore define el puerto de persistencia de la cola de subida: el arreglo
// completo se escribe tras cada mutación y se recarga al arrancar.
type JobStore interface {
	Save(jobs []entity.UploadJob) error
	Load() ([]entity.UploadJob, error)
}
