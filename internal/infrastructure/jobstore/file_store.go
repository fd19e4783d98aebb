// Package jobstore persiste la cola de subida como un arreglo JSON en un
// archivo local, el mismo formato que el almacenamiento del origen: un arreglo
// de trabajos bajo una sola llave de almacenamiento.
package jobstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pandadash/entregas-api/internal/domain/entity"
)

// FileStore implementa el puerto JobStore sobre un archivo JSON.
type FileStore struct {
	path string
}

// NewFileStore construye el store y garantiza el directorio contenedor.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("jobstore: crear directorio %s: %w", dir, err)
		}
	}
	return &FileStore{path: path}, nil
}

// Save escribe el arreglo completo de trabajos. La escritura es atómica
// (archivo temporal + rename) para no dejar una cola a medias si el proceso
// muere durante el volcado.
func (s *FileStore) Save(jobs []entity.UploadJob) error {
	if jobs == nil {
		jobs = []entity.UploadJob{}
	}
	data, err := json.Marshal(jobs)
	if err != nil {
		return fmt.Errorf("jobstore: serializar cola: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("jobstore: escribir %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("jobstore: renombrar %s: %w", tmp, err)
	}
	return nil
}

// Load recarga la cola persistida. Archivo ausente equivale a cola vacía;
// archivo corrupto también, con el dato original preservado a un lado para
// inspección en vez de bloquear el arranque.
func (s *FileStore) Load() ([]entity.UploadJob, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []entity.UploadJob{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jobstore: leer %s: %w", s.path, err)
	}

	var jobs []entity.UploadJob
	if err := json.Unmarshal(data, &jobs); err != nil {
		_ = os.Rename(s.path, s.path+".corrupt")
		return []entity.UploadJob{}, nil
	}
	return jobs, nil
}
