package entity

import "time"

// Estados de un trabajo de subida. No existe estado terminal de fallo: con la
// política ilimitada un trabajo solo sale de la cola al subir con éxito, al
// volverse irrelevante (ya confirmado por otro canal) o al removerse a mano.
const (
	JobPending  = "pending"
	JobRetrying = "retrying"
)

// JobTypePhoto es el único tipo de trabajo soportado: prueba fotográfica de entrega.
const JobTypePhoto = "photo"

// UploadJob es una unidad de trabajo pendiente de la cola de subida.
// Data transporta el payload del formulario (documento, lote, referencia,
// cantidad, factura, nit, fotoBase64, fotoNombre, fotoTipo).
type UploadJob struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Data        map[string]string `json:"data"`
	Status      string            `json:"status"`
	Retries     int               `json:"retries"`
	Timestamp   time.Time         `json:"timestamp"`
	LastAttempt time.Time         `json:"lastAttempt,omitempty"`
	LastError   string            `json:"lastError,omitempty"`
}

// Factura devuelve la llave de negocio del trabajo, usada para suprimir
// duplicados en la cola.
func (j UploadJob) Factura() string {
	return j.Data["factura"]
}
