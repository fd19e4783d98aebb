// Package queue implementa la cola persistida de subida de pruebas
// fotográficas: FIFO, a lo sumo un trabajo en vuelo, reintentos con backoff
// exponencial y política "nunca perder una captura": ninguna categoría de
// error es fatal para la cola.
package queue

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pandadash/entregas-api/internal/application/dto"
	"github.com/pandadash/entregas-api/internal/domain"
	"github.com/pandadash/entregas-api/internal/domain/entity"
	"github.com/pandadash/entregas-api/internal/domain/repository"
	"github.com/pandadash/entregas-api/pkg/logger"
)

// camposRequeridos del payload de un trabajo. Su ausencia se registra pero el
// trabajo se encola igual: una captura incompleta reintentable vale más que
// una captura perdida.
var camposRequeridos = []string{
	"documento", "lote", "referencia", "cantidad", "factura", "nit", "fotoBase64",
}

// Config parámetros de la cola.
type Config struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int // 0 = reintentos ilimitados (política del origen)
	MaxJobs    int // poda al fallar la persistencia; 50 si es cero
}

// ConfirmedFn es el predicado externo "¿la factura ya quedó entregada?". Se
// consulta antes de cada intento: un trabajo cuya entrega ya convergió por
// otro canal se descarta sin tocar la red.
type ConfirmedFn func(ctx context.Context, factura string) bool

// Queue la cola de subida. Todo acceso al arreglo de trabajos pasa por el
// mutex: el origen corría en un solo hilo de evento, aquí los handlers HTTP y
// el bucle de drenado son concurrentes.
type Queue struct {
	cfg       Config
	store     repository.JobStore
	uploader  repository.ProofUploader
	confirmed ConfirmedFn
	log       *logger.Logger

	mu   sync.Mutex
	jobs []entity.UploadJob

	online atomic.Bool
	wake   chan struct{}
}

// New construye la cola y recarga los trabajos persistidos. Arranca en línea.
func New(cfg Config, store repository.JobStore, up repository.ProofUploader, confirmed ConfirmedFn, log *logger.Logger) (*Queue, error) {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = 50
	}

	jobs, err := store.Load()
	if err != nil {
		return nil, err
	}
	q := &Queue{
		cfg:       cfg,
		store:     store,
		uploader:  up,
		confirmed: confirmed,
		log:       log,
		jobs:      jobs,
		wake:      make(chan struct{}, 1),
	}
	q.online.Store(true)
	if len(jobs) > 0 {
		log.Info().Int("trabajos", len(jobs)).Msg("cola de subida recargada desde disco")
	}
	return q, nil
}

// Start lanza el bucle de drenado; retorna cuando el contexto se cancela.
func (q *Queue) Start(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if !q.online.Load() {
			// fuera de línea: el bucle cede y se re-entra al reconectar o encolar
			if !q.esperar(ctx, 0) {
				return
			}
			continue
		}

		job, espera, ok := q.siguiente()
		if !ok {
			if !q.esperar(ctx, 0) {
				return
			}
			continue
		}
		if espera > 0 {
			if !q.esperar(ctx, espera) {
				return
			}
			continue
		}
		q.procesar(ctx, job)
	}
}

// esperar bloquea hasta despertar, vencer el plazo (si d > 0) o cancelar el
// contexto. Retorna false solo ante cancelación.
func (q *Queue) esperar(ctx context.Context, d time.Duration) bool {
	var plazo <-chan time.Time
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		plazo = t.C
	}
	select {
	case <-ctx.Done():
		return false
	case <-q.wake:
		return true
	case <-plazo:
		return true
	}
}

func (q *Queue) despertar() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// AddJob encola una confirmación con el contrato histórico del origen:
// devuelve (jobID, true) al encolar y ("", false) ante rechazo, sin distinguir
// la causa. Enqueue es la variante con error tipado.
func (q *Queue) AddJob(ctx context.Context, data map[string]string) (string, bool) {
	id, err := q.Enqueue(ctx, data)
	return id, err == nil
}

// Enqueue encola una confirmación. Rechaza con ErrDuplicate si la misma
// factura ya está en vuelo y con ErrAlreadyDone si la entrega ya quedó
// confirmada por otro canal.
func (q *Queue) Enqueue(ctx context.Context, data map[string]string) (string, error) {
	factura := data["factura"]

	q.mu.Lock()
	for _, j := range q.jobs {
		if j.Factura() == factura {
			q.mu.Unlock()
			q.log.Debug().Str("factura", factura).Msg("encolar rechazado: factura ya en vuelo")
			return "", domain.ErrDuplicate
		}
	}
	q.mu.Unlock()

	if q.confirmed != nil && q.confirmed(ctx, factura) {
		q.log.Debug().Str("factura", factura).Msg("encolar rechazado: entrega ya confirmada")
		return "", domain.ErrAlreadyDone
	}

	for _, campo := range camposRequeridos {
		if data[campo] == "" {
			// se registra pero se encola igual: nunca perder una captura
			q.log.Warn().Str("campo", campo).Str("factura", factura).
				Msg("confirmación con campo requerido vacío")
		}
	}

	job := entity.UploadJob{
		ID:        uuid.New().String(),
		Type:      entity.JobTypePhoto,
		Data:      data,
		Status:    entity.JobPending,
		Timestamp: time.Now(),
	}

	q.mu.Lock()
	// re-verificación bajo el mismo lock del append: el chequeo inicial soltó
	// el mutex durante el predicado externo
	for _, j := range q.jobs {
		if j.Factura() == factura {
			q.mu.Unlock()
			return "", domain.ErrDuplicate
		}
	}
	q.jobs = append(q.jobs, job)
	q.persistir()
	q.mu.Unlock()

	q.log.Info().Str("job", job.ID).Str("factura", factura).Msg("confirmación encolada")
	q.despertar()
	return job.ID, nil
}

// RemoveJob remueve un trabajo por ID; es la válvula de escape manual para un
// trabajo envenenado que reintentaría por siempre.
func (q *Queue) RemoveJob(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, j := range q.jobs {
		if j.ID == id {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			q.persistir()
			q.log.Info().Str("job", id).Msg("trabajo removido de la cola")
			return nil
		}
	}
	return domain.ErrNotFound
}

// RetryAll limpia los relojes de backoff para que todo quede elegible ya.
func (q *Queue) RetryAll() {
	q.mu.Lock()
	for i := range q.jobs {
		q.jobs[i].Status = entity.JobPending
		q.jobs[i].LastAttempt = time.Time{}
	}
	q.persistir()
	q.mu.Unlock()
	q.despertar()
}

// SetOnline mueve la compuerta de conectividad; al volver en línea el bucle
// se re-entra de inmediato.
func (q *Queue) SetOnline(online bool) {
	q.online.Store(online)
	if online {
		q.despertar()
	}
}

// Online estado actual de la compuerta.
func (q *Queue) Online() bool {
	return q.online.Load()
}

// Stats métricas para la vista de inspección.
func (q *Queue) Stats() dto.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := dto.QueueStats{Total: len(q.jobs)}
	for _, j := range q.jobs {
		switch j.Status {
		case entity.JobRetrying:
			s.Retrying++
		default:
			s.Pending++
		}
	}
	return s
}

// Jobs copia instantánea de la cola.
func (q *Queue) Jobs() []entity.UploadJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]entity.UploadJob, len(q.jobs))
	copy(out, q.jobs)
	return out
}

// siguiente devuelve la cabeza FIFO y cuánto falta para que sea elegible.
// Un trabajo que falló pasa a la cola, así que la cabeza es siempre el
// encolado más antiguo aún no reintentado.
func (q *Queue) siguiente() (entity.UploadJob, time.Duration, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return entity.UploadJob{}, 0, false
	}
	job := q.jobs[0]
	if job.Retries == 0 || job.LastAttempt.IsZero() {
		return job, 0, true
	}
	elegible := job.LastAttempt.Add(conJitter(RetryDelay(job.Retries, q.cfg.BaseDelay, q.cfg.MaxDelay)))
	return job, time.Until(elegible), true
}

// procesar ejecuta un intento del trabajo: verificación de irrelevancia,
// subida, y según el resultado remoción o reencolado a la cola con backoff.
func (q *Queue) procesar(ctx context.Context, job entity.UploadJob) {
	// si la entrega ya convergió por otro canal, el trabajo es irrelevante y
	// se descarta sin intento de red
	if q.confirmed != nil && q.confirmed(ctx, job.Factura()) {
		q.remover(job.ID)
		q.log.Info().Str("job", job.ID).Str("factura", job.Factura()).
			Msg("trabajo descartado: entrega ya confirmada externamente")
		return
	}

	err := q.uploader.Upload(ctx, job)
	if err == nil {
		q.remover(job.ID)
		q.log.Info().Str("job", job.ID).Str("factura", job.Factura()).
			Int("intentos", job.Retries+1).Msg("prueba subida con éxito")
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.jobs {
		if q.jobs[i].ID != job.ID {
			continue
		}
		j := q.jobs[i]
		j.Retries++
		j.Status = entity.JobRetrying
		j.LastAttempt = time.Now()
		j.LastError = err.Error()

		if q.cfg.MaxRetries > 0 && j.Retries >= q.cfg.MaxRetries {
			// política acotada: el trabajo se descarta tras agotar intentos
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			q.persistir()
			q.log.Error().Str("job", j.ID).Str("factura", j.Factura()).
				Int("intentos", j.Retries).Str("ultimo_error", j.LastError).
				Msg("trabajo descartado tras agotar reintentos")
			return
		}

		// al fallar se mueve a la cola para no bloquear a los demás pendientes
		q.jobs = append(append(q.jobs[:i], q.jobs[i+1:]...), j)
		q.persistir()
		q.log.Warn().Str("job", j.ID).Str("factura", j.Factura()).
			Int("reintentos", j.Retries).Err(err).Msg("subida fallida, reencolado")
		return
	}
	// removido por fuera (RemoveJob) mientras estaba en vuelo: nada que hacer
}

func (q *Queue) remover(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, j := range q.jobs {
		if j.ID == id {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			q.persistir()
			return
		}
	}
}

// persistir vuelca la cola tras cada mutación. Si la escritura falla (cuota),
// poda los más viejos al tope configurado y reintenta una vez en lugar de
// fallar el encolado. Se invoca con el mutex tomado.
func (q *Queue) persistir() {
	if err := q.store.Save(q.jobs); err != nil {
		q.log.Warn().Err(err).Int("trabajos", len(q.jobs)).Msg("persistencia de la cola fallida")
		if len(q.jobs) > q.cfg.MaxJobs {
			q.jobs = q.jobs[len(q.jobs)-q.cfg.MaxJobs:]
			if err := q.store.Save(q.jobs); err != nil {
				q.log.Error().Err(err).Msg("persistencia fallida incluso tras podar")
				return
			}
			q.log.Warn().Int("conservados", q.cfg.MaxJobs).Msg("cola podada a los más recientes")
		}
	}
}

// RetryDelay calcula el backoff determinista: min(base * 2^(retries-1), max).
// Con retries <= 0 no hay espera.
func RetryDelay(retries int, base, max time.Duration) time.Duration {
	if retries <= 0 {
		return 0
	}
	d := base
	for i := 1; i < retries; i++ {
		d *= 2
		if d >= max || d <= 0 { // tope y guarda de desborde
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// conJitter agrega hasta 10% de ruido para desincronizar clientes.
func conJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(int64(d)/10+1))
}
