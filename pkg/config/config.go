package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pandadash/entregas-api/internal/domain/normalize"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Sheets    SheetsConfig
	Reconcile ReconcileConfig
	Queue     QueueConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env     string // development, staging, production
	Name    string
	Version string // viaja en el campo appVersion del formulario de subida
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SheetsConfig configuración del API tabular remoto y de su caché por origen.
// El TTL de Pruebas es intencionalmente casi cero para que las confirmaciones
// se vean casi en tiempo real.
type SheetsConfig struct {
	BaseURL string
	APIKey  string

	OrdersID string // identificador lógico de la hoja de órdenes
	LedgerID string // identificador lógico del libro contable
	ProofsID string // identificador lógico de la hoja de pruebas

	OrdersRange       string
	LedgerRange       string
	LedgerDetailRange string
	ProofsRange       string

	OrdersTTL time.Duration
	LedgerTTL time.Duration
	ProofsTTL time.Duration

	Timeout time.Duration // timeout por petición
}

// TTLs devuelve el TTL de caché por origen.
func (c SheetsConfig) TTLs() map[string]time.Duration {
	return map[string]time.Duration{
		c.OrdersID: c.OrdersTTL,
		c.LedgerID: c.LedgerTTL,
		c.ProofsID: c.ProofsTTL,
	}
}

// ReconcileConfig parámetros del motor de cruce. La lista de clientes es dato
// de configuración, no código: siete pares nombre→NIT observados en operación.
type ReconcileConfig struct {
	ValidPrefixes    []string
	ExcludedStatuses []string
	Clients          []normalize.Cliente
	Proveedor3       string // proveedor fijo cuando el selector es "3"
	Proveedor5       string // proveedor fijo cuando el selector es "5"

	// IncludeUnconfirmedOrders conserva órdenes sin fila contable confirmable
	// (comportamiento de las variantes secundarias del origen).
	IncludeUnconfirmedOrders bool
	// FuzzyClientMatch activa el cruce laxo por las dos primeras palabras del
	// nombre. Deshabilitado por defecto: sobre-cruza apellidos compartidos.
	FuzzyClientMatch bool
}

// QueueConfig parámetros de la cola de subida con reintentos.
type QueueConfig struct {
	StorePath  string // archivo JSON donde persiste la cola
	UploadURL  string // endpoint remoto de ingestión de pruebas
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int // 0 = ilimitado
	MaxJobs    int // poda al exceder cuota de almacenamiento
	Timeout    time.Duration
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, SHEETS_BASE_URL, QUEUE_STORE_PATH, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:     getString(v, "APP_ENV", "development"),
			Name:    getString(v, "APP_NAME", "entregas-api"),
			Version: getString(v, "APP_VERSION", "2.0.0"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Sheets: SheetsConfig{
			BaseURL:           getString(v, "SHEETS_BASE_URL", ""),
			APIKey:            getString(v, "SHEETS_API_KEY", ""),
			OrdersID:          getString(v, "SHEETS_ORDERS_ID", "ordenes"),
			LedgerID:          getString(v, "SHEETS_LEDGER_ID", "siesa"),
			ProofsID:          getString(v, "SHEETS_PROOFS_ID", "pruebas"),
			OrdersRange:       getString(v, "SHEETS_ORDERS_RANGE", "Ordenes!A2:D"),
			LedgerRange:       getString(v, "SHEETS_LEDGER_RANGE", "Libro!A2:G"),
			LedgerDetailRange: getString(v, "SHEETS_LEDGER_DETAIL_RANGE", "LibroDetalle!A2:D"),
			ProofsRange:       getString(v, "SHEETS_PROOFS_RANGE", "Entregas!A2:F"),
			OrdersTTL:         getDuration(v, "SHEETS_ORDERS_TTL", 5*time.Minute),
			LedgerTTL:         getDuration(v, "SHEETS_LEDGER_TTL", 3*time.Minute),
			ProofsTTL:         getDuration(v, "SHEETS_PROOFS_TTL", 5*time.Second),
			Timeout:           getDuration(v, "SHEETS_TIMEOUT", 10*time.Second),
		},
		Reconcile: ReconcileConfig{
			ValidPrefixes:            getList(v, "RECONCILE_VALID_PREFIXES", []string{"FEV", "FV"}),
			ExcludedStatuses:         getList(v, "RECONCILE_EXCLUDED_STATUSES", []string{"Anuladas", "En elaboración"}),
			Clients:                  getClientes(v, "RECONCILE_CLIENTS", defaultClientes),
			Proveedor3:               getString(v, "RECONCILE_PROVEEDOR_3", "CONFECCIONES PANDA S.A.S"),
			Proveedor5:               getString(v, "RECONCILE_PROVEEDOR_5", "TEXTILES PANDA ZONA FRANCA S.A.S"),
			IncludeUnconfirmedOrders: getBool(v, "RECONCILE_INCLUDE_UNCONFIRMED", false),
			FuzzyClientMatch:         getBool(v, "RECONCILE_FUZZY_CLIENT_MATCH", false),
		},
		Queue: QueueConfig{
			StorePath:  getString(v, "QUEUE_STORE_PATH", "data/upload_queue.json"),
			UploadURL:  getString(v, "QUEUE_UPLOAD_URL", ""),
			BaseDelay:  getDuration(v, "QUEUE_BASE_DELAY", 2*time.Second),
			MaxDelay:   getDuration(v, "QUEUE_MAX_DELAY", 30*time.Second),
			MaxRetries: getInt(v, "QUEUE_MAX_RETRIES", 0),
			MaxJobs:    getInt(v, "QUEUE_MAX_JOBS", 50),
			Timeout:    getDuration(v, "QUEUE_TIMEOUT", 10*time.Second),
		},
	}

	return cfg, nil
}

// defaultClientes es la lista cerrada observada en operación: siete clientes
// con su NIT. Se sobreescribe con RECONCILE_CLIENTS="Nombre=NIT;Nombre=NIT;...".
var defaultClientes = []normalize.Cliente{
	{Nombre: "El Templo De La Moda S.A.S", NIT: "900047252"},
	{Nombre: "Comercializadora Arturo Calle S.A.S", NIT: "890919087"},
	{Nombre: "Almacenes Maximo S.A.S", NIT: "811021363"},
	{Nombre: "Distribuidora De Textiles Y Confecciones S.A.S", NIT: "890921537"},
	{Nombre: "Inversiones La Catorce S.A.S", NIT: "805004035"},
	{Nombre: "Supertiendas Del Oriente S.A.S", NIT: "890399029"},
	{Nombre: "Moda Y Estilo Del Caribe S.A.S", NIT: "802013489"},
}

func getClientes(v *viper.Viper, key string, def []normalize.Cliente) []normalize.Cliente {
	if !v.IsSet(key) {
		return def
	}
	var out []normalize.Cliente
	for _, par := range strings.Split(v.GetString(key), ";") {
		nombre, nitVal, ok := strings.Cut(par, "=")
		nombre, nitVal = strings.TrimSpace(nombre), strings.TrimSpace(nitVal)
		if !ok || nombre == "" || nitVal == "" {
			continue
		}
		out = append(out, normalize.Cliente{Nombre: nombre, NIT: nitVal})
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getList(v *viper.Viper, key string, def []string) []string {
	if !v.IsSet(key) {
		return def
	}
	var out []string
	for _, s := range strings.Split(v.GetString(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if v.IsSet(key) {
		if d := v.GetDuration(key); d > 0 {
			return d
		}
	}
	return def
}
