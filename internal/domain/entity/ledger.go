package entity

import "github.com/shopspring/decimal"

// Estados de documento en el libro contable (Siesa). Las filas anuladas o en
// elaboración se excluyen de cualquier cruce.
const (
	EstadoActiva        = "Activa"
	EstadoAprobado      = "Aprobado"
	EstadoAnuladas      = "Anuladas"
	EstadoEnElaboracion = "En elaboración"
)

// Selectores de operación del libro: deciden cuál de las dos columnas de lote
// aplica y a cuál de los dos proveedores fijos pertenece la fila. Es una rama
// cerrada de dos vías; cualquier otro valor deja selección y proveedor vacíos.
const (
	SelectorOp3 = "3"
	SelectorOp5 = "5"
)

// RefVar es el centinela que indica que un grupo de detalle colapsó más de
// una fila de referencia y debe revisarse manualmente. La capa de UI lo
// consume tal cual, así que el literal no puede cambiar.
const RefVar = "RefVar"

// LedgerEntry representa una fila de cabecera del libro contable.
type LedgerEntry struct {
	Estado     string
	Factura    string // debe iniciar con un prefijo válido (ej. "FEV") para entrar al cruce
	Fecha      string // dd/mm/yyyy en origen; se normaliza a mm/dd/yyyy
	ClienteRaw string
	Selector   string // SelectorOp3 | SelectorOp5
	LoteOp3    string // columna de lote usada cuando Selector == "3"
	LoteOp5    string // columna de lote usada cuando Selector == "5"
}

// LedgerDetail representa una fila de detalle del libro, agrupable por llave.
type LedgerDetail struct {
	Llave      string // primera columna del rango de detalle
	Cantidad   decimal.Decimal
	Referencia string
	Valor      decimal.Decimal
}

// DetalleAgregado es el resultado de plegar los detalles que comparten llave.
type DetalleAgregado struct {
	SumaCantidad decimal.Decimal
	SumaValor    decimal.Decimal
	Referencia   string // "" | referencia única | RefVar
	Conteo       int
}

// ReferenciaAgregada deriva el campo de referencia del pliegue: vacío sin
// detalles, el único valor si hay exactamente uno, RefVar si hay varios.
func ReferenciaAgregada(valores []string) string {
	switch len(valores) {
	case 0:
		return ""
	case 1:
		return valores[0]
	default:
		return RefVar
	}
}
