package entity

// OrderLine representa una orden de producción/despacho de la hoja de recepciones.
// El lote es la llave de cruce contra las filas del libro contable (Siesa).
type OrderLine struct {
	Documento  string // consecutivo externo, ej. "REC04512"
	Lote       string
	Referencia string
	Proveedor  string
}
