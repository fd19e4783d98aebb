package entity

import "github.com/shopspring/decimal"

// DatoSiesa es una fila del libro contable ya filtrada, agregada y cruzada,
// lista para colgar de una orden en el resultado combinado.
type DatoSiesa struct {
	Factura      string          `json:"factura"`
	Fecha        string          `json:"fecha"` // mm/dd/yyyy
	Cliente      string          `json:"cliente"`
	NIT          string          `json:"nit"`
	Proveedor    string          `json:"proveedor"`
	Lote         string          `json:"lote"`
	Cantidad     decimal.Decimal `json:"cantidad"`
	Valor        decimal.Decimal `json:"valor"`
	Referencia   string          `json:"referencia"` // "" | única | RefVar
	Confirmacion string          `json:"confirmacion"`
}

// CombinedResult es la vista por orden que consume la capa externa de UI.
// El orden de DatosSiesa sigue el orden de iteración del origen, sin ordenar.
type CombinedResult struct {
	Documento  string      `json:"documento"`
	Referencia string      `json:"referencia"`
	Lote       string      `json:"lote"`
	DatosSiesa []DatoSiesa `json:"datosSiesa"`
}
