package entity

import "strings"

// Estados de confirmación de entrega derivados del cruce contra la hoja de
// pruebas fotográficas. Los tres literales los consume la capa de UI tal cual.
const (
	ConfirmacionNinguna          = ""
	ConfirmacionPendienteFactura = "ENTREGADO, PENDIENTE FACTURA"
	ConfirmacionEntregado        = "ENTREGADO"
)

// ProofRecord representa una confirmación fotográfica de entrega ya registrada
// en el origen remoto. Factura puede estar vacía: entregado pero con factura
// pendiente de emisión.
type ProofRecord struct {
	Documento  string
	Lote       string
	Referencia string
	Cantidad   string
	NIT        string
	Factura    string
}

// Llave devuelve la llave compuesta de confirmación del registro.
func (p ProofRecord) Llave() string {
	return LlaveConfirmacion(p.Documento, p.Lote, p.Referencia, p.Cantidad, p.NIT)
}

// LlaveConfirmacion arma la llave compuesta documento_lote_referencia_cantidad_nit.
// Debe construirse idéntica en el lado de escritura (al encolar una prueba) y en
// el de lectura (al cruzar): cada componente se recorta antes de unir. Cualquier
// asimetría produce silenciosamente "sin confirmación".
func LlaveConfirmacion(documento, lote, referencia, cantidad, nit string) string {
	partes := []string{documento, lote, referencia, cantidad, nit}
	for i, p := range partes {
		partes[i] = strings.TrimSpace(p)
	}
	return strings.Join(partes, "_")
}

// Confirmacion deriva el estado de entrega para una llave contra el mapa de
// pruebas: ausente ⇒ sin confirmación; presente con factura vacía ⇒ entregado
// pendiente de factura; presente con factura ⇒ entregado.
func Confirmacion(pruebas map[string]ProofRecord, llave string) string {
	p, ok := pruebas[llave]
	if !ok {
		return ConfirmacionNinguna
	}
	if strings.TrimSpace(p.Factura) == "" {
		return ConfirmacionPendienteFactura
	}
	return ConfirmacionEntregado
}
