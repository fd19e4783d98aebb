package dto

// ConfirmarEntregaRequest payload de confirmación de entrega con prueba
// fotográfica. Los campos espejan el formulario que viaja al endpoint de
// ingestión; cantidad y nit van como cadena porque así se arma la llave
// compuesta en ambos lados del cruce.
type ConfirmarEntregaRequest struct {
	Documento  string `json:"documento"`
	Lote       string `json:"lote"`
	Referencia string `json:"referencia"`
	Cantidad   string `json:"cantidad"`
	Factura    string `json:"factura"`
	NIT        string `json:"nit"`
	FotoBase64 string `json:"fotoBase64"`
	FotoNombre string `json:"fotoNombre"`
	FotoTipo   string `json:"fotoTipo"`
}

// ConfirmarEntregaResponse respuesta al encolar una confirmación.
type ConfirmarEntregaResponse struct {
	JobID string `json:"jobId"`
}

// QueueStats métricas de la cola de subida, la vista que el usuario inspecciona
// cuando algo queda atascado reintentando.
type QueueStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Retrying int `json:"retrying"`
}

// FacturaEntregadaResponse respuesta del predicado de entrega por factura.
type FacturaEntregadaResponse struct {
	Factura   string `json:"factura"`
	Entregada bool   `json:"entregada"`
}

// OnlineRequest controla la compuerta de conectividad de la cola.
type OnlineRequest struct {
	Online bool `json:"online"`
}
