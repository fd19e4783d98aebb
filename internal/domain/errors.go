package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound    = errors.New("recurso no encontrado")
	ErrDuplicate   = errors.New("la factura ya está en cola")
	ErrAlreadyDone = errors.New("entrega ya confirmada")
)
