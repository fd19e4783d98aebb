package repository

import "context"

// SourceFetcher define el puerto de lectura de los orígenes tabulares
// (hojas remotas). Devuelve filas crudas con forma de celdas; la implementación
// concreta cachea por (origen, rango) y nunca propaga fallos de red: ante
// error retorna el último valor cacheado o tabla vacía.
type SourceFetcher interface {
	Fetch(ctx context.Context, sourceID, rango string) [][]string
	Clear(sourceID string)
	ClearAll()
}
