package reconcile_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandadash/entregas-api/internal/application/reconcile"
	"github.com/pandadash/entregas-api/internal/domain/entity"
	"github.com/pandadash/entregas-api/internal/domain/normalize"
	"github.com/pandadash/entregas-api/pkg/logger"
)

// fakeFetcher sirve tablas fijas por (origen, rango) y cuenta las lecturas.
// El motor lee los rangos en paralelo, así que el contador va con mutex.
type fakeFetcher struct {
	mu       sync.Mutex
	tablas   map[string][][]string
	lecturas []string
}

func (f *fakeFetcher) Fetch(_ context.Context, sourceID, rango string) [][]string {
	f.mu.Lock()
	f.lecturas = append(f.lecturas, sourceID+"|"+rango)
	f.mu.Unlock()
	if t, ok := f.tablas[sourceID+"|"+rango]; ok {
		return t
	}
	return [][]string{}
}

func (f *fakeFetcher) Clear(string) {}
func (f *fakeFetcher) ClearAll()    {}

func configDePrueba() reconcile.Config {
	return reconcile.Config{
		OrdersID:          "ordenes",
		OrdersRange:       "ord",
		LedgerID:          "siesa",
		LedgerRange:       "lib",
		LedgerDetailRange: "det",
		ProofsID:          "pruebas",
		ProofsRange:       "pru",
		ValidPrefixes:     []string{"FEV", "FV"},
		ExcludedStatuses:  []string{entity.EstadoAnuladas, entity.EstadoEnElaboracion},
		Clients: []normalize.Cliente{
			{Nombre: "El Templo De La Moda S.A.S", NIT: "900047252"},
			{Nombre: "Almacenes Maximo S.A.S", NIT: "811021363"},
		},
		Proveedor3: "CONFECCIONES PANDA S.A.S",
		Proveedor5: "TEXTILES PANDA ZONA FRANCA S.A.S",
	}
}

func motor(t *testing.T, tablas map[string][][]string, cfg reconcile.Config) *reconcile.Engine {
	t.Helper()
	return reconcile.NewEngine(&fakeFetcher{tablas: tablas}, cfg, logger.Nop())
}

// Escenario extremo a extremo: una orden con lote L5, una fila contable activa
// FEV de cliente en lista, sin pruebas registradas. Debe salir exactamente una
// entrada combinada con confirmación vacía.
func TestReconcile_SinPruebasConfirmacionVacia(t *testing.T) {
	tablas := map[string][][]string{
		"ordenes|ord": {{"REC1", "L5", "REF9", "CONF XYZ"}},
		"siesa|lib":   {{"Activa", "FEV100", "29/11/2023", "El Templo De La Moda S.A.S", "3", "L5", ""}},
		"siesa|det":   {{"FEV100", "3", "REF9", "45000"}},
		"pruebas|pru": {},
	}
	res := motor(t, tablas, configDePrueba()).Reconcile(context.Background())

	require.Len(t, res, 1)
	assert.Equal(t, "REC1", res[0].Documento)
	assert.Equal(t, "L5", res[0].Lote)
	require.Len(t, res[0].DatosSiesa, 1)

	dato := res[0].DatosSiesa[0]
	assert.Equal(t, entity.ConfirmacionNinguna, dato.Confirmacion)
	assert.Equal(t, "FEV100", dato.Factura)
	assert.Equal(t, "11/29/2023", dato.Fecha, "fecha normalizada a mm/dd/yyyy")
	assert.Equal(t, "900047252", dato.NIT)
	assert.Equal(t, "CONFECCIONES PANDA S.A.S", dato.Proveedor)
	assert.Equal(t, "3", dato.Cantidad.String())
	assert.Equal(t, "45000", dato.Valor.String())
	assert.Equal(t, "REF9", dato.Referencia)
}

func TestReconcile_ConfirmacionesDesdePruebas(t *testing.T) {
	tablas := map[string][][]string{
		"ordenes|ord": {{"REC1", "L5", "REF9", ""}},
		"siesa|lib":   {{"Activa", "FEV100", "29/11/2023", "El Templo De La Moda S.A.S", "3", "L5", ""}},
		"siesa|det":   {{"FEV100", "3", "REF9", "45000"}},
		// llave compuesta REC1_L5_REF9_3_900047252, factura vacía
		"pruebas|pru": {{"REC1", "L5", "REF9", "3", "900047252", ""}},
	}
	res := motor(t, tablas, configDePrueba()).Reconcile(context.Background())
	require.Len(t, res, 1)
	require.Len(t, res[0].DatosSiesa, 1)
	assert.Equal(t, entity.ConfirmacionPendienteFactura, res[0].DatosSiesa[0].Confirmacion)

	// la misma llave con factura registrada pasa a ENTREGADO
	tablas["pruebas|pru"] = [][]string{{"REC1", "L5", "REF9", "3", "900047252", "FEV001"}}
	res = motor(t, tablas, configDePrueba()).Reconcile(context.Background())
	require.Len(t, res, 1)
	assert.Equal(t, entity.ConfirmacionEntregado, res[0].DatosSiesa[0].Confirmacion)
}

// Los componentes de la llave se recortan en ambos lados: una prueba con
// espacios accidentales debe cruzar igual.
func TestReconcile_LlaveSimetricaConEspacios(t *testing.T) {
	tablas := map[string][][]string{
		"ordenes|ord": {{"REC1", "L5", "REF9", ""}},
		"siesa|lib":   {{"Activa", "FEV100", "29/11/2023", "El Templo De La Moda S.A.S", "3", "L5", ""}},
		"siesa|det":   {{"FEV100", "3", "REF9", "45000"}},
		"pruebas|pru": {{" REC1", "L5 ", " REF9 ", " 3", " 900047252 ", "FEV001"}},
	}
	res := motor(t, tablas, configDePrueba()).Reconcile(context.Background())
	require.Len(t, res, 1)
	assert.Equal(t, entity.ConfirmacionEntregado, res[0].DatosSiesa[0].Confirmacion)
}

// Las filas anuladas o en elaboración jamás llegan a la salida, sin importar
// el resto de sus campos.
func TestReconcile_EstadosExcluidos(t *testing.T) {
	tablas := map[string][][]string{
		"ordenes|ord": {{"REC1", "L5", "REF9", ""}},
		"siesa|lib": {
			{"Anuladas", "FEV100", "29/11/2023", "El Templo De La Moda S.A.S", "3", "L5", ""},
			{"En elaboración", "FEV101", "29/11/2023", "El Templo De La Moda S.A.S", "3", "L5", ""},
		},
		"siesa|det":   {},
		"pruebas|pru": {},
	}
	res := motor(t, tablas, configDePrueba()).Reconcile(context.Background())
	assert.Empty(t, res)
}

func TestReconcile_FiltrosDePrefijoYCliente(t *testing.T) {
	tablas := map[string][][]string{
		"ordenes|ord": {{"REC1", "L5", "REF9", ""}},
		"siesa|lib": {
			// prefijo inválido
			{"Activa", "REM900", "29/11/2023", "El Templo De La Moda S.A.S", "3", "L5", ""},
			// cliente fuera de la lista cerrada
			{"Activa", "FEV200", "29/11/2023", "Cliente Fantasma S.A.S", "3", "L5", ""},
		},
		"siesa|det":   {},
		"pruebas|pru": {},
	}
	res := motor(t, tablas, configDePrueba()).Reconcile(context.Background())
	assert.Empty(t, res)
}

// Varios detalles con referencias distintas colapsan al centinela RefVar y las
// cantidades se suman; los valores no numéricos suman cero.
func TestReconcile_AgregadoRefVar(t *testing.T) {
	tablas := map[string][][]string{
		"ordenes|ord": {{"REC1", "L5", "REF9", ""}},
		"siesa|lib":   {{"Activa", "FEV100", "29/11/2023", "El Templo De La Moda S.A.S", "3", "L5", ""}},
		"siesa|det": {
			{"FEV100", "2", "REF9", "30000"},
			{"FEV100", "1", "REF10", "no-numérico"},
		},
		"pruebas|pru": {},
	}
	res := motor(t, tablas, configDePrueba()).Reconcile(context.Background())
	require.Len(t, res, 1)
	dato := res[0].DatosSiesa[0]
	assert.Equal(t, entity.RefVar, dato.Referencia)
	assert.Equal(t, "3", dato.Cantidad.String())
	assert.Equal(t, "30000", dato.Valor.String())
}

// La rama del selector es cerrada de dos vías: "5" toma la otra columna de
// lote y el otro proveedor; cualquier otro valor deja selección vacía y la
// fila no cruza con ninguna orden.
func TestReconcile_RamaDelSelector(t *testing.T) {
	cfg := configDePrueba()
	tablas := map[string][][]string{
		"ordenes|ord": {{"REC1", "L5", "REF9", ""}},
		"siesa|lib": {
			{"Activa", "FEV100", "29/11/2023", "El Templo De La Moda S.A.S", "5", "OTRO", "L5"},
			{"Activa", "FEV101", "29/11/2023", "El Templo De La Moda S.A.S", "9", "L5", "L5"},
		},
		"siesa|det":   {},
		"pruebas|pru": {},
	}
	res := motor(t, tablas, cfg).Reconcile(context.Background())
	require.Len(t, res, 1)
	require.Len(t, res[0].DatosSiesa, 1, "el selector desconocido no debe cruzar")
	assert.Equal(t, "FEV100", res[0].DatosSiesa[0].Factura)
	assert.Equal(t, cfg.Proveedor5, res[0].DatosSiesa[0].Proveedor)
}

func TestReconcile_OrdenSinCruceSegunBandera(t *testing.T) {
	tablas := map[string][][]string{
		"ordenes|ord": {{"REC1", "L99", "REF9", ""}},
		"siesa|lib":   {},
		"siesa|det":   {},
		"pruebas|pru": {},
	}
	eng := motor(t, tablas, configDePrueba())

	// variante principal: la orden sin fila contable se descarta
	assert.Empty(t, eng.Reconcile(context.Background()))

	// variantes secundarias: se conserva con datos vacíos
	res := eng.ReconcileWith(context.Background(), reconcile.Options{IncludeUnconfirmedOrders: true})
	require.Len(t, res, 1)
	assert.Equal(t, "REC1", res[0].Documento)
	assert.Empty(t, res[0].DatosSiesa)
}

// El orden de salida sigue el orden de iteración del rango de órdenes.
func TestReconcile_ConservaOrdenDeEntrada(t *testing.T) {
	tablas := map[string][][]string{
		"ordenes|ord": {
			{"REC3", "L3", "", ""},
			{"REC1", "L1", "", ""},
			{"REC2", "L2", "", ""},
		},
		"siesa|lib": {
			{"Activa", "FEV1", "01/02/2024", "El Templo De La Moda S.A.S", "3", "L1", ""},
			{"Activa", "FEV2", "01/02/2024", "El Templo De La Moda S.A.S", "3", "L2", ""},
			{"Activa", "FEV3", "01/02/2024", "El Templo De La Moda S.A.S", "3", "L3", ""},
		},
		"siesa|det":   {},
		"pruebas|pru": {},
	}
	res := motor(t, tablas, configDePrueba()).Reconcile(context.Background())
	require.Len(t, res, 3)
	assert.Equal(t, "REC3", res[0].Documento)
	assert.Equal(t, "REC1", res[1].Documento)
	assert.Equal(t, "REC2", res[2].Documento)
}

func TestReconcile_CruceLaxoDeClientes(t *testing.T) {
	cfg := configDePrueba()
	cfg.FuzzyClientMatch = true
	tablas := map[string][][]string{
		"ordenes|ord": {{"REC1", "L5", "REF9", ""}},
		// el nombre difiere tras las dos primeras palabras
		"siesa|lib":   {{"Activa", "FEV100", "29/11/2023", "El Templo Boutique Ltda", "3", "L5", ""}},
		"siesa|det":   {},
		"pruebas|pru": {},
	}
	res := motor(t, tablas, cfg).Reconcile(context.Background())
	require.Len(t, res, 1)
	assert.Equal(t, "900047252", res[0].DatosSiesa[0].NIT)
}

func TestIsFacturaEntregada(t *testing.T) {
	tablas := map[string][][]string{
		"pruebas|pru": {
			{"REC1", "L5", "REF9", "3", "900047252", "FEV100"},
			{"REC2", "L6", "REF1", "1", "811021363", ""},
		},
	}
	eng := motor(t, tablas, configDePrueba())

	assert.True(t, eng.IsFacturaEntregada(context.Background(), "FEV100"))
	assert.True(t, eng.IsFacturaEntregada(context.Background(), " FEV100 "))
	assert.False(t, eng.IsFacturaEntregada(context.Background(), "FEV999"))
	assert.False(t, eng.IsFacturaEntregada(context.Background(), ""))
}
