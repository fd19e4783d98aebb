// Package normalize agrupa las funciones puras de normalización de filas que
// llegan de los orígenes tabulares. Son totales: nunca retornan error ni hacen
// panic; la ausencia de un cruce se representa con el valor vacío.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Cliente es una entrada de la lista cerrada de clientes conocidos: nombre
// canónico y NIT. No es un directorio general, es una lista de siete pares.
type Cliente struct {
	Nombre string
	NIT    string
}

var (
	reSufijoSAS = regexp.MustCompile(`(?i)\bS[\s.,]*A[\s.,]*S\b[.,]*`)
	reEspacios  = regexp.MustCompile(`\s+`)
)

// ClientName normaliza un nombre de cliente de texto libre: colapsa las
// variantes del sufijo societario (SAS, S.A.S., S A S, ...) al token canónico
// S.A.S, colapsa corridas de espacios internos y recorta extremos.
// La entrada vacía se retorna sin tocar, no se coacciona.
func ClientName(s string) string {
	if s == "" {
		return s
	}
	s = reSufijoSAS.ReplaceAllString(s, "S.A.S")
	s = reEspacios.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Date convierte dd/mm/yyyy en mm/dd/yyyy. Cualquier entrada que no parta en
// exactamente tres componentes con "/" se retorna sin cambios, no es error.
func Date(s string) string {
	partes := strings.Split(s, "/")
	if len(partes) != 3 {
		return s
	}
	return partes[1] + "/" + partes[0] + "/" + partes[2]
}

// HasValidPrefix verifica, sensible a mayúsculas, que el código inicie con
// alguno de los prefijos permitidos. Código vacío o lista vacía dan false.
func HasValidPrefix(codigo string, prefijos []string) bool {
	if codigo == "" {
		return false
	}
	for _, p := range prefijos {
		if p != "" && strings.HasPrefix(codigo, p) {
			return true
		}
	}
	return false
}

// Number interpreta una celda numérica con codificación heterogénea:
// "1234", "1.234,56" (formato local), "1,234.56", "$ 1234". Todo fallo de
// parseo coacciona a cero, nunca a error: las sumas aguas abajo lo exigen.
func Number(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, "$", ""))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Zero
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		// el separador que aparece de último es el decimal
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Matcher decide si un nombre normalizado corresponde a un cliente de la lista.
type Matcher func(nombre, candidato string) bool

// ExactMatch exige igualdad exacta tras normalización. Es la estrategia por
// defecto.
func ExactMatch(nombre, candidato string) bool {
	return nombre == candidato
}

// FirstTwoWordsMatch replica la estrategia laxa observada en una de las
// variantes del origen: compara solo las dos primeras palabras, plegando
// acentos y mayúsculas. Sobre-cruza clientes que comparten apellido, por eso
// viene deshabilitada por defecto y se activa explícitamente por configuración.
func FirstTwoWordsMatch(nombre, candidato string) bool {
	return primerasDosPalabras(nombre) == primerasDosPalabras(candidato)
}

var quitaAcentos = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func primerasDosPalabras(s string) string {
	plano, _, err := transform.String(quitaAcentos, s)
	if err != nil {
		plano = s
	}
	palabras := strings.Fields(strings.ToLower(plano))
	if len(palabras) > 2 {
		palabras = palabras[:2]
	}
	return strings.Join(palabras, " ")
}

// LookupNIT busca linealmente el NIT del nombre ya normalizado dentro de la
// lista cerrada, usando la estrategia de cruce indicada. Ausente ⇒ cadena
// vacía, que aguas abajo significa "excluir la fila".
func LookupNIT(nombreNormalizado string, clientes []Cliente, match Matcher) string {
	if match == nil {
		match = ExactMatch
	}
	for _, c := range clientes {
		if match(nombreNormalizado, ClientName(c.Nombre)) {
			return c.NIT
		}
	}
	return ""
}
