// Package nit implementa el dígito de verificación del NIT colombiano
// (módulo 11, Orden Administrativa 4 de 1989, DIAN). Aquí el NIT es el
// desambiguador de clientes en la llave compuesta de confirmación, así que
// validar su forma al borde evita llaves que nunca cruzarán.
package nit

import (
	"fmt"
	"unicode"
)

// pesos aplicados a los 9 primeros dígitos del NIT, de izquierda a derecha.
var pesos = [9]int{41, 37, 29, 23, 19, 17, 13, 7, 3}

// ComputeVerificationDigit calcula el dígito de verificación para los 9
// primeros dígitos del NIT. Acepta "123456789", "123.456.789" o "123456789-1".
func ComputeVerificationDigit(taxID string) (byte, error) {
	digitos := soloDigitos(taxID)
	if len(digitos) < 9 {
		return 0, fmt.Errorf("nit: se requieren al menos 9 dígitos, se encontraron %d", len(digitos))
	}
	var suma int
	for i, d := range digitos[:9] {
		suma += int(d-'0') * pesos[i]
	}
	resto := suma % 11
	if resto == 0 || resto == 1 {
		return byte('0' + resto), nil
	}
	return byte('0' + (11 - resto)), nil
}

// Validate verifica que un NIT de 10 dígitos (con o sin puntos/guiones) tenga
// dígito de verificación correcto. Un NIT de 9 dígitos se acepta sin verificar,
// ya que los orígenes tabulares lo registran sin dígito.
func Validate(taxID string) error {
	digitos := soloDigitos(taxID)
	switch len(digitos) {
	case 9:
		return nil
	case 10:
		esperado, err := ComputeVerificationDigit(taxID)
		if err != nil {
			return err
		}
		if digitos[9] != esperado {
			return fmt.Errorf("nit: dígito de verificación inválido: esperado %c, recibido %c", esperado, digitos[9])
		}
		return nil
	default:
		return fmt.Errorf("nit: se esperaban 9 o 10 dígitos, se encontraron %d", len(digitos))
	}
}

func soloDigitos(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
