package verifactu

import (
	"strings"
)

// dniLetters tabla de letras de control de DNI/NIE (número módulo 23).
const dniLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

// cifControlLetters letra de control de CIF según el dígito calculado.
const cifControlLetters = "JABCDEFGHI"

// TaxIDKind forma reconocida del identificador fiscal español.
type TaxIDKind string

const (
	TaxIDDNI TaxIDKind = "DNI"
	TaxIDNIE TaxIDKind = "NIE"
	TaxIDCIF TaxIDKind = "CIF"
)

// NormalizeTaxID pasa a mayúsculas y elimina espacios y guiones.
func NormalizeTaxID(taxID string) string {
	r := strings.NewReplacer(" ", "", "-", "", ".", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(taxID)))
}

// ValidateTaxID valida un NIF español (DNI, NIE o CIF). Gana la primera forma que encaje.
// Devuelve la forma detectada o un error InvalidTaxID.
func ValidateTaxID(taxID string) (TaxIDKind, error) {
	id := NormalizeTaxID(taxID)
	if len(id) != 9 {
		return "", InvalidTaxID(taxID)
	}
	switch {
	case isDNIShape(id):
		if validDNI(id) {
			return TaxIDDNI, nil
		}
	case isNIEShape(id):
		if validNIE(id) {
			return TaxIDNIE, nil
		}
	case isCIFShape(id):
		if validCIF(id) {
			return TaxIDCIF, nil
		}
	}
	return "", InvalidTaxID(taxID)
}

// DNILetter calcula la letra de control para un número de 8 dígitos.
func DNILetter(number string) (byte, bool) {
	if len(number) != 8 || !allDigits(number) {
		return 0, false
	}
	n := 0
	for i := 0; i < len(number); i++ {
		n = n*10 + int(number[i]-'0')
	}
	return dniLetters[n%23], true
}

func isDNIShape(id string) bool {
	return allDigits(id[:8]) && isLetter(id[8])
}

func validDNI(id string) bool {
	l, ok := DNILetter(id[:8])
	return ok && l == id[8]
}

func isNIEShape(id string) bool {
	return strings.IndexByte("XYZ", id[0]) >= 0 && allDigits(id[1:8]) && isLetter(id[8])
}

func validNIE(id string) bool {
	prefix := strings.IndexByte("XYZ", id[0])
	return validDNI(string(rune('0'+prefix)) + id[1:])
}

func isCIFShape(id string) bool {
	return strings.IndexByte("ABCDEFGHJNPQRSUVW", id[0]) >= 0 && allDigits(id[1:8])
}

func validCIF(id string) bool {
	digits := id[1:8]
	sum := 0
	for i := 0; i < len(digits); i++ {
		d := int(digits[i] - '0')
		if i%2 == 0 {
			// posiciones impares (1ª, 3ª, ...): doble y suma de cifras
			d *= 2
			d = d/10 + d%10
		}
		sum += d
	}
	control := (10 - sum%10) % 10
	ctrlDigit := byte('0' + control)
	ctrlLetter := cifControlLetters[control]
	got := id[8]

	switch {
	case strings.IndexByte("PQRSNW", id[0]) >= 0:
		return got == ctrlLetter
	case strings.IndexByte("ABEH", id[0]) >= 0:
		return got == ctrlDigit
	default:
		return got == ctrlDigit || got == ctrlLetter
	}
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isLetter(b byte) bool {
	return b >= 'A' && b <= 'Z'
}
