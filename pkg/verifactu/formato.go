package verifactu

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MaxNumSerieLen longitud máxima de NumSerieFactura.
	MaxNumSerieLen = 60
	// MaxImporteDigits dígitos enteros admitidos en un importe.
	MaxImporteDigits = 12
	// MaxDescripcionLen longitud máxima de DescripcionOperacion.
	MaxDescripcionLen = 500
)

// ValidateNumSerie exige entre 1 y 60 caracteres ASCII imprimibles.
func ValidateNumSerie(serial string) error {
	if serial == "" {
		return MissingRequiredField("NumSerieFactura")
	}
	if len(serial) > MaxNumSerieLen {
		return InvalidInvoiceData("NumSerieFactura", fmt.Sprintf("más de %d caracteres", MaxNumSerieLen))
	}
	for i := 0; i < len(serial); i++ {
		if serial[i] < 0x20 || serial[i] > 0x7e {
			return InvalidInvoiceData("NumSerieFactura", "solo se admiten caracteres ASCII imprimibles")
		}
	}
	return nil
}

// FormatImporte normaliza un importe a 2 decimales y comprueba que la parte entera no
// supere 12 dígitos.
func FormatImporte(amount decimal.Decimal) (string, error) {
	s := amount.StringFixed(2)
	intPart := strings.TrimPrefix(s[:strings.IndexByte(s, '.')], "-")
	if len(intPart) > MaxImporteDigits {
		return "", InvalidInvoiceData("importe", fmt.Sprintf("%s supera %d dígitos enteros", s, MaxImporteDigits))
	}
	return s, nil
}

// ParseImporte convierte texto a decimal y lo normaliza con FormatImporte.
func ParseImporte(s string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "", InvalidInvoiceData("importe", fmt.Sprintf("%q no es numérico", s))
	}
	return FormatImporte(d)
}
