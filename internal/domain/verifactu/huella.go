// Package verifactu: registros de facturación VERI*FACTU (alta, anulación y consulta), cálculo de
// la huella encadenada y agregación del desglose fiscal.
//
// Huella: SHA-256 en hexadecimal mayúsculas sobre la concatenación "Campo=valor" unida por "&",
// en el orden fijo que publica la AEAT para cada tipo de registro.
package verifactu

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"

	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// AltaHuellaParams campos que intervienen en la huella de un registro de alta, en orden AEAT.
type AltaHuellaParams struct {
	IDEmisorFactura          string
	NumSerieFactura          string
	FechaExpedicionFactura   string // DD-MM-YYYY
	TipoFactura              string
	CuotaTotal               string // se normaliza a 2 decimales
	ImporteTotal             string // se normaliza a 2 decimales
	HuellaAnterior           string // vacía en el primer registro
	FechaHoraHusoGenRegistro string
}

// AnulacionHuellaParams campos que intervienen en la huella de un registro de anulación.
type AnulacionHuellaParams struct {
	IDEmisorFacturaAnulada        string
	NumSerieFacturaAnulada        string
	FechaExpedicionFacturaAnulada string
	HuellaAnterior                string
	FechaHoraHusoGenRegistro      string
}

// HuellaCalculator calcula la huella de los registros de facturación.
type HuellaCalculator struct{}

// NewHuellaCalculator crea el calculador.
func NewHuellaCalculator() *HuellaCalculator {
	return &HuellaCalculator{}
}

// AltaChain devuelve la cadena exacta que se hashea para un registro de alta.
func (c *HuellaCalculator) AltaChain(p AltaHuellaParams) (string, error) {
	cuota, err := formatAmount("CuotaTotal", p.CuotaTotal)
	if err != nil {
		return "", err
	}
	importe, err := formatAmount("ImporteTotal", p.ImporteTotal)
	if err != nil {
		return "", err
	}
	return joinFields(
		"IDEmisorFactura", p.IDEmisorFactura,
		"NumSerieFactura", p.NumSerieFactura,
		"FechaExpedicionFactura", p.FechaExpedicionFactura,
		"TipoFactura", p.TipoFactura,
		"CuotaTotal", cuota,
		"ImporteTotal", importe,
		"Huella", p.HuellaAnterior,
		"FechaHoraHusoGenRegistro", p.FechaHoraHusoGenRegistro,
	), nil
}

// CalculateAlta calcula la huella de un registro de alta.
func (c *HuellaCalculator) CalculateAlta(p AltaHuellaParams) (string, error) {
	if strings.TrimSpace(p.FechaHoraHusoGenRegistro) == "" {
		return "", pkgvf.HashGenerationFailed(pkgvf.MissingRequiredField("FechaHoraHusoGenRegistro"))
	}
	chain, err := c.AltaChain(p)
	if err != nil {
		return "", pkgvf.HashGenerationFailed(err)
	}
	return sha256Upper(chain), nil
}

// AnulacionChain devuelve la cadena exacta que se hashea para un registro de anulación.
func (c *HuellaCalculator) AnulacionChain(p AnulacionHuellaParams) string {
	return joinFields(
		"IDEmisorFacturaAnulada", p.IDEmisorFacturaAnulada,
		"NumSerieFacturaAnulada", p.NumSerieFacturaAnulada,
		"FechaExpedicionFacturaAnulada", p.FechaExpedicionFacturaAnulada,
		"Huella", p.HuellaAnterior,
		"FechaHoraHusoGenRegistro", p.FechaHoraHusoGenRegistro,
	)
}

// CalculateAnulacion calcula la huella de un registro de anulación.
func (c *HuellaCalculator) CalculateAnulacion(p AnulacionHuellaParams) (string, error) {
	if strings.TrimSpace(p.FechaHoraHusoGenRegistro) == "" {
		return "", pkgvf.HashGenerationFailed(pkgvf.MissingRequiredField("FechaHoraHusoGenRegistro"))
	}
	return sha256Upper(c.AnulacionChain(p)), nil
}

// joinFields recibe pares nombre/valor; los valores se recortan antes de concatenar.
func joinFields(kv ...string) string {
	var sb strings.Builder
	for i := 0; i+1 < len(kv); i += 2 {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(kv[i])
		sb.WriteByte('=')
		sb.WriteString(strings.TrimSpace(kv[i+1]))
	}
	return sb.String()
}

func formatAmount(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", pkgvf.MissingRequiredField(field)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return "", pkgvf.InvalidInvoiceData(field, "importe no numérico "+v)
	}
	return d.StringFixed(2), nil
}

func sha256Upper(s string) string {
	sum := sha256.Sum256([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
