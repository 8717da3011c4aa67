// Package qr genera la URL de cotejo del código QR tributario (VERI*FACTU y no VERI*FACTU) y
// la representa como imagen PNG, SVG, Base64 o sello PDF imprimible.
package qr

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Verifactu-api/internal/infrastructure/aeat"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// Data datos de la factura que identifican el QR.
type Data struct {
	NIF      string
	NumSerie string
	Fecha    string // DD-MM-YYYY
	Importe  decimal.Decimal
}

// CreateVerifactuURL URL de cotejo para sistemas VERI*FACTU (ValidarQR).
func CreateVerifactuURL(nif, serial, fecha string, importe decimal.Decimal, isTest bool) (string, error) {
	return buildURL(aeat.QRValidationURL(isTest, true), Data{NIF: nif, NumSerie: serial, Fecha: fecha, Importe: importe})
}

// CreateStandardURL URL de cotejo para sistemas no VERI*FACTU (ValidarQRNoVerifactu).
func CreateStandardURL(nif, serial, fecha string, importe decimal.Decimal, isTest bool) (string, error) {
	return buildURL(aeat.QRValidationURL(isTest, false), Data{NIF: nif, NumSerie: serial, Fecha: fecha, Importe: importe})
}

// URL construye la URL para d según la modalidad.
func (d Data) URL(verifactu, isTest bool) (string, error) {
	return buildURL(aeat.QRValidationURL(isTest, verifactu), d)
}

// Validate comprueba NIF, número de serie, fecha e importe.
func (d Data) Validate() error {
	_, _, _, err := d.normalized()
	return err
}

func (d Data) normalized() (nif, fecha, importe string, err error) {
	if _, err = pkgvf.ValidateTaxID(d.NIF); err != nil {
		return "", "", "", err
	}
	if err = pkgvf.ValidateNumSerie(d.NumSerie); err != nil {
		return "", "", "", err
	}
	t, err := pkgvf.ParseFecha(strings.TrimSpace(d.Fecha))
	if err != nil {
		return "", "", "", err
	}
	importe, err = pkgvf.FormatImporte(d.Importe)
	if err != nil {
		return "", "", "", err
	}
	return pkgvf.NormalizeTaxID(d.NIF), pkgvf.FormatFecha(t), importe, nil
}

func buildURL(base string, d Data) (string, error) {
	nif, fecha, importe, err := d.normalized()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("?nif=")
	sb.WriteString(escape(nif))
	sb.WriteString("&numserie=")
	sb.WriteString(escape(d.NumSerie))
	sb.WriteString("&fecha=")
	sb.WriteString(escape(fecha))
	sb.WriteString("&importe=")
	sb.WriteString(escape(importe))
	return sb.String(), nil
}

// escape codificación RFC 3986: el espacio va como %20, no como '+'.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
