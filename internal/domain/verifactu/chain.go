package verifactu

import (
	"regexp"
	"time"

	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

var huellaPattern = regexp.MustCompile(`^[0-9A-F]{64}$`)

type chainPosition int

const (
	chainUnset chainPosition = iota
	chainFirst
	chainLinked
)

// chainState posición del registro en la cadena. SetFirst y SetLink se sustituyen entre sí;
// el enlace se valida al construir el registro, nunca al fijarlo.
type chainState struct {
	pos  chainPosition
	link ChainLink
}

func (c *chainState) setFirst() {
	c.pos = chainFirst
	c.link = ChainLink{}
}

func (c *chainState) setLink(l ChainLink) {
	c.pos = chainLinked
	c.link = l
}

func (c chainState) huellaAnterior() string {
	if c.pos == chainLinked {
		return c.link.Huella
	}
	return ""
}

func (c chainState) encadenamiento() Encadenamiento {
	switch c.pos {
	case chainFirst:
		return Encadenamiento{PrimerRegistro: pkgvf.Si}
	case chainLinked:
		l := c.link
		return Encadenamiento{RegistroAnterior: &l}
	}
	return Encadenamiento{}
}

func (c chainState) validate() error {
	switch c.pos {
	case chainFirst:
		return nil
	case chainLinked:
		return validateChainLink(c.link)
	}
	return pkgvf.MissingRequiredField("Encadenamiento")
}

func validateChainLink(l ChainLink) error {
	switch {
	case l.IDEmisorFactura == "":
		return pkgvf.ChainLinkageError("falta IDEmisorFactura del registro anterior")
	case l.NumSerieFactura == "":
		return pkgvf.ChainLinkageError("falta NumSerieFactura del registro anterior")
	case l.FechaExpedicionFactura == "":
		return pkgvf.ChainLinkageError("falta FechaExpedicionFactura del registro anterior")
	case !huellaPattern.MatchString(l.Huella):
		return pkgvf.ChainLinkageError("la huella anterior debe ser SHA-256 en hexadecimal mayúsculas").
			WithContext("huella", l.Huella)
	}
	if _, err := pkgvf.ParseFecha(l.FechaExpedicionFactura); err != nil {
		return pkgvf.ChainLinkageError("fecha del registro anterior inválida")
	}
	return nil
}

func stamp(ts time.Time, loc *time.Location) string {
	return pkgvf.FormatTimestamp(ts, loc)
}
