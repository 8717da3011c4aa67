package aeat

import (
	"encoding/xml"
	"fmt"

	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// ── Namespaces ───────────────────────────────────────────────────────────────

const (
	nsBase = "https://www2.agenciatributaria.gob.es/static_files/common/internet/dep/aplicaciones/es/aeat/tike/cont/ws/"

	NSSoapEnv = "http://schemas.xmlsoap.org/soap/envelope/"
	NSSum     = nsBase + "SuministroLR.xsd"
	NSSum1    = nsBase + "SuministroInformacion.xsd"
	NSCon     = nsBase + "ConsultaLR.xsd"
)

// Operaciones SOAP del servicio.
const (
	OpRegFactu      = "RegFactuSistemaFacturacion"
	OpConsultaFactu = "ConsultaFactuSistemaFacturacion"
)

var validOperations = map[string]bool{OpRegFactu: true, OpConsultaFactu: true}

// Wrapped payload envuelto con el nombre de la operación; Execute lo desenvuelve.
type Wrapped struct {
	Operation string
	Body      any
}

type soapEnvelope struct {
	XMLName      xml.Name   `xml:"soapenv:Envelope"`
	XmlnsSoapenv string     `xml:"xmlns:soapenv,attr"`
	XmlnsSum     string     `xml:"xmlns:sum,attr,omitempty"`
	XmlnsSum1    string     `xml:"xmlns:sum1,attr"`
	XmlnsCon     string     `xml:"xmlns:con,attr,omitempty"`
	Header       soapHeader `xml:"soapenv:Header"`
	Body         soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content any
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// BuildEnvelope serializa el cuerpo de la operación dentro de un sobre SOAP 1.1 con los
// namespaces que usan los registros.
func BuildEnvelope(operation string, body any) ([]byte, error) {
	env := soapEnvelope{
		XmlnsSoapenv: NSSoapEnv,
		XmlnsSum1:    NSSum1,
		Body:         soapBody{Content: body},
	}
	switch operation {
	case OpRegFactu:
		env.XmlnsSum = NSSum
	case OpConsultaFactu:
		env.XmlnsCon = NSCon
	default:
		return nil, pkgvf.ConfigurationError("operation", fmt.Sprintf("operación desconocida %q", operation))
	}
	out, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
