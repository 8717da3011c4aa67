package aeat

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/Verifactu-api/internal/domain/verifactu"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// Estados de envío y de registro devueltos por la AEAT.
const (
	EstadoCorrecto             = "Correcto"
	EstadoParcialmenteCorrecto = "ParcialmenteCorrecto"
	EstadoIncorrecto           = "Incorrecto"
	EstadoAceptadoConErrores   = "AceptadoConErrores"
)

// Fault SOAP 1.1.
type Fault struct {
	Code   string
	String string
	Detail string
}

// RegistroDuplicado datos del registro previo cuando la AEAT detecta un duplicado.
type RegistroDuplicado struct {
	IdPeticionRegistroDuplicado string
	EstadoRegistroDuplicado     string
	CodigoErrorRegistro         string
	DescripcionErrorRegistro    string
}

// RespuestaLinea resultado por registro.
type RespuestaLinea struct {
	IDFactura                verifactu.IDFactura
	TipoOperacion            string // Alta | Anulacion
	RefExterna               string
	EstadoRegistro           string
	CodigoErrorRegistro      string
	DescripcionErrorRegistro string
	RegistroDuplicado        *RegistroDuplicado
}

// Accepted indica que el registro quedó registrado (con o sin errores admisibles).
func (l RespuestaLinea) Accepted() bool {
	return l.EstadoRegistro == EstadoCorrecto || l.EstadoRegistro == EstadoAceptadoConErrores
}

// RegistrationResponse respuesta de RegFactuSistemaFacturacion.
type RegistrationResponse struct {
	CSV               string
	EstadoEnvio       string
	TiempoEsperaEnvio int // segundos que deben transcurrir antes del siguiente envío
	Lineas            []RespuestaLinea
}

// Accepted indica EstadoEnvio=Correcto.
func (r *RegistrationResponse) Accepted() bool { return r.EstadoEnvio == EstadoCorrecto }

// FirstError primer código y descripción de error de las líneas.
func (r *RegistrationResponse) FirstError() (code, desc string, ok bool) {
	for _, l := range r.Lineas {
		if l.CodigoErrorRegistro != "" {
			return l.CodigoErrorRegistro, l.DescripcionErrorRegistro, true
		}
	}
	return "", "", false
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "utf-8", "utf8", "":
		return input, nil
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "iso-8859-15", "iso8859-15":
		return charmap.ISO8859_15.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("aeat: codificación no soportada %q", label)
}

func readDocument(body []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(bytes.TrimSpace(body)); err != nil {
		return nil, pkgvf.SoapError("", "respuesta XML ilegible", err)
	}
	if doc.Root() == nil {
		return nil, pkgvf.SoapError("", "respuesta vacía", nil)
	}
	return doc, nil
}

// text texto recortado del elemento en path (relativo a el) o "".
func text(el *etree.Element, path string) string {
	if el == nil {
		return ""
	}
	if found := el.FindElement(path); found != nil {
		return strings.TrimSpace(found.Text())
	}
	return ""
}

// ParseFault busca un soapenv:Fault en body, con cualquier prefijo.
func ParseFault(body []byte) (Fault, bool) {
	if !bytes.Contains(body, []byte("Fault")) {
		return Fault{}, false
	}
	doc, err := readDocument(body)
	if err != nil {
		return Fault{}, false
	}
	el := doc.FindElement("//Fault")
	if el == nil {
		return Fault{}, false
	}
	f := Fault{
		Code:   text(el, "faultcode"),
		String: text(el, "faultstring"),
	}
	if d := el.FindElement("detail"); d != nil {
		f.Detail = strings.TrimSpace(d.Text())
		if cs := d.ChildElements(); f.Detail == "" && len(cs) > 0 {
			f.Detail = strings.TrimSpace(cs[0].Text())
		}
	}
	return f, true
}

func idFactura(el *etree.Element) verifactu.IDFactura {
	return verifactu.IDFactura{
		IDEmisorFactura:        text(el, "IDEmisorFactura"),
		NumSerieFactura:        text(el, "NumSerieFactura"),
		FechaExpedicionFactura: text(el, "FechaExpedicionFactura"),
	}
}

// ParseRegistrationResponse lee RespuestaRegFactuSistemaFacturacion.
func ParseRegistrationResponse(body []byte) (*RegistrationResponse, error) {
	doc, err := readDocument(body)
	if err != nil {
		return nil, err
	}
	if f, ok := ParseFault(body); ok {
		return nil, pkgvf.SoapError(f.Code, f.String, nil)
	}
	root := doc.FindElement("//RespuestaRegFactuSistemaFacturacion")
	if root == nil {
		return nil, pkgvf.SoapError("", "falta RespuestaRegFactuSistemaFacturacion", nil)
	}

	r := &RegistrationResponse{
		CSV:         text(root, "CSV"),
		EstadoEnvio: text(root, "EstadoEnvio"),
	}
	if s := text(root, "TiempoEsperaEnvio"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			r.TiempoEsperaEnvio = n
		}
	}
	for _, el := range root.FindElements("RespuestaLinea") {
		l := RespuestaLinea{
			TipoOperacion:            text(el, "Operacion/TipoOperacion"),
			RefExterna:               text(el, "RefExterna"),
			EstadoRegistro:           text(el, "EstadoRegistro"),
			CodigoErrorRegistro:      text(el, "CodigoErrorRegistro"),
			DescripcionErrorRegistro: text(el, "DescripcionErrorRegistro"),
		}
		if id := el.FindElement("IDFactura"); id != nil {
			l.IDFactura = idFactura(id)
		}
		if dup := el.FindElement("RegistroDuplicado"); dup != nil {
			l.RegistroDuplicado = &RegistroDuplicado{
				IdPeticionRegistroDuplicado: text(dup, "IdPeticionRegistroDuplicado"),
				EstadoRegistroDuplicado:     text(dup, "EstadoRegistroDuplicado"),
				CodigoErrorRegistro:         text(dup, "CodigoErrorRegistro"),
				DescripcionErrorRegistro:    text(dup, "DescripcionErrorRegistro"),
			}
		}
		r.Lineas = append(r.Lineas, l)
	}
	return r, nil
}

// ParseQueryResponse lee RespuestaConsultaFactuSistemaFacturacion.
func ParseQueryResponse(body []byte) (*verifactu.QueryResponse, error) {
	doc, err := readDocument(body)
	if err != nil {
		return nil, err
	}
	if f, ok := ParseFault(body); ok {
		return nil, pkgvf.SoapError(f.Code, f.String, nil)
	}
	root := doc.FindElement("//RespuestaConsultaFactuSistemaFacturacion")
	if root == nil {
		return nil, pkgvf.SoapError("", "falta RespuestaConsultaFactuSistemaFacturacion", nil)
	}

	r := &verifactu.QueryResponse{
		ResultadoConsulta:   text(root, "ResultadoConsulta"),
		IndicadorPaginacion: text(root, "IndicadorPaginacion"),
	}
	for _, el := range root.FindElements("RegistroRespuestaConsultaFactuSistemaFacturacion") {
		datos := el.FindElement("DatosRegistroFacturacion")
		estado := el.FindElement("EstadoRegistro")
		reg := verifactu.RegistroConsultado{
			NombreRazonEmisor:        text(datos, "NombreRazonEmisor"),
			TipoFactura:              text(datos, "TipoFactura"),
			DescripcionOperacion:     text(datos, "DescripcionOperacion"),
			CuotaTotal:               text(datos, "CuotaTotal"),
			ImporteTotal:             text(datos, "ImporteTotal"),
			Huella:                   text(datos, "Huella"),
			FechaHoraHusoGenRegistro: text(datos, "FechaHoraHusoGenRegistro"),
			EstadoRegistro:           text(estado, "EstadoRegistro"),
			CodigoErrorRegistro:      text(estado, "CodigoErrorRegistro"),
			DescripcionErrorRegistro: text(estado, "DescripcionErrorRegistro"),
		}
		if id := el.FindElement("IDFactura"); id != nil {
			reg.IDFactura = idFactura(id)
		}
		r.Registros = append(r.Registros, reg)
	}
	return r, nil
}
