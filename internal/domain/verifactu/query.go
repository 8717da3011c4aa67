package verifactu

import (
	"encoding/xml"
	"errors"
	"fmt"
	"slices"
	"strings"

	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// PeriodoImputacion ejercicio (YYYY) y periodo (MM) de la consulta.
type PeriodoImputacion struct {
	Ejercicio string `xml:"sum1:Ejercicio"`
	Periodo   string `xml:"sum1:Periodo"`
}

// RangoFechaExpedicion rango de fechas DD-MM-YYYY.
type RangoFechaExpedicion struct {
	Desde string `xml:"sum1:Desde"`
	Hasta string `xml:"sum1:Hasta"`
}

// FechaExpedicionFiltro fecha concreta o rango, nunca ambos.
type FechaExpedicionFiltro struct {
	FechaExpedicionFactura string                `xml:"sum1:FechaExpedicionFactura,omitempty"`
	RangoFechaExpedicion   *RangoFechaExpedicion `xml:"sum1:RangoFechaExpedicion,omitempty"`
}

// Contraparte destinatario por el que se filtra.
type Contraparte struct {
	NombreRazon string `xml:"sum1:NombreRazon,omitempty"`
	NIF         string `xml:"sum1:NIF"`
}

// ClavePaginacion último registro devuelto; se envía para pedir la página siguiente.
type ClavePaginacion struct {
	IDEmisorFactura        string `xml:"sum1:IDEmisorFactura"`
	NumSerieFactura        string `xml:"sum1:NumSerieFactura"`
	FechaExpedicionFactura string `xml:"sum1:FechaExpedicionFactura"`
}

// FiltroConsulta filtro de ConsultaFactuSistemaFacturacion. Sus hijos directos van en el
// espacio de la consulta (con:); el contenido de cada uno, en el de SuministroInformacion (sum1:).
type FiltroConsulta struct {
	PeriodoImputacion      PeriodoImputacion      `xml:"con:PeriodoImputacion"`
	NumSerieFactura        string                 `xml:"con:NumSerieFactura,omitempty"`
	Contraparte            *Contraparte           `xml:"con:Contraparte,omitempty"`
	FechaExpedicionFactura *FechaExpedicionFiltro `xml:"con:FechaExpedicionFactura,omitempty"`
	RefExterna             string                 `xml:"con:RefExterna,omitempty"`
	ClavePaginacion        *ClavePaginacion       `xml:"con:ClavePaginacion,omitempty"`
}

// DatosAdicionalesRespuesta bloques opcionales que se piden en la respuesta.
type DatosAdicionalesRespuesta struct {
	MostrarNombreRazonEmisor  string `xml:"con:MostrarNombreRazonEmisor,omitempty"`
	MostrarSistemaInformatico string `xml:"con:MostrarSistemaInformatico,omitempty"`
}

// ConsultaFactuSistemaFacturacion cuerpo de la operación de consulta.
type ConsultaFactuSistemaFacturacion struct {
	XMLName                   xml.Name                   `xml:"con:ConsultaFactuSistemaFacturacion"`
	Cabecera                  Cabecera                   `xml:"con:Cabecera"`
	FiltroConsulta            FiltroConsulta             `xml:"con:FiltroConsulta"`
	DatosAdicionalesRespuesta *DatosAdicionalesRespuesta `xml:"con:DatosAdicionalesRespuesta,omitempty"`
}

type invoiceTarget struct {
	serial string
	fecha  string
	err    error
}

type counterpartyTarget struct {
	contraparte Contraparte
	err         error
}

// QueryOption filtro por defecto fijado al construir la consulta.
type QueryOption func(*Query)

// ForInvoice consulta una factura concreta.
func ForInvoice(serial, fecha string) QueryOption {
	return func(q *Query) {
		q.ctorInvoice = q.target(serial, fecha)
	}
}

// ForCounterparty consulta las facturas emitidas a una contraparte.
func ForCounterparty(nif, name string) QueryOption {
	return func(q *Query) {
		q.ctorCounterparty = q.counterpartyOf(nif, name)
	}
}

// Query construye una consulta de registros. Los setters explícitos prevalecen sobre las
// opciones del constructor.
type Query struct {
	obligado Party

	ctorInvoice      *invoiceTarget
	ctorCounterparty *counterpartyTarget

	periodo        *PeriodoImputacion
	invoice        *invoiceTarget
	counterparty   *counterpartyTarget
	rango          *RangoFechaExpedicion
	refExterna     string
	paginacion     *ClavePaginacion
	huella         string
	mostrarNombre  bool
	mostrarSistema bool
	merges         []func(*FiltroConsulta)
	errs           fieldErrors
}

// NewQuery consulta en nombre del obligado.
func NewQuery(obligado Party, opts ...QueryOption) *Query {
	q := &Query{obligado: obligado}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Query) target(serial, fecha string) *invoiceTarget {
	t := &invoiceTarget{serial: strings.TrimSpace(serial), fecha: strings.TrimSpace(fecha)}
	if t.serial != "" {
		t.err = pkgvf.ValidateNumSerie(t.serial)
	}
	if t.fecha != "" {
		_, err := pkgvf.ParseFecha(t.fecha)
		t.err = errors.Join(t.err, err)
	}
	return t
}

func (q *Query) counterpartyOf(nif, name string) *counterpartyTarget {
	return &counterpartyTarget{
		contraparte: Contraparte{NombreRazon: strings.TrimSpace(name), NIF: pkgvf.NormalizeTaxID(nif)},
		err:         validateNIF("Contraparte", nif),
	}
}

// SetPeriod PeriodoImputacion explícito.
func (q *Query) SetPeriod(year, month int) *Query {
	var errYear, errMonth error
	if year < 1000 || year > 9999 {
		errYear = pkgvf.InvalidInvoiceData("Ejercicio", fmt.Sprintf("%d no es un año válido", year))
	}
	if month < 1 || month > 12 {
		errMonth = pkgvf.InvalidInvoiceData("Periodo", fmt.Sprintf("%d no es un mes válido", month))
	}
	q.errs.set("PeriodoImputacion", errors.Join(errYear, errMonth))
	q.periodo = &PeriodoImputacion{Ejercicio: fmt.Sprintf("%04d", year), Periodo: fmt.Sprintf("%02d", month)}
	return q
}

// SetCounterparty filtra por contraparte.
func (q *Query) SetCounterparty(nif, name string) *Query {
	q.counterparty = q.counterpartyOf(nif, name)
	return q
}

// SetDateRange filtra por rango de fechas de expedición.
func (q *Query) SetDateRange(desde, hasta string) *Query {
	d, err := pkgvf.ParseFecha(desde)
	h, err2 := pkgvf.ParseFecha(hasta)
	rangeErr := errors.Join(err, err2)
	if rangeErr == nil && h.Before(d) {
		rangeErr = pkgvf.InvalidInvoiceData("RangoFechaExpedicion", "Hasta anterior a Desde")
	}
	q.errs.set("RangoFechaExpedicion", rangeErr)
	q.rango = &RangoFechaExpedicion{Desde: desde, Hasta: hasta}
	return q
}

// SetInvoice filtra por una factura concreta.
func (q *Query) SetInvoice(serial, fecha string) *Query {
	q.invoice = q.target(serial, fecha)
	return q
}

// SetExternalReference filtra por RefExterna.
func (q *Query) SetExternalReference(ref string) *Query {
	q.refExterna = strings.TrimSpace(ref)
	return q
}

// SetPaginationKey pide la página siguiente a partir del último registro recibido.
func (q *Query) SetPaginationKey(k ClavePaginacion) *Query {
	q.paginacion = &k
	return q
}

// SetFingerprint busca un registro por huella. La AEAT no filtra por huella: se aplica
// sobre la respuesta con QueryResponse.FindByFingerprint.
func (q *Query) SetFingerprint(huella string) *Query {
	h := strings.ToUpper(strings.TrimSpace(huella))
	var err error
	if !huellaPattern.MatchString(h) {
		err = pkgvf.InvalidInvoiceData("Huella", "no es SHA-256 en hexadecimal")
	}
	q.errs.set("Huella", err)
	q.huella = h
	return q
}

// Fingerprint huella buscada ("" si no se fijó).
func (q *Query) Fingerprint() string { return q.huella }

// MergeFilter aplica una modificación libre sobre el filtro final.
func (q *Query) MergeFilter(fn func(*FiltroConsulta)) *Query {
	if fn != nil {
		q.merges = append(q.merges, fn)
	}
	return q
}

// ShowIssuerName pide MostrarNombreRazonEmisor.
func (q *Query) ShowIssuerName(v bool) *Query {
	q.mostrarNombre = v
	return q
}

// ShowSystemInfo pide MostrarSistemaInformatico.
func (q *Query) ShowSystemInfo(v bool) *Query {
	q.mostrarSistema = v
	return q
}

// WithObligado sustituye el obligado (lo usa el Manager cuando la consulta llega sin él).
func (q *Query) WithObligado(p Party) *Query {
	if q.obligado.NIF == "" {
		q.obligado = p
	}
	return q
}

// Clone copia independiente de la consulta.
func (q *Query) Clone() *Query {
	c := *q
	c.merges = slices.Clone(q.merges)
	c.errs = q.errs.clone()
	return &c
}

// Request construye la petición. Sin periodo explícito se deduce de la fecha de la factura
// objetivo o, en su defecto, del inicio del rango.
func (q *Query) Request() (*ConsultaFactuSistemaFacturacion, error) {
	errs := q.errs.list()
	if q.obligado.NIF == "" {
		errs = append(errs, pkgvf.MissingRequiredField("ObligadoEmision.NIF"))
	}
	if q.obligado.NombreRazon == "" {
		errs = append(errs, pkgvf.MissingRequiredField("ObligadoEmision.NombreRazon"))
	}

	inv := q.invoice
	if inv == nil {
		inv = q.ctorInvoice
	}
	cp := q.counterparty
	if cp == nil {
		cp = q.ctorCounterparty
	}
	if inv != nil && inv.err != nil {
		errs = append(errs, inv.err)
	}
	if cp != nil && cp.err != nil {
		errs = append(errs, cp.err)
	}

	var f FiltroConsulta
	switch {
	case q.periodo != nil:
		f.PeriodoImputacion = *q.periodo
	case inv != nil && inv.fecha != "":
		f.PeriodoImputacion = periodFromFecha(inv.fecha)
	case q.rango != nil:
		f.PeriodoImputacion = periodFromFecha(q.rango.Desde)
	default:
		errs = append(errs, pkgvf.MissingRequiredField("PeriodoImputacion"))
	}

	if inv != nil {
		f.NumSerieFactura = inv.serial
	}
	switch {
	case q.rango != nil:
		r := *q.rango
		f.FechaExpedicionFactura = &FechaExpedicionFiltro{RangoFechaExpedicion: &r}
	case inv != nil && inv.fecha != "":
		f.FechaExpedicionFactura = &FechaExpedicionFiltro{FechaExpedicionFactura: inv.fecha}
	}
	if cp != nil {
		c := cp.contraparte
		f.Contraparte = &c
	}
	f.RefExterna = q.refExterna
	if q.paginacion != nil {
		k := *q.paginacion
		f.ClavePaginacion = &k
	}
	for _, fn := range q.merges {
		fn(&f)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	req := &ConsultaFactuSistemaFacturacion{
		Cabecera:       NewCabecera(q.obligado, false),
		FiltroConsulta: f,
	}
	if q.mostrarNombre || q.mostrarSistema {
		req.DatosAdicionalesRespuesta = &DatosAdicionalesRespuesta{}
		if q.mostrarNombre {
			req.DatosAdicionalesRespuesta.MostrarNombreRazonEmisor = pkgvf.Si
		}
		if q.mostrarSistema {
			req.DatosAdicionalesRespuesta.MostrarSistemaInformatico = pkgvf.Si
		}
	}
	return req, nil
}

// periodFromFecha DD-MM-YYYY -> {YYYY, MM}. La fecha ya se validó al fijarla.
func periodFromFecha(fecha string) PeriodoImputacion {
	if len(fecha) != len(pkgvf.LayoutFecha) {
		return PeriodoImputacion{}
	}
	return PeriodoImputacion{Ejercicio: fecha[6:10], Periodo: fecha[3:5]}
}

// ── Respuesta ────────────────────────────────────────────────────────────────

// RegistroConsultado registro devuelto por la consulta.
type RegistroConsultado struct {
	IDFactura                IDFactura
	NombreRazonEmisor        string
	TipoFactura              string
	DescripcionOperacion     string
	CuotaTotal               string
	ImporteTotal             string
	Huella                   string
	FechaHoraHusoGenRegistro string
	EstadoRegistro           string
	CodigoErrorRegistro      string
	DescripcionErrorRegistro string
}

// QueryResponse respuesta de ConsultaFactuSistemaFacturacion.
type QueryResponse struct {
	ResultadoConsulta   string // ConDatos | SinDatos
	IndicadorPaginacion string // S si hay más páginas
	Registros           []RegistroConsultado
}

// HasMore indica que hay más páginas.
func (r *QueryResponse) HasMore() bool { return r.IndicadorPaginacion == pkgvf.Si }

// NextPageKey clave de paginación para pedir la página siguiente.
func (r *QueryResponse) NextPageKey() (ClavePaginacion, bool) {
	if !r.HasMore() || len(r.Registros) == 0 {
		return ClavePaginacion{}, false
	}
	last := r.Registros[len(r.Registros)-1].IDFactura
	return ClavePaginacion(last), true
}

// FindByFingerprint busca un registro por huella (sin distinguir mayúsculas).
func (r *QueryResponse) FindByFingerprint(huella string) (*RegistroConsultado, bool) {
	h := strings.ToUpper(strings.TrimSpace(huella))
	for i := range r.Registros {
		if strings.EqualFold(r.Registros[i].Huella, h) {
			return &r.Registros[i], true
		}
	}
	return nil, false
}
