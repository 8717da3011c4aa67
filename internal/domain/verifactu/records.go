package verifactu

import (
	"encoding/xml"

	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// Los registros se serializan con prefijos literales; el sobre SOAP declara los namespaces
// sum (SuministroLR), sum1 (SuministroInformacion) y con (ConsultaLR).

// Party obligado a la emisión (titular de los registros). Inmutable por Manager.
type Party struct {
	NombreRazon string `xml:"sum1:NombreRazon"`
	NIF         string `xml:"sum1:NIF"`
}

// IDFactura identificación de la factura registrada.
type IDFactura struct {
	IDEmisorFactura        string `xml:"sum1:IDEmisorFactura"`
	NumSerieFactura        string `xml:"sum1:NumSerieFactura"`
	FechaExpedicionFactura string `xml:"sum1:FechaExpedicionFactura"`
}

// IDFacturaAnulada identificación de la factura que se anula.
type IDFacturaAnulada struct {
	IDEmisorFacturaAnulada        string `xml:"sum1:IDEmisorFacturaAnulada"`
	NumSerieFacturaAnulada        string `xml:"sum1:NumSerieFacturaAnulada"`
	FechaExpedicionFacturaAnulada string `xml:"sum1:FechaExpedicionFacturaAnulada"`
}

// IDOtro identificación de un no residente.
type IDOtro struct {
	CodigoPais string `xml:"sum1:CodigoPais,omitempty"`
	IDType     string `xml:"sum1:IDType"`
	ID         string `xml:"sum1:ID"`
}

// Persona destinatario o tercero: NIF español o IDOtro, nunca ambos.
type Persona struct {
	NombreRazon string  `xml:"sum1:NombreRazon"`
	NIF         string  `xml:"sum1:NIF,omitempty"`
	IDOtro      *IDOtro `xml:"sum1:IDOtro,omitempty"`
}

// DetalleDesglose grupo agregado del desglose (importes ya redondeados a 2 decimales).
type DetalleDesglose struct {
	Impuesto                      string `xml:"sum1:Impuesto,omitempty"`
	ClaveRegimen                  string `xml:"sum1:ClaveRegimen,omitempty"`
	CalificacionOperacion         string `xml:"sum1:CalificacionOperacion,omitempty"`
	OperacionExenta               string `xml:"sum1:OperacionExenta,omitempty"`
	TipoImpositivo                string `xml:"sum1:TipoImpositivo,omitempty"`
	BaseImponibleOimporteNoSujeto string `xml:"sum1:BaseImponibleOimporteNoSujeto"`
	BaseImponibleACoste           string `xml:"sum1:BaseImponibleACoste,omitempty"`
	CuotaRepercutida              string `xml:"sum1:CuotaRepercutida,omitempty"`
	TipoRecargoEquivalencia       string `xml:"sum1:TipoRecargoEquivalencia,omitempty"`
	CuotaRecargoEquivalencia      string `xml:"sum1:CuotaRecargoEquivalencia,omitempty"`
}

// ChainLink referencia al registro inmediatamente anterior del mismo obligado.
type ChainLink struct {
	IDEmisorFactura        string `xml:"sum1:IDEmisorFactura"`
	NumSerieFactura        string `xml:"sum1:NumSerieFactura"`
	FechaExpedicionFactura string `xml:"sum1:FechaExpedicionFactura"`
	Huella                 string `xml:"sum1:Huella"`
}

// Encadenamiento PrimerRegistro="S" o RegistroAnterior, nunca ambos.
type Encadenamiento struct {
	PrimerRegistro   string     `xml:"sum1:PrimerRegistro,omitempty"`
	RegistroAnterior *ChainLink `xml:"sum1:RegistroAnterior,omitempty"`
}

// HuellaAnterior huella del registro anterior ("" si es el primero).
func (e *Encadenamiento) HuellaAnterior() string {
	if e == nil || e.RegistroAnterior == nil {
		return ""
	}
	return e.RegistroAnterior.Huella
}

// SistemaInformatico datos del sistema que genera los registros.
type SistemaInformatico struct {
	NombreRazon                 string `xml:"sum1:NombreRazon"`
	NIF                         string `xml:"sum1:NIF"`
	NombreSistemaInformatico    string `xml:"sum1:NombreSistemaInformatico,omitempty"`
	IdSistemaInformatico        string `xml:"sum1:IdSistemaInformatico"`
	Version                     string `xml:"sum1:Version"`
	NumeroInstalacion           string `xml:"sum1:NumeroInstalacion"`
	TipoUsoPosibleSoloVerifactu string `xml:"sum1:TipoUsoPosibleSoloVerifactu"`
	TipoUsoPosibleMultiOT       string `xml:"sum1:TipoUsoPosibleMultiOT"`
	IndicadorMultiplesOT        string `xml:"sum1:IndicadorMultiplesOT"`
}

// IsZero indica que el llamador no informó el sistema.
func (s *SistemaInformatico) IsZero() bool {
	return s == nil || (s.NIF == "" && s.IdSistemaInformatico == "" && s.NombreSistemaInformatico == "")
}

// NewSistemaInformatico sistema de uso exclusivo VERI*FACTU para un único obligado.
func NewSistemaInformatico(productor Party, nombre, id, version, instalacion string) SistemaInformatico {
	return SistemaInformatico{
		NombreRazon:                 productor.NombreRazon,
		NIF:                         pkgvf.NormalizeTaxID(productor.NIF),
		NombreSistemaInformatico:    nombre,
		IdSistemaInformatico:        id,
		Version:                     version,
		NumeroInstalacion:           instalacion,
		TipoUsoPosibleSoloVerifactu: pkgvf.Si,
		TipoUsoPosibleMultiOT:       pkgvf.No,
		IndicadorMultiplesOT:        pkgvf.No,
	}
}

// ImporteRectificacion importes de la factura rectificada (rectificación por sustitución).
type ImporteRectificacion struct {
	BaseRectificada         string `xml:"sum1:BaseRectificada"`
	CuotaRectificada        string `xml:"sum1:CuotaRectificada"`
	CuotaRecargoRectificado string `xml:"sum1:CuotaRecargoRectificado,omitempty"`
}

// RegistroAlta registro de facturación de alta.
type RegistroAlta struct {
	IDVersion                           string                `xml:"sum1:IDVersion"`
	IDFactura                           IDFactura             `xml:"sum1:IDFactura"`
	RefExterna                          string                `xml:"sum1:RefExterna,omitempty"`
	NombreRazonEmisor                   string                `xml:"sum1:NombreRazonEmisor"`
	Subsanacion                         string                `xml:"sum1:Subsanacion,omitempty"`
	RechazoPrevio                       string                `xml:"sum1:RechazoPrevio,omitempty"`
	TipoFactura                         string                `xml:"sum1:TipoFactura"`
	TipoRectificativa                   string                `xml:"sum1:TipoRectificativa,omitempty"`
	FacturasRectificadas                []IDFactura           `xml:"sum1:FacturasRectificadas>sum1:IDFacturaRectificada,omitempty"`
	FacturasSustituidas                 []IDFactura           `xml:"sum1:FacturasSustituidas>sum1:IDFacturaSustituida,omitempty"`
	ImporteRectificacion                *ImporteRectificacion `xml:"sum1:ImporteRectificacion,omitempty"`
	FechaOperacion                      string                `xml:"sum1:FechaOperacion,omitempty"`
	DescripcionOperacion                string                `xml:"sum1:DescripcionOperacion"`
	FacturaSimplificadaArt7273          string                `xml:"sum1:FacturaSimplificadaArt7273,omitempty"`
	FacturaSinIdentifDestinatarioArt61d string                `xml:"sum1:FacturaSinIdentifDestinatarioArt61d,omitempty"`
	Macrodato                           string                `xml:"sum1:Macrodato,omitempty"`
	EmitidaPorTerceroODestinatario      string                `xml:"sum1:EmitidaPorTerceroODestinatario,omitempty"`
	Tercero                             *Persona              `xml:"sum1:Tercero,omitempty"`
	Destinatarios                       []Persona             `xml:"sum1:Destinatarios>sum1:IDDestinatario,omitempty"`
	Desglose                            []DetalleDesglose     `xml:"sum1:Desglose>sum1:DetalleDesglose"`
	CuotaTotal                          string                `xml:"sum1:CuotaTotal"`
	ImporteTotal                        string                `xml:"sum1:ImporteTotal"`
	Encadenamiento                      Encadenamiento        `xml:"sum1:Encadenamiento"`
	SistemaInformatico                  SistemaInformatico    `xml:"sum1:SistemaInformatico"`
	FechaHoraHusoGenRegistro            string                `xml:"sum1:FechaHoraHusoGenRegistro"`
	TipoHuella                          string                `xml:"sum1:TipoHuella"`
	Huella                              string                `xml:"sum1:Huella"`
}

// RegistroAnulacion registro de anulación de una factura ya registrada.
type RegistroAnulacion struct {
	IDVersion                string             `xml:"sum1:IDVersion"`
	IDFactura                IDFacturaAnulada   `xml:"sum1:IDFactura"`
	RefExterna               string             `xml:"sum1:RefExterna,omitempty"`
	SinRegistroPrevio        string             `xml:"sum1:SinRegistroPrevio,omitempty"`
	RechazoPrevio            string             `xml:"sum1:RechazoPrevio,omitempty"`
	Subsanacion              string             `xml:"sum1:Subsanacion,omitempty"`
	GeneradoPor              string             `xml:"sum1:GeneradoPor,omitempty"`
	Generador                *Persona           `xml:"sum1:Generador,omitempty"`
	Encadenamiento           Encadenamiento     `xml:"sum1:Encadenamiento"`
	SistemaInformatico       SistemaInformatico `xml:"sum1:SistemaInformatico"`
	FechaHoraHusoGenRegistro string             `xml:"sum1:FechaHoraHusoGenRegistro"`
	TipoHuella               string             `xml:"sum1:TipoHuella"`
	Huella                   string             `xml:"sum1:Huella"`
}

// RegistroFactura elemento de RegFactuSistemaFacturacion: alta o anulación.
type RegistroFactura struct {
	Alta      *RegistroAlta      `xml:"sum1:RegistroAlta,omitempty"`
	Anulacion *RegistroAnulacion `xml:"sum1:RegistroAnulacion,omitempty"`
}

// RemisionVoluntaria datos de la remisión voluntaria; Incidencia="S" marca registros
// generados durante una incidencia técnica y remitidos después.
type RemisionVoluntaria struct {
	FechaFinVeriFactu string `xml:"sum1:FechaFinVeriFactu,omitempty"`
	Incidencia        string `xml:"sum1:Incidencia,omitempty"`
}

// Cabecera de las operaciones de suministro y consulta.
type Cabecera struct {
	IDVersion          string              `xml:"sum1:IDVersion"`
	ObligadoEmision    Party               `xml:"sum1:ObligadoEmision"`
	RemisionVoluntaria *RemisionVoluntaria `xml:"sum1:RemisionVoluntaria,omitempty"`
}

// NewCabecera cabecera para el obligado; incidencia añade RemisionVoluntaria.Incidencia=S.
func NewCabecera(obligado Party, incidencia bool) Cabecera {
	c := Cabecera{IDVersion: pkgvf.SchemaVersion, ObligadoEmision: obligado}
	if incidencia {
		c.RemisionVoluntaria = &RemisionVoluntaria{Incidencia: pkgvf.Si}
	}
	return c
}

// RegFactuSistemaFacturacion cuerpo de la operación de registro (altas y anulaciones).
type RegFactuSistemaFacturacion struct {
	XMLName         xml.Name          `xml:"sum:RegFactuSistemaFacturacion"`
	Cabecera        Cabecera          `xml:"sum:Cabecera"`
	RegistroFactura []RegistroFactura `xml:"sum:RegistroFactura"`
}

// ChainLinkFrom construye el encadenamiento del siguiente registro a partir de un alta enviada.
func ChainLinkFrom(r *RegistroAlta) ChainLink {
	if r == nil {
		return ChainLink{}
	}
	return ChainLink{
		IDEmisorFactura:        r.IDFactura.IDEmisorFactura,
		NumSerieFactura:        r.IDFactura.NumSerieFactura,
		FechaExpedicionFactura: r.IDFactura.FechaExpedicionFactura,
		Huella:                 r.Huella,
	}
}

// ChainLinkFromAnulacion encadenamiento a partir de una anulación enviada.
func ChainLinkFromAnulacion(r *RegistroAnulacion) ChainLink {
	if r == nil {
		return ChainLink{}
	}
	return ChainLink{
		IDEmisorFactura:        r.IDFactura.IDEmisorFacturaAnulada,
		NumSerieFactura:        r.IDFactura.NumSerieFacturaAnulada,
		FechaExpedicionFactura: r.IDFactura.FechaExpedicionFacturaAnulada,
		Huella:                 r.Huella,
	}
}

func (r *RegistroAlta) clone() *RegistroAlta {
	c := *r
	c.FacturasRectificadas = append([]IDFactura(nil), r.FacturasRectificadas...)
	c.FacturasSustituidas = append([]IDFactura(nil), r.FacturasSustituidas...)
	c.Desglose = append([]DetalleDesglose(nil), r.Desglose...)
	c.Destinatarios = make([]Persona, len(r.Destinatarios))
	for i, d := range r.Destinatarios {
		c.Destinatarios[i] = d.clone()
	}
	if r.ImporteRectificacion != nil {
		ir := *r.ImporteRectificacion
		c.ImporteRectificacion = &ir
	}
	if r.Tercero != nil {
		t := r.Tercero.clone()
		c.Tercero = &t
	}
	c.Encadenamiento = r.Encadenamiento.clone()
	return &c
}

func (r *RegistroAnulacion) clone() *RegistroAnulacion {
	c := *r
	if r.Generador != nil {
		g := r.Generador.clone()
		c.Generador = &g
	}
	c.Encadenamiento = r.Encadenamiento.clone()
	return &c
}

func (p Persona) clone() Persona {
	if p.IDOtro != nil {
		o := *p.IDOtro
		p.IDOtro = &o
	}
	return p
}

func (e Encadenamiento) clone() Encadenamiento {
	if e.RegistroAnterior != nil {
		l := *e.RegistroAnterior
		e.RegistroAnterior = &l
	}
	return e
}
