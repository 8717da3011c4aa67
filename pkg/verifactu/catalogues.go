// Package verifactu contiene catálogos, validaciones de identificadores fiscales, fechas y la
// taxonomía de errores del sistema VERI*FACTU (Orden HAC/1177/2024, AEAT).
package verifactu

// Versión del esquema de los registros de facturación.
const SchemaVersion = "1.0"

// TipoHuellaSHA256 único algoritmo de huella admitido (L12).
const TipoHuellaSHA256 = "01"

// Valores booleanos del esquema AEAT.
const (
	Si = "S"
	No = "N"
)

// =============================================================================
// L2 - Tipo de factura
// =============================================================================

// TipoFactura clave del tipo de factura.
type TipoFactura string

const (
	FacturaCompleta           TipoFactura = "F1" // Factura (art. 6, 7.2 y 7.3 RD 1619/2012)
	FacturaSimplificada       TipoFactura = "F2" // Factura simplificada y sin identificación del destinatario
	FacturaSustitutiva        TipoFactura = "F3" // Emitida en sustitución de facturas simplificadas
	RectificativaErrorDerecho TipoFactura = "R1" // Art. 80 Uno, Dos y Seis LIVA
	RectificativaConcurso     TipoFactura = "R2" // Art. 80.3
	RectificativaIncobrable   TipoFactura = "R3" // Art. 80.4
	RectificativaResto        TipoFactura = "R4" // Resto
	RectificativaSimplificada TipoFactura = "R5" // En facturas simplificadas
)

// ValidTiposFactura tipos de factura válidos.
var ValidTiposFactura = map[TipoFactura]bool{
	FacturaCompleta: true, FacturaSimplificada: true, FacturaSustitutiva: true,
	RectificativaErrorDerecho: true, RectificativaConcurso: true, RectificativaIncobrable: true,
	RectificativaResto: true, RectificativaSimplificada: true,
}

// IsRectificativa indica si el tipo es R1–R5.
func (t TipoFactura) IsRectificativa() bool {
	switch t {
	case RectificativaErrorDerecho, RectificativaConcurso, RectificativaIncobrable,
		RectificativaResto, RectificativaSimplificada:
		return true
	}
	return false
}

// IsSimplificada tipos que no exigen identificar al destinatario.
func (t TipoFactura) IsSimplificada() bool {
	return t == FacturaSimplificada || t == RectificativaSimplificada
}

// =============================================================================
// L3 - Tipo de rectificativa
// =============================================================================

// TipoRectificativa método de rectificación.
type TipoRectificativa string

const (
	RectificacionSustitucion TipoRectificativa = "S" // Por sustitución
	RectificacionDiferencias TipoRectificativa = "I" // Por diferencias
)

// =============================================================================
// L1 - Impuesto
// =============================================================================

// Impuesto al que se refiere el desglose.
type Impuesto string

const (
	ImpuestoIVA   Impuesto = "01" // IVA
	ImpuestoIPSI  Impuesto = "02" // IPSI Ceuta y Melilla
	ImpuestoIGIC  Impuesto = "03" // IGIC
	ImpuestoOtros Impuesto = "05" // Otros
)

// ValidImpuestos impuestos admitidos.
var ValidImpuestos = map[Impuesto]bool{
	ImpuestoIVA: true, ImpuestoIPSI: true, ImpuestoIGIC: true, ImpuestoOtros: true,
}

// =============================================================================
// L8A - Clave de régimen (IVA)
// =============================================================================

// ClaveRegimen régimen especial o trascendencia.
type ClaveRegimen string

const (
	RegimenGeneral             ClaveRegimen = "01"
	RegimenExportacion         ClaveRegimen = "02"
	RegimenBienesUsados        ClaveRegimen = "03" // REBU
	RegimenOroInversion        ClaveRegimen = "04"
	RegimenAgenciasViajes      ClaveRegimen = "05"
	RegimenGrupoEntidades      ClaveRegimen = "06"
	RegimenCriterioCaja        ClaveRegimen = "07"
	RegimenIPSIIGIC            ClaveRegimen = "08"
	RegimenAgenciasMediadoras  ClaveRegimen = "09"
	RegimenCobrosTerceros      ClaveRegimen = "10"
	RegimenArrendamiento       ClaveRegimen = "11"
	RegimenIVAPendiente        ClaveRegimen = "14"
	RegimenTractoSucesivo      ClaveRegimen = "15"
	RegimenOSS                 ClaveRegimen = "17"
	RegimenRecargoEquivalencia ClaveRegimen = "18"
	RegimenREAGYP              ClaveRegimen = "19"
	RegimenSimplificado        ClaveRegimen = "20"
)

// ValidClavesRegimen claves de régimen admitidas.
var ValidClavesRegimen = map[ClaveRegimen]bool{
	RegimenGeneral: true, RegimenExportacion: true, RegimenBienesUsados: true,
	RegimenOroInversion: true, RegimenAgenciasViajes: true, RegimenGrupoEntidades: true,
	RegimenCriterioCaja: true, RegimenIPSIIGIC: true, RegimenAgenciasMediadoras: true,
	RegimenCobrosTerceros: true, RegimenArrendamiento: true, RegimenIVAPendiente: true,
	RegimenTractoSucesivo: true, RegimenOSS: true, RegimenRecargoEquivalencia: true,
	RegimenREAGYP: true, RegimenSimplificado: true,
}

// UsesCostBase regímenes que admiten BaseImponibleACoste.
func (r ClaveRegimen) UsesCostBase() bool {
	return r == RegimenBienesUsados || r == RegimenAgenciasViajes
}

// =============================================================================
// L9 - Calificación de la operación
// =============================================================================

// Calificacion sujeción de la operación.
type Calificacion string

const (
	SujetaNoExenta       Calificacion = "S1" // Sujeta y no exenta, sin inversión del sujeto pasivo
	SujetaInversion      Calificacion = "S2" // Sujeta y no exenta, con inversión del sujeto pasivo
	NoSujetaArticulos    Calificacion = "N1" // No sujeta art. 7, 14, otros
	NoSujetaLocalizacion Calificacion = "N2" // No sujeta por reglas de localización
)

// ValidCalificaciones calificaciones admitidas.
var ValidCalificaciones = map[Calificacion]bool{
	SujetaNoExenta: true, SujetaInversion: true, NoSujetaArticulos: true, NoSujetaLocalizacion: true,
}

// IsSujeta indica si la operación lleva tipo impositivo.
func (c Calificacion) IsSujeta() bool {
	return c == SujetaNoExenta || c == SujetaInversion
}

// =============================================================================
// L10 - Causa de exención
// =============================================================================

// CausaExencion operación exenta.
type CausaExencion string

const (
	ExentaArt20    CausaExencion = "E1"
	ExentaArt21    CausaExencion = "E2"
	ExentaArt22    CausaExencion = "E3"
	ExentaArt23y24 CausaExencion = "E4"
	ExentaArt25    CausaExencion = "E5"
	ExentaOtros    CausaExencion = "E6"
)

// ValidCausasExencion causas de exención admitidas.
var ValidCausasExencion = map[CausaExencion]bool{
	ExentaArt20: true, ExentaArt21: true, ExentaArt22: true,
	ExentaArt23y24: true, ExentaArt25: true, ExentaOtros: true,
}

// =============================================================================
// L7 - Tipo de identificación en el país de residencia
// =============================================================================

const (
	IDTypeNIFIVA     = "02"
	IDTypePasaporte  = "03"
	IDTypeDocOficial = "04"
	IDTypeResidencia = "05"
	IDTypeOtro       = "06"
	IDTypeNoCenso    = "07"
)

// ValidIDTypes tipos de identificación extranjera.
var ValidIDTypes = map[string]bool{
	IDTypeNIFIVA: true, IDTypePasaporte: true, IDTypeDocOficial: true,
	IDTypeResidencia: true, IDTypeOtro: true, IDTypeNoCenso: true,
}

// =============================================================================
// L4 - Emitida por tercero o destinatario
// =============================================================================

const (
	EmitidaPorDestinatario = "D"
	EmitidaPorTercero      = "T"
	// GeneradoPorExpedidor solo aplica a GeneradoPor en anulaciones.
	GeneradoPorExpedidor = "E"
)
