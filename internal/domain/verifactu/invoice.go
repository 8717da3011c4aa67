package verifactu

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// MaxDestinatarios límite del bloque Destinatarios.
const MaxDestinatarios = 1000

// Invoice construye un registro de alta. Los setters encadenables nunca entran en pánico:
// los datos inválidos se acumulan y se devuelven en Validate o Record.
type Invoice struct {
	rec       RegistroAlta
	desglose  *TaxBreakdown
	chain     chainState
	incidence bool
	errs      fieldErrors
	calc      *HuellaCalculator
}

// NewInvoice factura completa (F1) del emisor con serie y fecha DD-MM-YYYY.
func NewInvoice(issuerNIF, serial, fecha string) *Invoice {
	inv := &Invoice{
		rec: RegistroAlta{
			IDVersion:   pkgvf.SchemaVersion,
			TipoFactura: string(pkgvf.FacturaCompleta),
			TipoHuella:  pkgvf.TipoHuellaSHA256,
		},
		desglose: NewTaxBreakdown(),
		calc:     NewHuellaCalculator(),
	}
	inv.rec.IDFactura.NumSerieFactura = strings.TrimSpace(serial)
	inv.rec.IDFactura.FechaExpedicionFactura = strings.TrimSpace(fecha)
	if issuerNIF != "" {
		inv.rec.IDFactura.IDEmisorFactura = pkgvf.NormalizeTaxID(issuerNIF)
		inv.errs.set("IDEmisorFactura", validateNIF("IDEmisorFactura", issuerNIF))
	}
	if serial != "" {
		inv.errs.set("NumSerieFactura", pkgvf.ValidateNumSerie(inv.rec.IDFactura.NumSerieFactura))
	}
	if fecha != "" {
		_, err := pkgvf.ParseFecha(inv.rec.IDFactura.FechaExpedicionFactura)
		inv.errs.set("FechaExpedicionFactura", err)
	}
	return inv
}

// NewSubsanacion alta que corrige un registro ya remitido. Con rechazoPrevio indica que el
// registro original fue rechazado por la AEAT.
func NewSubsanacion(issuerNIF, serial, fecha string, rechazoPrevio bool) *Invoice {
	return NewInvoice(issuerNIF, serial, fecha).SetSubsanacion(rechazoPrevio)
}

// NewRectificativa factura rectificativa R1..R5 por sustitución (S) o diferencias (I).
func NewRectificativa(issuerNIF, serial, fecha string, tipo pkgvf.TipoFactura, metodo pkgvf.TipoRectificativa) *Invoice {
	inv := NewInvoice(issuerNIF, serial, fecha).SetType(tipo)
	if !tipo.IsRectificativa() {
		inv.errs.set("TipoFactura", pkgvf.InvalidInvoiceData("TipoFactura", fmt.Sprintf("%q no es rectificativa", tipo)))
	}
	return inv.SetRectificationType(metodo)
}

// NewSimplificada factura simplificada (F2), sin identificación del destinatario.
func NewSimplificada(issuerNIF, serial, fecha string) *Invoice {
	return NewInvoice(issuerNIF, serial, fecha).SetType(pkgvf.FacturaSimplificada)
}

// touch invalida la huella cuando cambia un campo que interviene en ella.
func (inv *Invoice) touch() {
	inv.rec.Huella = ""
	inv.rec.FechaHoraHusoGenRegistro = ""
}

// ── Setters ──────────────────────────────────────────────────────────────────

// SetIssuer emisor de la factura.
func (inv *Invoice) SetIssuer(nif, name string) *Invoice {
	inv.touch()
	inv.rec.IDFactura.IDEmisorFactura = pkgvf.NormalizeTaxID(nif)
	inv.rec.NombreRazonEmisor = strings.TrimSpace(name)
	inv.errs.set("IDEmisorFactura", validateNIF("IDEmisorFactura", nif))
	return inv
}

// SetType tipo de factura F1..R5.
func (inv *Invoice) SetType(t pkgvf.TipoFactura) *Invoice {
	inv.touch()
	var err error
	if !pkgvf.ValidTiposFactura[t] {
		err = pkgvf.InvalidInvoiceData("TipoFactura", fmt.Sprintf("valor no admitido %q", t))
	}
	inv.errs.set("TipoFactura", err)
	inv.rec.TipoFactura = string(t)
	return inv
}

// SetRectificationType método de rectificación (S sustitución, I diferencias).
func (inv *Invoice) SetRectificationType(m pkgvf.TipoRectificativa) *Invoice {
	var err error
	if m != pkgvf.RectificacionSustitucion && m != pkgvf.RectificacionDiferencias {
		err = pkgvf.InvalidInvoiceData("TipoRectificativa", fmt.Sprintf("valor no admitido %q", m))
	}
	inv.errs.set("TipoRectificativa", err)
	inv.rec.TipoRectificativa = string(m)
	return inv
}

// SetDescription DescripcionOperacion (máximo 500 caracteres).
func (inv *Invoice) SetDescription(desc string) *Invoice {
	desc = strings.TrimSpace(desc)
	var err error
	if len([]rune(desc)) > pkgvf.MaxDescripcionLen {
		err = pkgvf.InvalidInvoiceData("DescripcionOperacion", "más de 500 caracteres")
	}
	inv.errs.set("DescripcionOperacion", err)
	inv.rec.DescripcionOperacion = desc
	return inv
}

// SetExternalReference RefExterna (referencia libre del sistema del emisor).
func (inv *Invoice) SetExternalReference(ref string) *Invoice {
	inv.rec.RefExterna = strings.TrimSpace(ref)
	return inv
}

// SetOperationDate FechaOperacion cuando difiere de la de expedición.
func (inv *Invoice) SetOperationDate(fecha string) *Invoice {
	_, err := pkgvf.ParseFecha(fecha)
	inv.errs.set("FechaOperacion", err)
	inv.rec.FechaOperacion = fecha
	return inv
}

// SetSystemInfo SistemaInformatico; el Manager lo completa si queda vacío.
func (inv *Invoice) SetSystemInfo(si SistemaInformatico) *Invoice {
	inv.rec.SistemaInformatico = si
	return inv
}

// SetIncidence marca la remisión como posterior a una incidencia técnica.
func (inv *Invoice) SetIncidence(v bool) *Invoice {
	inv.incidence = v
	return inv
}

// SetSubsanacion marca el alta como subsanación de un registro previo.
func (inv *Invoice) SetSubsanacion(rechazoPrevio bool) *Invoice {
	inv.rec.Subsanacion = pkgvf.Si
	inv.rec.RechazoPrevio = ""
	if rechazoPrevio {
		inv.rec.RechazoPrevio = pkgvf.Si
	}
	return inv
}

// SetThirdParty factura emitida por un tercero.
func (inv *Invoice) SetThirdParty(nif, name string) *Invoice {
	inv.errs.set("Tercero", validateNIF("Tercero", nif))
	inv.rec.EmitidaPorTerceroODestinatario = pkgvf.EmitidaPorTercero
	inv.rec.Tercero = &Persona{NombreRazon: strings.TrimSpace(name), NIF: pkgvf.NormalizeTaxID(nif)}
	return inv
}

// AddRecipient destinatario con NIF español.
func (inv *Invoice) AddRecipient(nif, name string) *Invoice {
	err := validateNIF("Destinatario", nif)
	if strings.TrimSpace(name) == "" {
		err = errors.Join(err, pkgvf.MissingRequiredField("Destinatario.NombreRazon"))
	}
	inv.errs.add("Destinatario", err)
	inv.rec.Destinatarios = append(inv.rec.Destinatarios, Persona{
		NombreRazon: strings.TrimSpace(name),
		NIF:         pkgvf.NormalizeTaxID(nif),
	})
	return inv
}

// AddForeignRecipient destinatario identificado con IDOtro (país ISO 3166 alfa-2, tipo 02..07).
func (inv *Invoice) AddForeignRecipient(name, countryCode, idType, id string) *Invoice {
	country := strings.ToUpper(strings.TrimSpace(countryCode))
	var err error
	switch {
	case strings.TrimSpace(name) == "":
		err = pkgvf.MissingRequiredField("Destinatario.NombreRazon")
	case !pkgvf.ValidIDTypes[idType]:
		err = pkgvf.InvalidInvoiceData("IDType", fmt.Sprintf("valor no admitido %q", idType))
	case len(country) != 2:
		err = pkgvf.InvalidInvoiceData("CodigoPais", fmt.Sprintf("%q no es ISO 3166 alfa-2", countryCode))
	case strings.TrimSpace(id) == "":
		err = pkgvf.MissingRequiredField("IDOtro.ID")
	}
	inv.errs.add("Destinatario", err)
	inv.rec.Destinatarios = append(inv.rec.Destinatarios, Persona{
		NombreRazon: strings.TrimSpace(name),
		IDOtro:      &IDOtro{CodigoPais: country, IDType: idType, ID: strings.TrimSpace(id)},
	})
	return inv
}

// AddDesglose acumula una línea en el desglose y recalcula CuotaTotal e ImporteTotal.
func (inv *Invoice) AddDesglose(line DesgloseLine) *Invoice {
	added, err := inv.desglose.Add(line)
	if err != nil {
		inv.errs.add("Desglose", err)
		return inv
	}
	if added {
		inv.touch()
		inv.syncTotals()
	}
	return inv
}

// AddRectifiedInvoice factura que se rectifica (tipos R1..R5).
func (inv *Invoice) AddRectifiedInvoice(nif, serial, fecha string) *Invoice {
	id, err := buildIDFactura(nif, serial, fecha)
	inv.errs.add("FacturasRectificadas", err)
	inv.rec.FacturasRectificadas = append(inv.rec.FacturasRectificadas, id)
	return inv
}

// AddSubstitutedInvoice factura simplificada sustituida (tipo F3).
func (inv *Invoice) AddSubstitutedInvoice(nif, serial, fecha string) *Invoice {
	id, err := buildIDFactura(nif, serial, fecha)
	inv.errs.add("FacturasSustituidas", err)
	inv.rec.FacturasSustituidas = append(inv.rec.FacturasSustituidas, id)
	return inv
}

// SetRectificationAmounts ImporteRectificacion (obligatorio en rectificación por sustitución).
func (inv *Invoice) SetRectificationAmounts(base, cuota decimal.Decimal, recargo *decimal.Decimal) *Invoice {
	ir := &ImporteRectificacion{
		BaseRectificada:  base.StringFixed(2),
		CuotaRectificada: cuota.StringFixed(2),
	}
	if recargo != nil {
		ir.CuotaRecargoRectificado = recargo.StringFixed(2)
	}
	inv.rec.ImporteRectificacion = ir
	return inv
}

// SetChainLink encadena con el registro anterior; anula SetAsFirstInChain.
func (inv *Invoice) SetChainLink(l ChainLink) *Invoice {
	inv.touch()
	inv.chain.setLink(l)
	return inv
}

// SetAsFirstInChain primer registro del obligado; anula SetChainLink.
func (inv *Invoice) SetAsFirstInChain() *Invoice {
	inv.touch()
	inv.chain.setFirst()
	return inv
}

// ApplyDefaults completa el emisor y el sistema informático que el llamador no informó.
func (inv *Invoice) ApplyDefaults(issuer Party, si SistemaInformatico) *Invoice {
	if inv.rec.IDFactura.IDEmisorFactura == "" && issuer.NIF != "" {
		inv.touch()
		inv.rec.IDFactura.IDEmisorFactura = pkgvf.NormalizeTaxID(issuer.NIF)
	}
	if inv.rec.NombreRazonEmisor == "" {
		inv.rec.NombreRazonEmisor = issuer.NombreRazon
	}
	if inv.rec.SistemaInformatico.IsZero() {
		inv.rec.SistemaInformatico = si
	}
	return inv
}

// ── Lectura ──────────────────────────────────────────────────────────────────

// ID identificación de la factura.
func (inv *Invoice) ID() IDFactura { return inv.rec.IDFactura }

// IssuerName NombreRazonEmisor informado.
func (inv *Invoice) IssuerName() string { return inv.rec.NombreRazonEmisor }

// SystemInfo SistemaInformatico informado.
func (inv *Invoice) SystemInfo() SistemaInformatico { return inv.rec.SistemaInformatico }

// Incidence indica si se remite tras una incidencia.
func (inv *Invoice) Incidence() bool { return inv.incidence }

// Huella huella generada ("" si aún no se ha generado).
func (inv *Invoice) Huella() string { return inv.rec.Huella }

// Timestamp FechaHoraHusoGenRegistro de la huella generada.
func (inv *Invoice) Timestamp() string { return inv.rec.FechaHoraHusoGenRegistro }

// Totals CuotaTotal e ImporteTotal actuales.
func (inv *Invoice) Totals() (cuota, importe decimal.Decimal) { return inv.desglose.Totals() }

// Clone copia independiente del builder.
func (inv *Invoice) Clone() *Invoice {
	c := *inv
	c.rec = *inv.rec.clone()
	c.desglose = inv.desglose.Clone()
	c.errs = inv.errs.clone()
	return &c
}

// ── Huella y validación ──────────────────────────────────────────────────────

// GenerateFingerprint fija FechaHoraHusoGenRegistro al instante actual en loc (Europe/Madrid si
// es nil) y calcula la huella.
func (inv *Invoice) GenerateFingerprint(loc *time.Location) (string, error) {
	return inv.GenerateFingerprintAt(time.Now(), loc)
}

// GenerateFingerprintAt como GenerateFingerprint con un instante dado.
func (inv *Invoice) GenerateFingerprintAt(ts time.Time, loc *time.Location) (string, error) {
	inv.syncTotals()
	inv.rec.Encadenamiento = inv.chain.encadenamiento()
	fecha := stamp(ts, loc)
	huella, err := inv.calc.CalculateAlta(AltaHuellaParams{
		IDEmisorFactura:          inv.rec.IDFactura.IDEmisorFactura,
		NumSerieFactura:          inv.rec.IDFactura.NumSerieFactura,
		FechaExpedicionFactura:   inv.rec.IDFactura.FechaExpedicionFactura,
		TipoFactura:              inv.rec.TipoFactura,
		CuotaTotal:               inv.rec.CuotaTotal,
		ImporteTotal:             inv.rec.ImporteTotal,
		HuellaAnterior:           inv.chain.huellaAnterior(),
		FechaHoraHusoGenRegistro: fecha,
	})
	if err != nil {
		return "", err
	}
	inv.rec.FechaHoraHusoGenRegistro = fecha
	inv.rec.Huella = huella
	return huella, nil
}

// Validate comprueba que el registro está completo. Devuelve los errores unidos con errors.Join.
func (inv *Invoice) Validate() error {
	return inv.validate(true)
}

func (inv *Invoice) validate(requireHuella bool) error {
	errs := inv.errs.list()
	miss := func(cond bool, field string) {
		if cond {
			errs = append(errs, pkgvf.MissingRequiredField(field))
		}
	}
	r := &inv.rec
	tipo := pkgvf.TipoFactura(r.TipoFactura)

	miss(r.IDVersion == "", "IDVersion")
	miss(r.IDFactura.IDEmisorFactura == "", "IDEmisorFactura")
	miss(r.IDFactura.NumSerieFactura == "", "NumSerieFactura")
	miss(r.IDFactura.FechaExpedicionFactura == "", "FechaExpedicionFactura")
	miss(r.NombreRazonEmisor == "", "NombreRazonEmisor")
	miss(r.TipoFactura == "", "TipoFactura")
	miss(r.DescripcionOperacion == "", "DescripcionOperacion")
	miss(r.TipoHuella == "", "TipoHuella")
	miss(inv.desglose.Len() == 0, "Desglose")
	if requireHuella {
		miss(r.FechaHoraHusoGenRegistro == "", "FechaHoraHusoGenRegistro")
		miss(r.Huella == "", "Huella")
	}
	if err := inv.chain.validate(); err != nil {
		errs = append(errs, err)
	}

	switch {
	case tipo.IsSimplificada():
		if len(r.Destinatarios) > 0 {
			errs = append(errs, pkgvf.InvalidInvoiceData("Destinatarios", "no se admiten en facturas simplificadas"))
		}
	case len(r.Destinatarios) == 0:
		errs = append(errs, pkgvf.MissingRequiredField("Destinatarios"))
	case len(r.Destinatarios) > MaxDestinatarios:
		errs = append(errs, pkgvf.InvalidInvoiceData("Destinatarios", "más de 1000 destinatarios"))
	}

	if tipo.IsRectificativa() {
		miss(r.TipoRectificativa == "", "TipoRectificativa")
		miss(pkgvf.TipoRectificativa(r.TipoRectificativa) == pkgvf.RectificacionSustitucion &&
			r.ImporteRectificacion == nil, "ImporteRectificacion")
	} else if r.TipoRectificativa != "" {
		errs = append(errs, pkgvf.InvalidInvoiceData("TipoRectificativa", "solo en facturas rectificativas"))
	}
	if len(r.FacturasSustituidas) > 0 && tipo != pkgvf.FacturaSustitutiva {
		errs = append(errs, pkgvf.InvalidInvoiceData("FacturasSustituidas", "solo en facturas F3"))
	}
	return errors.Join(errs...)
}

// Record valida y devuelve una copia independiente del registro de alta. Genera la huella
// si aún no existe.
func (inv *Invoice) Record() (*RegistroAlta, error) {
	if err := inv.validate(false); err != nil {
		return nil, err
	}
	if inv.rec.Huella == "" {
		if _, err := inv.GenerateFingerprint(nil); err != nil {
			return nil, err
		}
	}
	inv.syncTotals()
	inv.rec.Encadenamiento = inv.chain.encadenamiento()
	if err := inv.validate(true); err != nil {
		return nil, err
	}
	return inv.rec.clone(), nil
}

// RegistrationItem registro envuelto para RegFactuSistemaFacturacion.
func (inv *Invoice) RegistrationItem() (RegistroFactura, error) {
	rec, err := inv.Record()
	if err != nil {
		return RegistroFactura{}, err
	}
	return RegistroFactura{Alta: rec}, nil
}

func (inv *Invoice) syncTotals() {
	cuota, importe := inv.desglose.Totals()
	inv.rec.Desglose = inv.desglose.Details()
	inv.rec.CuotaTotal = cuota.StringFixed(2)
	inv.rec.ImporteTotal = importe.StringFixed(2)
}

func buildIDFactura(nif, serial, fecha string) (IDFactura, error) {
	id := IDFactura{
		IDEmisorFactura:        pkgvf.NormalizeTaxID(nif),
		NumSerieFactura:        strings.TrimSpace(serial),
		FechaExpedicionFactura: strings.TrimSpace(fecha),
	}
	if err := validateNIF("IDEmisorFactura", nif); err != nil {
		return id, err
	}
	if err := pkgvf.ValidateNumSerie(id.NumSerieFactura); err != nil {
		return id, err
	}
	if _, err := pkgvf.ParseFecha(id.FechaExpedicionFactura); err != nil {
		return id, err
	}
	return id, nil
}

func validateNIF(field, nif string) error {
	_, err := pkgvf.ValidateTaxID(nif)
	if be, ok := pkgvf.AsBillingError(err); ok {
		return be.WithContext("field", field)
	}
	return err
}
