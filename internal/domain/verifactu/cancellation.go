package verifactu

import (
	"errors"
	"strings"
	"time"

	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// Cancellation construye un registro de anulación de una factura ya remitida.
// Se encadena igual que un alta.
type Cancellation struct {
	rec       RegistroAnulacion
	chain     chainState
	incidence bool
	errs      fieldErrors
	calc      *HuellaCalculator
}

// NewCancellation anulación de una factura aceptada por la AEAT.
func NewCancellation(issuerNIF, serial, fecha string) *Cancellation {
	c := &Cancellation{
		rec: RegistroAnulacion{
			IDVersion:  pkgvf.SchemaVersion,
			TipoHuella: pkgvf.TipoHuellaSHA256,
		},
		calc: NewHuellaCalculator(),
	}
	if issuerNIF != "" || serial != "" || fecha != "" {
		c.SetInvoice(issuerNIF, serial, fecha)
	}
	return c
}

// NewCancellationOfRejected anulación de una factura cuyo registro fue rechazado.
func NewCancellationOfRejected(issuerNIF, serial, fecha string) *Cancellation {
	return NewCancellation(issuerNIF, serial, fecha).SetAsPreviousRejection(true)
}

// NewCancellationWithoutRecord anulación de una factura de la que no existe registro previo
// (fallo de comunicación antes de registrarla).
func NewCancellationWithoutRecord(issuerNIF, serial, fecha string) *Cancellation {
	return NewCancellation(issuerNIF, serial, fecha).SetWithoutPreviousRecord(true)
}

func (c *Cancellation) touch() {
	c.rec.Huella = ""
	c.rec.FechaHoraHusoGenRegistro = ""
}

// SetInvoice factura que se anula.
func (c *Cancellation) SetInvoice(issuerNIF, serial, fecha string) *Cancellation {
	c.touch()
	id, err := buildIDFactura(issuerNIF, serial, fecha)
	c.errs.set("IDFactura", err)
	c.rec.IDFactura = IDFacturaAnulada{
		IDEmisorFacturaAnulada:        id.IDEmisorFactura,
		NumSerieFacturaAnulada:        id.NumSerieFactura,
		FechaExpedicionFacturaAnulada: id.FechaExpedicionFactura,
	}
	return c
}

// SetAsPreviousRejection RechazoPrevio; al activarlo desactiva SinRegistroPrevio.
func (c *Cancellation) SetAsPreviousRejection(v bool) *Cancellation {
	c.rec.RechazoPrevio = ""
	if v {
		c.rec.RechazoPrevio = pkgvf.Si
		c.rec.SinRegistroPrevio = ""
	}
	return c
}

// SetWithoutPreviousRecord SinRegistroPrevio; al activarlo desactiva RechazoPrevio.
func (c *Cancellation) SetWithoutPreviousRecord(v bool) *Cancellation {
	c.rec.SinRegistroPrevio = ""
	if v {
		c.rec.SinRegistroPrevio = pkgvf.Si
		c.rec.RechazoPrevio = ""
	}
	return c
}

// SetCorrection marca la anulación como subsanación.
func (c *Cancellation) SetCorrection(v bool) *Cancellation {
	c.rec.Subsanacion = ""
	if v {
		c.rec.Subsanacion = pkgvf.Si
	}
	return c
}

// SetExternalReference RefExterna.
func (c *Cancellation) SetExternalReference(ref string) *Cancellation {
	c.rec.RefExterna = strings.TrimSpace(ref)
	return c
}

// SetGenerator anulación generada por el destinatario (D) o un tercero (T).
func (c *Cancellation) SetGenerator(generadoPor, nif, name string) *Cancellation {
	var err error
	if generadoPor != pkgvf.EmitidaPorDestinatario && generadoPor != pkgvf.EmitidaPorTercero && generadoPor != pkgvf.GeneradoPorExpedidor {
		err = pkgvf.InvalidInvoiceData("GeneradoPor", "valor no admitido "+generadoPor)
	}
	c.errs.set("GeneradoPor", err)
	c.errs.set("Generador", validateNIF("Generador", nif))
	c.rec.GeneradoPor = generadoPor
	c.rec.Generador = &Persona{NombreRazon: strings.TrimSpace(name), NIF: pkgvf.NormalizeTaxID(nif)}
	return c
}

// SetSystemInfo SistemaInformatico.
func (c *Cancellation) SetSystemInfo(si SistemaInformatico) *Cancellation {
	c.rec.SistemaInformatico = si
	return c
}

// SetIncidence marca la remisión como posterior a una incidencia técnica.
func (c *Cancellation) SetIncidence(v bool) *Cancellation {
	c.incidence = v
	return c
}

// SetChainLink encadena con el registro anterior; anula SetAsFirstInChain.
func (c *Cancellation) SetChainLink(l ChainLink) *Cancellation {
	c.touch()
	c.chain.setLink(l)
	return c
}

// SetAsFirstInChain primer registro de la cadena; anula SetChainLink.
func (c *Cancellation) SetAsFirstInChain() *Cancellation {
	c.touch()
	c.chain.setFirst()
	return c
}

// ApplyDefaults completa el emisor de la factura anulada y el sistema informático.
func (c *Cancellation) ApplyDefaults(issuer Party, si SistemaInformatico) *Cancellation {
	if c.rec.IDFactura.IDEmisorFacturaAnulada == "" && issuer.NIF != "" {
		c.touch()
		c.rec.IDFactura.IDEmisorFacturaAnulada = pkgvf.NormalizeTaxID(issuer.NIF)
	}
	if c.rec.SistemaInformatico.IsZero() {
		c.rec.SistemaInformatico = si
	}
	return c
}

// ID identificación de la factura anulada.
func (c *Cancellation) ID() IDFacturaAnulada { return c.rec.IDFactura }

// SystemInfo SistemaInformatico informado.
func (c *Cancellation) SystemInfo() SistemaInformatico { return c.rec.SistemaInformatico }

// Incidence indica si se remite tras una incidencia.
func (c *Cancellation) Incidence() bool { return c.incidence }

// Huella huella generada.
func (c *Cancellation) Huella() string { return c.rec.Huella }

// Timestamp FechaHoraHusoGenRegistro de la huella generada.
func (c *Cancellation) Timestamp() string { return c.rec.FechaHoraHusoGenRegistro }

// Clone copia independiente del builder.
func (c *Cancellation) Clone() *Cancellation {
	cp := *c
	cp.rec = *c.rec.clone()
	cp.errs = c.errs.clone()
	return &cp
}

// GenerateFingerprint fija FechaHoraHusoGenRegistro en loc (Europe/Madrid si es nil) y calcula la huella.
func (c *Cancellation) GenerateFingerprint(loc *time.Location) (string, error) {
	return c.GenerateFingerprintAt(time.Now(), loc)
}

// GenerateFingerprintAt como GenerateFingerprint con un instante dado.
func (c *Cancellation) GenerateFingerprintAt(ts time.Time, loc *time.Location) (string, error) {
	c.rec.Encadenamiento = c.chain.encadenamiento()
	fecha := stamp(ts, loc)
	huella, err := c.calc.CalculateAnulacion(AnulacionHuellaParams{
		IDEmisorFacturaAnulada:        c.rec.IDFactura.IDEmisorFacturaAnulada,
		NumSerieFacturaAnulada:        c.rec.IDFactura.NumSerieFacturaAnulada,
		FechaExpedicionFacturaAnulada: c.rec.IDFactura.FechaExpedicionFacturaAnulada,
		HuellaAnterior:                c.chain.huellaAnterior(),
		FechaHoraHusoGenRegistro:      fecha,
	})
	if err != nil {
		return "", err
	}
	c.rec.FechaHoraHusoGenRegistro = fecha
	c.rec.Huella = huella
	return huella, nil
}

// Validate comprueba que el registro está completo.
func (c *Cancellation) Validate() error {
	return c.validate(true)
}

func (c *Cancellation) validate(requireHuella bool) error {
	errs := c.errs.list()
	miss := func(cond bool, field string) {
		if cond {
			errs = append(errs, pkgvf.MissingRequiredField(field))
		}
	}
	r := &c.rec
	miss(r.IDVersion == "", "IDVersion")
	miss(r.IDFactura.IDEmisorFacturaAnulada == "", "IDEmisorFacturaAnulada")
	miss(r.IDFactura.NumSerieFacturaAnulada == "", "NumSerieFacturaAnulada")
	miss(r.IDFactura.FechaExpedicionFacturaAnulada == "", "FechaExpedicionFacturaAnulada")
	miss(r.TipoHuella == "", "TipoHuella")
	if requireHuella {
		miss(r.FechaHoraHusoGenRegistro == "", "FechaHoraHusoGenRegistro")
		miss(r.Huella == "", "Huella")
	}
	if r.RechazoPrevio == pkgvf.Si && r.SinRegistroPrevio == pkgvf.Si {
		errs = append(errs, pkgvf.InvalidInvoiceData("RechazoPrevio", "excluyente con SinRegistroPrevio"))
	}
	if err := c.chain.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Record valida y devuelve una copia independiente del registro de anulación.
func (c *Cancellation) Record() (*RegistroAnulacion, error) {
	if err := c.validate(false); err != nil {
		return nil, err
	}
	if c.rec.Huella == "" {
		if _, err := c.GenerateFingerprint(nil); err != nil {
			return nil, err
		}
	}
	c.rec.Encadenamiento = c.chain.encadenamiento()
	if err := c.validate(true); err != nil {
		return nil, err
	}
	return c.rec.clone(), nil
}

// RegistrationItem registro envuelto para RegFactuSistemaFacturacion.
func (c *Cancellation) RegistrationItem() (RegistroFactura, error) {
	rec, err := c.Record()
	if err != nil {
		return RegistroFactura{}, err
	}
	return RegistroFactura{Anulacion: rec}, nil
}
