package verifactu

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

var (
	hundred = decimal.NewFromInt(100)
	maxRate = decimal.NewFromInt(100)
)

// DesgloseLine línea de entrada del desglose. Los punteros nil significan "no informado".
type DesgloseLine struct {
	Impuesto        pkgvf.Impuesto      // por defecto 01 (IVA)
	ClaveRegimen    pkgvf.ClaveRegimen  // por defecto 01 para IVA e IGIC
	Calificacion    pkgvf.Calificacion  // S1, S2, N1, N2; excluyente con OperacionExenta
	OperacionExenta pkgvf.CausaExencion // E1..E6
	Base            decimal.Decimal
	TipoImpositivo  *decimal.Decimal
	Cuota           *decimal.Decimal // si es nil se calcula como base × tipo / 100
	BaseACoste      *decimal.Decimal // regímenes 03 y 05
	TipoRecargo     *decimal.Decimal
	CuotaRecargo    *decimal.Decimal // si es nil se calcula como base × tipoRecargo / 100
}

// DecPtr puntero a un decimal, para rellenar los campos opcionales de DesgloseLine.
func DecPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// breakdownKey clave de agregación. Los decimales van como texto redondeado a 1 decimal
// para que la clave sea comparable.
type breakdownKey struct {
	impuesto  pkgvf.Impuesto
	operacion string
	regimen   pkgvf.ClaveRegimen
	tipo      string
	recargo   string
}

type taxGroup struct {
	calificacion pkgvf.Calificacion
	exencion     pkgvf.CausaExencion
	tipo         *decimal.Decimal
	tipoRecargo  *decimal.Decimal

	// acumuladores sin redondear
	base       decimal.Decimal
	baseCoste  decimal.Decimal
	cuota      decimal.Decimal
	recargo    decimal.Decimal
	hasCoste   bool
	hasRecargo bool
}

// TaxBreakdown agrupa las líneas por clave en orden de inserción. El redondeo a 2 decimales se
// aplica una sola vez por grupo al renderizar.
type TaxBreakdown struct {
	order  []breakdownKey
	groups map[breakdownKey]*taxGroup
}

// NewTaxBreakdown crea un desglose vacío.
func NewTaxBreakdown() *TaxBreakdown {
	return &TaxBreakdown{groups: make(map[breakdownKey]*taxGroup)}
}

// Len número de grupos.
func (b *TaxBreakdown) Len() int { return len(b.order) }

// Add acumula una línea. Devuelve false sin error si la línea no aporta nada
// (base 0 y tipo 0 o ausente).
func (b *TaxBreakdown) Add(line DesgloseLine) (bool, error) {
	if line.Base.IsZero() && (line.TipoImpositivo == nil || line.TipoImpositivo.IsZero()) {
		return false, nil
	}
	line = withDefaults(line)
	if err := validateLine(line); err != nil {
		return false, err
	}

	key := breakdownKey{
		impuesto:  line.Impuesto,
		operacion: string(line.Calificacion) + string(line.OperacionExenta),
		regimen:   line.ClaveRegimen,
		tipo:      roundKey(line.TipoImpositivo),
		recargo:   roundKey(line.TipoRecargo),
	}
	g, ok := b.groups[key]
	if !ok {
		g = &taxGroup{
			calificacion: line.Calificacion,
			exencion:     line.OperacionExenta,
			tipo:         rounded1(line.TipoImpositivo),
			tipoRecargo:  rounded1(line.TipoRecargo),
		}
		b.groups[key] = g
		b.order = append(b.order, key)
	}

	taxable := line.Base
	if line.BaseACoste != nil {
		taxable = *line.BaseACoste
		g.baseCoste = g.baseCoste.Add(*line.BaseACoste)
		g.hasCoste = true
	}
	g.base = g.base.Add(line.Base)

	switch {
	case line.Calificacion == pkgvf.SujetaInversion:
		// inversión del sujeto pasivo: la cuota la declara el destinatario
	case line.Cuota != nil:
		g.cuota = g.cuota.Add(*line.Cuota)
	case line.TipoImpositivo != nil:
		g.cuota = g.cuota.Add(taxable.Mul(*line.TipoImpositivo).Div(hundred))
	}

	if line.TipoRecargo != nil || line.CuotaRecargo != nil {
		g.hasRecargo = true
		switch {
		case line.CuotaRecargo != nil:
			g.recargo = g.recargo.Add(*line.CuotaRecargo)
		default:
			g.recargo = g.recargo.Add(taxable.Mul(*line.TipoRecargo).Div(hundred))
		}
	}
	return true, nil
}

// Details renderiza los grupos con cada importe redondeado a 2 decimales.
func (b *TaxBreakdown) Details() []DetalleDesglose {
	out := make([]DetalleDesglose, 0, len(b.order))
	for _, k := range b.order {
		g := b.groups[k]
		d := DetalleDesglose{
			Impuesto:                      string(k.impuesto),
			ClaveRegimen:                  string(k.regimen),
			CalificacionOperacion:         string(g.calificacion),
			OperacionExenta:               string(g.exencion),
			BaseImponibleOimporteNoSujeto: round2(g.base).StringFixed(2),
		}
		if g.calificacion.IsSujeta() {
			if g.tipo != nil {
				d.TipoImpositivo = g.tipo.StringFixed(2)
			}
			d.CuotaRepercutida = round2(g.cuota).StringFixed(2)
		}
		if g.hasCoste {
			d.BaseImponibleACoste = round2(g.baseCoste).StringFixed(2)
		}
		if g.hasRecargo {
			if g.tipoRecargo != nil {
				d.TipoRecargoEquivalencia = g.tipoRecargo.StringFixed(2)
			}
			d.CuotaRecargoEquivalencia = round2(g.recargo).StringFixed(2)
		}
		out = append(out, d)
	}
	return out
}

// Totals CuotaTotal = Σ cuota + Σ recargo; ImporteTotal = Σ base + CuotaTotal.
// Cada grupo se redondea antes de sumar.
func (b *TaxBreakdown) Totals() (cuotaTotal, importeTotal decimal.Decimal) {
	var bases decimal.Decimal
	for _, k := range b.order {
		g := b.groups[k]
		bases = bases.Add(round2(g.base))
		if g.calificacion.IsSujeta() {
			cuotaTotal = cuotaTotal.Add(round2(g.cuota))
		}
		if g.hasRecargo {
			cuotaTotal = cuotaTotal.Add(round2(g.recargo))
		}
	}
	return cuotaTotal, bases.Add(cuotaTotal)
}

// Clone copia profunda del desglose.
func (b *TaxBreakdown) Clone() *TaxBreakdown {
	c := NewTaxBreakdown()
	c.order = append(c.order, b.order...)
	for k, g := range b.groups {
		cg := *g
		c.groups[k] = &cg
	}
	return c
}

func withDefaults(line DesgloseLine) DesgloseLine {
	if line.Impuesto == "" {
		line.Impuesto = pkgvf.ImpuestoIVA
	}
	if line.ClaveRegimen == "" && (line.Impuesto == pkgvf.ImpuestoIVA || line.Impuesto == pkgvf.ImpuestoIGIC) {
		line.ClaveRegimen = pkgvf.RegimenGeneral
	}
	if line.Calificacion == "" && line.OperacionExenta == "" {
		line.Calificacion = pkgvf.SujetaNoExenta
	}
	return line
}

func validateLine(line DesgloseLine) error {
	if !pkgvf.ValidImpuestos[line.Impuesto] {
		return pkgvf.InvalidInvoiceData("Impuesto", fmt.Sprintf("valor no admitido %q", line.Impuesto))
	}
	if line.ClaveRegimen != "" && !pkgvf.ValidClavesRegimen[line.ClaveRegimen] {
		return pkgvf.InvalidInvoiceData("ClaveRegimen", fmt.Sprintf("valor no admitido %q", line.ClaveRegimen))
	}
	if line.Calificacion != "" && line.OperacionExenta != "" {
		return pkgvf.InvalidInvoiceData("CalificacionOperacion", "excluyente con OperacionExenta")
	}
	if line.Calificacion != "" && !pkgvf.ValidCalificaciones[line.Calificacion] {
		return pkgvf.InvalidInvoiceData("CalificacionOperacion", fmt.Sprintf("valor no admitido %q", line.Calificacion))
	}
	if line.OperacionExenta != "" && !pkgvf.ValidCausasExencion[line.OperacionExenta] {
		return pkgvf.InvalidInvoiceData("OperacionExenta", fmt.Sprintf("valor no admitido %q", line.OperacionExenta))
	}
	if line.Calificacion.IsSujeta() && line.TipoImpositivo == nil && line.Cuota == nil {
		return pkgvf.MissingRequiredField("TipoImpositivo")
	}
	if !line.Calificacion.IsSujeta() && (line.Cuota != nil || line.TipoRecargo != nil || line.CuotaRecargo != nil) {
		return pkgvf.InvalidInvoiceData("CuotaRepercutida", "solo en operaciones sujetas y no exentas")
	}
	if err := checkRate("TipoImpositivo", line.TipoImpositivo); err != nil {
		return err
	}
	if err := checkRate("TipoRecargoEquivalencia", line.TipoRecargo); err != nil {
		return err
	}
	if line.CuotaRecargo != nil && line.TipoRecargo == nil {
		return pkgvf.MissingRequiredField("TipoRecargoEquivalencia")
	}
	if line.BaseACoste != nil && !line.ClaveRegimen.UsesCostBase() {
		return pkgvf.InvalidInvoiceData("BaseImponibleACoste", "solo con ClaveRegimen 03 o 05")
	}
	return nil
}

func checkRate(field string, r *decimal.Decimal) error {
	if r == nil {
		return nil
	}
	if r.IsNegative() || r.GreaterThan(maxRate) {
		return pkgvf.InvalidInvoiceData(field, "debe estar entre 0 y 100")
	}
	return nil
}

func roundKey(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.Round(1).StringFixed(1)
}

func rounded1(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(1)
	return &r
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
