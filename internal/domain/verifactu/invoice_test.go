package verifactu_test

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Verifactu-api/internal/domain/verifactu"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

const (
	testNIF        = "89890001K"
	testCliente    = "B12345674"
	huellaFactura1 = "F81DC8A7259991160F03B90190C7FA4F4F83F3C87CE7440668FCC414C7C0BE69"
)

// 2024-09-01T10:00:00+02:00 en Madrid
var tsFactura1 = time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)

func buildTestInvoice() *verifactu.Invoice {
	return verifactu.NewInvoice(testNIF, "F2024-001", "01-09-2024").
		SetIssuer(testNIF, "Empresa Ejemplo SL").
		SetDescription("Servicios de consultoría").
		AddRecipient(testCliente, "Cliente Ejemplo SA").
		AddDesglose(line("100.00", "21")).
		SetAsFirstInChain()
}

// ── Escenario 1: factura F2024-001, base 100 al 21 % ────────────────────────

func TestInvoice_Escenario1(t *testing.T) {
	inv := buildTestInvoice()

	h, err := inv.GenerateFingerprintAt(tsFactura1, nil)
	require.NoError(t, err)
	assert.Equal(t, huellaFactura1, h)
	assert.Equal(t, "2024-09-01T10:00:00+02:00", inv.Timestamp())

	rec, err := inv.Record()
	require.NoError(t, err)
	assert.Equal(t, "21.00", rec.CuotaTotal)
	assert.Equal(t, "121.00", rec.ImporteTotal)
	assert.Equal(t, huellaFactura1, rec.Huella, "Record conserva la huella ya generada")
	assert.Equal(t, "S", rec.Encadenamiento.PrimerRegistro)
	assert.Nil(t, rec.Encadenamiento.RegistroAnterior)
	assert.Equal(t, pkgvf.TipoHuellaSHA256, rec.TipoHuella)
	assert.Equal(t, pkgvf.SchemaVersion, rec.IDVersion)
	require.Len(t, rec.Desglose, 1)
	assert.Equal(t, "100.00", rec.Desglose[0].BaseImponibleOimporteNoSujeto)
	assert.Equal(t, "S1", rec.Desglose[0].CalificacionOperacion)
	assert.Equal(t, "01", rec.Desglose[0].ClaveRegimen)
}

func TestInvoice_Encadenada(t *testing.T) {
	first := buildTestInvoice()
	_, err := first.GenerateFingerprintAt(tsFactura1, nil)
	require.NoError(t, err)
	prev, err := first.Record()
	require.NoError(t, err)

	next := verifactu.NewInvoice(testNIF, "F2024-002", "02-09-2024").
		SetIssuer(testNIF, "Empresa Ejemplo SL").
		SetDescription("Servicios").
		AddRecipient(testCliente, "Cliente Ejemplo SA").
		AddDesglose(line("50", "21")).
		SetChainLink(verifactu.ChainLinkFrom(prev))

	h, err := next.GenerateFingerprintAt(time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Equal(t, "561C4D43DC2544FD3B2C2892205235CBC1A7786BF9F16362D445C982AAA26B00", h)

	rec, err := next.Record()
	require.NoError(t, err)
	require.NotNil(t, rec.Encadenamiento.RegistroAnterior)
	assert.Empty(t, rec.Encadenamiento.PrimerRegistro)
	assert.Equal(t, "F2024-001", rec.Encadenamiento.RegistroAnterior.NumSerieFactura)
	assert.Equal(t, huellaFactura1, rec.Encadenamiento.HuellaAnterior())
}

// ── Cadena ───────────────────────────────────────────────────────────────────

func TestInvoice_SinEncadenamientoNoValida(t *testing.T) {
	inv := verifactu.NewInvoice(testNIF, "F2024-001", "01-09-2024").
		SetIssuer(testNIF, "Empresa Ejemplo SL").
		SetDescription("x").
		AddRecipient(testCliente, "Cliente").
		AddDesglose(line("100", "21"))
	_, err := inv.GenerateFingerprintAt(tsFactura1, nil)
	require.NoError(t, err)

	err = inv.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Encadenamiento")

	_, err = inv.Record()
	assert.Error(t, err)
}

func TestInvoice_PrimeroYEnlaceSeSustituyen(t *testing.T) {
	link := verifactu.ChainLink{
		IDEmisorFactura: testNIF, NumSerieFactura: "F0", FechaExpedicionFactura: "31-08-2024", Huella: huellaFactura1,
	}
	rec, err := buildTestInvoice().SetChainLink(link).Record()
	require.NoError(t, err)
	assert.Empty(t, rec.Encadenamiento.PrimerRegistro)
	assert.NotNil(t, rec.Encadenamiento.RegistroAnterior)

	rec, err = buildTestInvoice().SetChainLink(link).SetAsFirstInChain().Record()
	require.NoError(t, err)
	assert.Equal(t, "S", rec.Encadenamiento.PrimerRegistro)
	assert.Nil(t, rec.Encadenamiento.RegistroAnterior)
}

func TestInvoice_EnlaceInvalido(t *testing.T) {
	_, err := buildTestInvoice().SetChainLink(verifactu.ChainLink{
		IDEmisorFactura: testNIF, NumSerieFactura: "F0", FechaExpedicionFactura: "31-08-2024", Huella: "abc",
	}).Record()
	require.Error(t, err)
	assert.True(t, pkgvf.HasKind(err, pkgvf.KindChainLinkageError))
}

// ── Validación ───────────────────────────────────────────────────────────────

func TestInvoice_CamposObligatorios(t *testing.T) {
	err := verifactu.NewInvoice("", "", "").Validate()
	require.Error(t, err)
	for _, field := range []string{
		"IDEmisorFactura", "NumSerieFactura", "FechaExpedicionFactura", "NombreRazonEmisor",
		"DescripcionOperacion", "FechaHoraHusoGenRegistro", "Huella", "Desglose", "Destinatarios",
	} {
		assert.Contains(t, err.Error(), field)
	}
	assert.True(t, pkgvf.HasKind(err, pkgvf.KindMissingRequiredField))
}

func TestInvoice_DatosInvalidosSeAcumulan(t *testing.T) {
	inv := buildTestInvoice().
		AddRecipient("12345678A", "NIF mal").
		AddDesglose(line("10", "150")).
		SetType("X9")
	_, err := inv.Record()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "12345678A")
	assert.Contains(t, err.Error(), "TipoImpositivo")
	assert.Contains(t, err.Error(), "TipoFactura")
}

func TestInvoice_Simplificada(t *testing.T) {
	inv := verifactu.NewSimplificada(testNIF, "T-1", "01-09-2024").
		SetIssuer(testNIF, "Empresa Ejemplo SL").
		SetDescription("Ticket").
		AddDesglose(line("10", "10")).
		SetAsFirstInChain()
	rec, err := inv.Record()
	require.NoError(t, err, "F2 no exige destinatario")
	assert.Equal(t, "F2", rec.TipoFactura)
	assert.Equal(t, "11.00", rec.ImporteTotal)

	_, err = inv.AddRecipient(testCliente, "Cliente").Record()
	assert.Error(t, err, "F2 no admite destinatarios")
}

func TestInvoice_Rectificativa(t *testing.T) {
	build := func() *verifactu.Invoice {
		return verifactu.NewRectificativa(testNIF, "R-1", "05-09-2024",
			pkgvf.RectificativaErrorDerecho, pkgvf.RectificacionSustitucion).
			SetIssuer(testNIF, "Empresa Ejemplo SL").
			SetDescription("Rectificación").
			AddRecipient(testCliente, "Cliente").
			AddRectifiedInvoice(testNIF, "F2024-001", "01-09-2024").
			AddDesglose(line("90", "21")).
			SetAsFirstInChain()
	}

	_, err := build().Record()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ImporteRectificacion")

	rec, err := build().SetRectificationAmounts(dec("100"), dec("21"), nil).Record()
	require.NoError(t, err)
	assert.Equal(t, "R1", rec.TipoFactura)
	assert.Equal(t, "S", rec.TipoRectificativa)
	require.Len(t, rec.FacturasRectificadas, 1)
	assert.Equal(t, "100.00", rec.ImporteRectificacion.BaseRectificada)

	err = verifactu.NewRectificativa(testNIF, "R-2", "05-09-2024", pkgvf.FacturaCompleta, pkgvf.RectificacionDiferencias).Validate()
	assert.Contains(t, err.Error(), "no es rectificativa")
}

func TestInvoice_Subsanacion(t *testing.T) {
	inv := verifactu.NewSubsanacion(testNIF, "F2024-001", "01-09-2024", true).
		SetIssuer(testNIF, "Empresa Ejemplo SL").
		SetDescription("x").
		AddRecipient(testCliente, "Cliente").
		AddDesglose(line("100", "21")).
		SetAsFirstInChain()
	rec, err := inv.Record()
	require.NoError(t, err)
	assert.Equal(t, "S", rec.Subsanacion)
	assert.Equal(t, "S", rec.RechazoPrevio)
}

func TestInvoice_DestinatarioExtranjero(t *testing.T) {
	rec, err := verifactu.NewInvoice(testNIF, "F-EX", "01-09-2024").
		SetIssuer(testNIF, "Empresa Ejemplo SL").
		SetDescription("Export").
		AddForeignRecipient("ACME GmbH", "de", pkgvf.IDTypeNIFIVA, "DE123456789").
		AddDesglose(verifactu.DesgloseLine{Base: dec("100"), OperacionExenta: pkgvf.ExentaArt21, ClaveRegimen: pkgvf.RegimenExportacion}).
		SetAsFirstInChain().
		Record()
	require.NoError(t, err)
	require.NotNil(t, rec.Destinatarios[0].IDOtro)
	assert.Equal(t, "DE", rec.Destinatarios[0].IDOtro.CodigoPais)
	assert.Equal(t, "0.00", rec.CuotaTotal)
	assert.Equal(t, "100.00", rec.ImporteTotal)

	err = verifactu.NewInvoice(testNIF, "F-EX", "01-09-2024").AddForeignRecipient("X", "DE", "99", "1").Validate()
	assert.Contains(t, err.Error(), "IDType")
}

// ── Huella ───────────────────────────────────────────────────────────────────

func TestInvoice_CambioInvalidaHuella(t *testing.T) {
	inv := buildTestInvoice()
	_, err := inv.GenerateFingerprintAt(tsFactura1, nil)
	require.NoError(t, err)

	inv.AddDesglose(line("100", "10"))
	assert.Empty(t, inv.Huella(), "cambiar el desglose invalida la huella")

	rec, err := inv.Record()
	require.NoError(t, err)
	assert.NotEqual(t, huellaFactura1, rec.Huella)
	assert.Equal(t, "231.00", rec.ImporteTotal)
}

func TestInvoice_NuevoTimestampCambiaHuella(t *testing.T) {
	inv := buildTestInvoice()
	h1, err := inv.GenerateFingerprintAt(tsFactura1, nil)
	require.NoError(t, err)
	h2, err := inv.GenerateFingerprintAt(tsFactura1.Add(time.Second), nil)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	h3, err := inv.GenerateFingerprintAt(tsFactura1, nil)
	require.NoError(t, err)
	assert.Equal(t, h1, h3)
}

func TestInvoice_ZonaHoraria(t *testing.T) {
	canarias, err := time.LoadLocation("Atlantic/Canary")
	require.NoError(t, err)
	inv := buildTestInvoice()
	_, err = inv.GenerateFingerprintAt(tsFactura1, canarias)
	require.NoError(t, err)
	assert.Equal(t, "2024-09-01T09:00:00+01:00", inv.Timestamp())
}

// ── Copias ───────────────────────────────────────────────────────────────────

func TestInvoice_RecordDevuelveCopia(t *testing.T) {
	inv := buildTestInvoice()
	rec1, err := inv.Record()
	require.NoError(t, err)
	rec1.Destinatarios[0].NombreRazon = "mutado"
	rec1.Desglose[0].CuotaRepercutida = "0"

	rec2, err := inv.Record()
	require.NoError(t, err)
	assert.Equal(t, "Cliente Ejemplo SA", rec2.Destinatarios[0].NombreRazon)
	assert.Equal(t, "21.00", rec2.Desglose[0].CuotaRepercutida)
}

func TestInvoice_Clone(t *testing.T) {
	inv := buildTestInvoice()
	c := inv.Clone().AddDesglose(line("100", "21"))
	_, imp := inv.Totals()
	_, impClone := c.Totals()
	assert.Equal(t, "121.00", imp.StringFixed(2))
	assert.Equal(t, "242.00", impClone.StringFixed(2))
}

func TestInvoice_ApplyDefaults(t *testing.T) {
	si := verifactu.SistemaInformatico{NIF: testNIF, IdSistemaInformatico: "01"}
	inv := verifactu.NewInvoice("", "F-1", "01-09-2024").
		ApplyDefaults(verifactu.Party{NIF: testNIF, NombreRazon: "Empresa"}, si)
	assert.Equal(t, testNIF, inv.ID().IDEmisorFactura)
	assert.Equal(t, "Empresa", inv.IssuerName())
	assert.Equal(t, "01", inv.SystemInfo().IdSistemaInformatico)

	inv2 := buildTestInvoice().ApplyDefaults(verifactu.Party{NIF: "X1234567L", NombreRazon: "Otro"}, si)
	assert.Equal(t, testNIF, inv2.ID().IDEmisorFactura, "no pisa lo informado por el llamador")
	assert.Equal(t, "Empresa Ejemplo SL", inv2.IssuerName())
}

// ── Serialización ────────────────────────────────────────────────────────────

func TestInvoice_XMLConPrefijos(t *testing.T) {
	item, err := buildTestInvoice().RegistrationItem()
	require.NoError(t, err)
	body := verifactu.RegFactuSistemaFacturacion{
		Cabecera:        verifactu.NewCabecera(verifactu.Party{NIF: testNIF, NombreRazon: "Empresa Ejemplo SL"}, false),
		RegistroFactura: []verifactu.RegistroFactura{item},
	}
	out, err := xml.Marshal(body)
	require.NoError(t, err)
	s := string(out)

	assert.Contains(t, s, "<sum:RegFactuSistemaFacturacion>")
	assert.Contains(t, s, "<sum:Cabecera><sum1:IDVersion>1.0</sum1:IDVersion><sum1:ObligadoEmision>")
	assert.Contains(t, s, "<sum:RegistroFactura><sum1:RegistroAlta>")
	assert.Contains(t, s, "<sum1:Desglose><sum1:DetalleDesglose><sum1:Impuesto>01</sum1:Impuesto>")
	assert.Contains(t, s, "<sum1:Destinatarios><sum1:IDDestinatario>")
	assert.Contains(t, s, "<sum1:Encadenamiento><sum1:PrimerRegistro>S</sum1:PrimerRegistro></sum1:Encadenamiento>")
	assert.NotContains(t, s, "RegistroAnulacion")
	assert.NotContains(t, s, "RemisionVoluntaria")
}

// ── Corrección de valores ────────────────────────────────────────────────────

func TestInvoice_ElUltimoSetterCorrigeElError(t *testing.T) {
	tests := []struct {
		name  string
		build func() *verifactu.Invoice
	}{
		{
			name: "enlace inválido sustituido por primer registro",
			build: func() *verifactu.Invoice {
				return buildTestInvoice().SetChainLink(verifactu.ChainLink{Huella: "abc"}).SetAsFirstInChain()
			},
		},
		{
			name: "tipo no admitido corregido",
			build: func() *verifactu.Invoice {
				return buildTestInvoice().SetType("F9").SetType(pkgvf.FacturaCompleta)
			},
		},
		{
			name: "emisor con NIF erróneo corregido",
			build: func() *verifactu.Invoice {
				return buildTestInvoice().SetIssuer("12345678A", "Empresa").SetIssuer(testNIF, "Empresa Ejemplo SL")
			},
		},
		{
			name: "fecha de operación corregida",
			build: func() *verifactu.Invoice {
				return buildTestInvoice().SetOperationDate("31-02-2024").SetOperationDate("31-08-2024")
			},
		},
		{
			name: "descripción demasiado larga sustituida",
			build: func() *verifactu.Invoice {
				return buildTestInvoice().SetDescription(strings.Repeat("x", 501)).SetDescription("Servicios")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Record()
			assert.NoError(t, err)
		})
	}
}

func TestInvoice_EnlaceInvalidoSeInformaUnaVez(t *testing.T) {
	link := linkFactura1()
	link.Huella = "abc"
	_, err := buildTestInvoice().SetChainLink(link).Record()
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(err.Error(), "la huella anterior debe ser SHA-256"))
}

func TestInvoice_ErroresDeDestinatarioNoSeBorran(t *testing.T) {
	inv := buildTestInvoice().AddRecipient("12345678A", "Malo").AddRecipient(testCliente, "Bueno")
	_, err := inv.Record()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "12345678A")
}

func TestInvoice_CloneNoComparteErrores(t *testing.T) {
	inv := buildTestInvoice().SetType("F9")
	c := inv.Clone()
	c.SetType(pkgvf.FacturaCompleta)

	_, err := c.Record()
	assert.NoError(t, err)
	_, err = inv.Record()
	assert.Error(t, err)
}
