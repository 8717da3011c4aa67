package verifactu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Verifactu-api/internal/domain/verifactu"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// ──────────────────────────────────────────────────────────────────────────────
// Vectores publicados por la AEAT en el documento de cálculo de huella.
// Si cambia el orden de los campos, el formato de importes o el hash, fallan.
// ──────────────────────────────────────────────────────────────────────────────

func TestCalculateAlta_VectorAEAT(t *testing.T) {
	calc := verifactu.NewHuellaCalculator()
	p := verifactu.AltaHuellaParams{
		IDEmisorFactura:          "89890001K",
		NumSerieFactura:          "12345678/G33",
		FechaExpedicionFactura:   "01-01-2024",
		TipoFactura:              "F1",
		CuotaTotal:               "12.35",
		ImporteTotal:             "123.45",
		HuellaAnterior:           "",
		FechaHoraHusoGenRegistro: "2024-01-01T19:20:30+01:00",
	}

	chain, err := calc.AltaChain(p)
	require.NoError(t, err)
	assert.Equal(t, "IDEmisorFactura=89890001K&NumSerieFactura=12345678/G33&FechaExpedicionFactura=01-01-2024"+
		"&TipoFactura=F1&CuotaTotal=12.35&ImporteTotal=123.45&Huella=&FechaHoraHusoGenRegistro=2024-01-01T19:20:30+01:00", chain)

	huella, err := calc.CalculateAlta(p)
	require.NoError(t, err)
	assert.Equal(t, "3C464DAF61ACB827C65FDA19F352A4E3BDC2C640E9E9FC4CC058073F38F12F60", huella)
}

func TestCalculateAnulacion_VectorAEAT(t *testing.T) {
	calc := verifactu.NewHuellaCalculator()
	huella, err := calc.CalculateAnulacion(verifactu.AnulacionHuellaParams{
		IDEmisorFacturaAnulada:        "89890001K",
		NumSerieFacturaAnulada:        "12345679/G34",
		FechaExpedicionFacturaAnulada: "01-01-2024",
		HuellaAnterior:                "F7B94CFD8924EDFF273501B01EE5153E4CE8F259766F88CF6ACB8935802A2B97",
		FechaHoraHusoGenRegistro:      "2024-01-01T19:20:40+01:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "177547C0D57AC74748561D054A9CEC14B4C4EA23D1BEFD6F2E69E3A388F90C68", huella)
}

// TestCalculateAlta_NormalizaImportes "12.3" y " 12.350 " se hashean como "12.35"/"12.30".
func TestCalculateAlta_NormalizaImportes(t *testing.T) {
	calc := verifactu.NewHuellaCalculator()
	base := verifactu.AltaHuellaParams{
		IDEmisorFactura:          " 89890001K ",
		NumSerieFactura:          "12345678/G33",
		FechaExpedicionFactura:   "01-01-2024",
		TipoFactura:              "F1",
		CuotaTotal:               "12.350",
		ImporteTotal:             "123.45",
		FechaHoraHusoGenRegistro: "2024-01-01T19:20:30+01:00",
	}
	h, err := calc.CalculateAlta(base)
	require.NoError(t, err)
	assert.Equal(t, "3C464DAF61ACB827C65FDA19F352A4E3BDC2C640E9E9FC4CC058073F38F12F60", h,
		"los valores se recortan y los importes van a 2 decimales")
}

func TestCalculateAlta_Determinismo(t *testing.T) {
	calc := verifactu.NewHuellaCalculator()
	p := verifactu.AltaHuellaParams{
		IDEmisorFactura: "89890001K", NumSerieFactura: "A-1", FechaExpedicionFactura: "01-09-2024",
		TipoFactura: "F1", CuotaTotal: "21", ImporteTotal: "121",
		FechaHoraHusoGenRegistro: "2024-09-01T10:00:00+02:00",
	}
	h1, err := calc.CalculateAlta(p)
	require.NoError(t, err)
	h2, err := calc.CalculateAlta(p)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	mutations := []func(*verifactu.AltaHuellaParams){
		func(p *verifactu.AltaHuellaParams) { p.IDEmisorFactura = "X1234567L" },
		func(p *verifactu.AltaHuellaParams) { p.NumSerieFactura = "A-2" },
		func(p *verifactu.AltaHuellaParams) { p.FechaExpedicionFactura = "02-09-2024" },
		func(p *verifactu.AltaHuellaParams) { p.TipoFactura = "F2" },
		func(p *verifactu.AltaHuellaParams) { p.CuotaTotal = "21.01" },
		func(p *verifactu.AltaHuellaParams) { p.ImporteTotal = "121.01" },
		func(p *verifactu.AltaHuellaParams) { p.HuellaAnterior = h1 },
		func(p *verifactu.AltaHuellaParams) { p.FechaHoraHusoGenRegistro = "2024-09-01T10:00:01+02:00" },
	}
	for i, mut := range mutations {
		cp := p
		mut(&cp)
		h, err := calc.CalculateAlta(cp)
		require.NoError(t, err)
		assert.NotEqual(t, h1, h, "la mutación %d debe cambiar la huella", i)
	}
}

func TestCalculateAlta_SinTimestamp(t *testing.T) {
	_, err := verifactu.NewHuellaCalculator().CalculateAlta(verifactu.AltaHuellaParams{CuotaTotal: "0", ImporteTotal: "0"})
	assert.True(t, pkgvf.HasKind(err, pkgvf.KindHashGenerationFailed))
	assert.True(t, pkgvf.IsCategory(err, pkgvf.CategoryProcessing))
}

func TestCalculateAlta_ImporteNoNumerico(t *testing.T) {
	_, err := verifactu.NewHuellaCalculator().CalculateAlta(verifactu.AltaHuellaParams{
		CuotaTotal: "abc", ImporteTotal: "1", FechaHoraHusoGenRegistro: "2024-09-01T10:00:00+02:00",
	})
	assert.True(t, pkgvf.HasKind(err, pkgvf.KindHashGenerationFailed))
}
