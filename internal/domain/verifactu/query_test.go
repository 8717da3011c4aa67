package verifactu_test

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Verifactu-api/internal/domain/verifactu"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

var obligado = verifactu.Party{NIF: testNIF, NombreRazon: "Empresa Ejemplo SL"}

func TestQuery_PeriodoDesdeFechaFactura(t *testing.T) {
	req, err := verifactu.NewQuery(obligado, verifactu.ForInvoice("F2024-001", "01-09-2024")).Request()
	require.NoError(t, err)
	assert.Equal(t, "2024", req.FiltroConsulta.PeriodoImputacion.Ejercicio)
	assert.Equal(t, "09", req.FiltroConsulta.PeriodoImputacion.Periodo)
	assert.Equal(t, "F2024-001", req.FiltroConsulta.NumSerieFactura)
	require.NotNil(t, req.FiltroConsulta.FechaExpedicionFactura)
	assert.Equal(t, "01-09-2024", req.FiltroConsulta.FechaExpedicionFactura.FechaExpedicionFactura)
	assert.Equal(t, testNIF, req.Cabecera.ObligadoEmision.NIF)
	assert.Equal(t, pkgvf.SchemaVersion, req.Cabecera.IDVersion)
}

func TestQuery_PeriodoExplicitoGana(t *testing.T) {
	req, err := verifactu.NewQuery(obligado, verifactu.ForInvoice("F2024-001", "01-09-2024")).
		SetPeriod(2023, 1).Request()
	require.NoError(t, err)
	assert.Equal(t, verifactu.PeriodoImputacion{Ejercicio: "2023", Periodo: "01"}, req.FiltroConsulta.PeriodoImputacion)
}

func TestQuery_SettersExplicitosGananAlConstructor(t *testing.T) {
	req, err := verifactu.NewQuery(obligado,
		verifactu.ForInvoice("F2024-001", "01-09-2024"),
		verifactu.ForCounterparty(testCliente, "Cliente"),
	).
		SetInvoice("F2024-777", "15-10-2024").
		SetCounterparty("X1234567L", "Otro").
		Request()
	require.NoError(t, err)
	f := req.FiltroConsulta
	assert.Equal(t, "F2024-777", f.NumSerieFactura)
	assert.Equal(t, "10", f.PeriodoImputacion.Periodo)
	assert.Equal(t, "X1234567L", f.Contraparte.NIF)
}

func TestQuery_FiltrosDelConstructorSinSetter(t *testing.T) {
	req, err := verifactu.NewQuery(obligado, verifactu.ForCounterparty(testCliente, "Cliente")).
		SetPeriod(2024, 9).Request()
	require.NoError(t, err)
	require.NotNil(t, req.FiltroConsulta.Contraparte)
	assert.Equal(t, testCliente, req.FiltroConsulta.Contraparte.NIF)
	assert.Empty(t, req.FiltroConsulta.NumSerieFactura)
}

func TestQuery_RangoFechas(t *testing.T) {
	req, err := verifactu.NewQuery(obligado).SetDateRange("01-09-2024", "30-09-2024").Request()
	require.NoError(t, err)
	f := req.FiltroConsulta
	assert.Equal(t, "09", f.PeriodoImputacion.Periodo)
	require.NotNil(t, f.FechaExpedicionFactura.RangoFechaExpedicion)
	assert.Empty(t, f.FechaExpedicionFactura.FechaExpedicionFactura)
	assert.Equal(t, "30-09-2024", f.FechaExpedicionFactura.RangoFechaExpedicion.Hasta)

	_, err = verifactu.NewQuery(obligado).SetDateRange("30-09-2024", "01-09-2024").Request()
	assert.Error(t, err)
}

func TestQuery_SinPeriodo(t *testing.T) {
	_, err := verifactu.NewQuery(obligado).Request()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PeriodoImputacion")
}

func TestQuery_Validaciones(t *testing.T) {
	_, err := verifactu.NewQuery(obligado).SetPeriod(2024, 13).Request()
	assert.Error(t, err)
	_, err = verifactu.NewQuery(obligado).SetPeriod(2024, 9).SetCounterparty("12345678A", "").Request()
	assert.Error(t, err)
	_, err = verifactu.NewQuery(verifactu.Party{}).SetPeriod(2024, 9).Request()
	assert.Error(t, err)
	_, err = verifactu.NewQuery(obligado).SetPeriod(2024, 9).SetFingerprint("no-hex").Request()
	assert.Error(t, err)
}

func TestQuery_MergeFilter(t *testing.T) {
	req, err := verifactu.NewQuery(obligado).SetPeriod(2024, 9).
		MergeFilter(func(f *verifactu.FiltroConsulta) { f.RefExterna = "PEDIDO-1" }).
		Request()
	require.NoError(t, err)
	assert.Equal(t, "PEDIDO-1", req.FiltroConsulta.RefExterna)
}

func TestQuery_DatosAdicionalesYPaginacion(t *testing.T) {
	req, err := verifactu.NewQuery(obligado).SetPeriod(2024, 9).
		ShowIssuerName(true).
		SetPaginationKey(verifactu.ClavePaginacion{IDEmisorFactura: testNIF, NumSerieFactura: "F9", FechaExpedicionFactura: "09-09-2024"}).
		Request()
	require.NoError(t, err)
	require.NotNil(t, req.DatosAdicionalesRespuesta)
	assert.Equal(t, "S", req.DatosAdicionalesRespuesta.MostrarNombreRazonEmisor)
	assert.Empty(t, req.DatosAdicionalesRespuesta.MostrarSistemaInformatico)

	out, err := xml.Marshal(req)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "<con:ConsultaFactuSistemaFacturacion><con:Cabecera><sum1:IDVersion>1.0</sum1:IDVersion>")
	assert.Contains(t, s, "<con:FiltroConsulta><con:PeriodoImputacion><sum1:Ejercicio>2024</sum1:Ejercicio><sum1:Periodo>09</sum1:Periodo></con:PeriodoImputacion>")
	assert.Contains(t, s, "<con:ClavePaginacion><sum1:IDEmisorFactura>89890001K</sum1:IDEmisorFactura>")
	assert.NotContains(t, s, "<sum1:PeriodoImputacion>")
}

func TestQueryResponse_FindByFingerprint(t *testing.T) {
	resp := &verifactu.QueryResponse{
		ResultadoConsulta:   "ConDatos",
		IndicadorPaginacion: "S",
		Registros: []verifactu.RegistroConsultado{
			{IDFactura: verifactu.IDFactura{IDEmisorFactura: testNIF, NumSerieFactura: "A", FechaExpedicionFactura: "01-09-2024"}, Huella: "AAA"},
			{IDFactura: verifactu.IDFactura{IDEmisorFactura: testNIF, NumSerieFactura: "B", FechaExpedicionFactura: "02-09-2024"}, Huella: huellaFactura1},
		},
	}
	r, ok := resp.FindByFingerprint(" f81dc8a7259991160f03b90190c7fa4f4f83f3c87ce7440668fcc414c7c0be69")
	require.True(t, ok)
	assert.Equal(t, "B", r.IDFactura.NumSerieFactura)

	_, ok = resp.FindByFingerprint("0000")
	assert.False(t, ok)

	k, ok := resp.NextPageKey()
	require.True(t, ok)
	assert.Equal(t, "B", k.NumSerieFactura)
}

func TestQuery_ElUltimoSetterCorrigeElError(t *testing.T) {
	tests := []struct {
		name  string
		build func() *verifactu.Query
	}{
		{
			name: "periodo corregido",
			build: func() *verifactu.Query {
				return verifactu.NewQuery(obligado).SetPeriod(2024, 13).SetPeriod(2024, 9)
			},
		},
		{
			name: "rango invertido corregido",
			build: func() *verifactu.Query {
				return verifactu.NewQuery(obligado).SetDateRange("30-09-2024", "01-09-2024").SetDateRange("01-09-2024", "30-09-2024")
			},
		},
		{
			name: "huella corregida",
			build: func() *verifactu.Query {
				return verifactu.NewQuery(obligado).SetPeriod(2024, 9).SetFingerprint("no-hex").SetFingerprint(huellaFactura1)
			},
		},
		{
			name: "contraparte del constructor sustituida por el setter",
			build: func() *verifactu.Query {
				return verifactu.NewQuery(obligado, verifactu.ForCounterparty("12345678A", "Malo")).
					SetPeriod(2024, 9).
					SetCounterparty(testCliente, "Cliente")
			},
		},
		{
			name: "factura del constructor sustituida por el setter",
			build: func() *verifactu.Query {
				return verifactu.NewQuery(obligado, verifactu.ForInvoice("F2024-001", "31-02-2024")).
					SetInvoice("F2024-001", "01-09-2024")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Request()
			assert.NoError(t, err)
		})
	}
}

func TestQuery_ErrorDelConstructorSinSetter(t *testing.T) {
	_, err := verifactu.NewQuery(obligado, verifactu.ForInvoice("F2024-001", "31-02-2024")).Request()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "31-02-2024")
}

func TestQuery_FiltroConContraparte(t *testing.T) {
	req, err := verifactu.NewQuery(obligado, verifactu.ForInvoice("F2024-001", "01-09-2024")).
		SetCounterparty(testCliente, "Cliente").Request()
	require.NoError(t, err)

	out, err := xml.Marshal(req.FiltroConsulta)
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "<con:NumSerieFactura>F2024-001</con:NumSerieFactura>")
	assert.Contains(t, s, "<con:Contraparte><sum1:NombreRazon>Cliente</sum1:NombreRazon><sum1:NIF>B12345674</sum1:NIF></con:Contraparte>")
	assert.Contains(t, s, "<con:FechaExpedicionFactura><sum1:FechaExpedicionFactura>01-09-2024</sum1:FechaExpedicionFactura></con:FechaExpedicionFactura>")
}
