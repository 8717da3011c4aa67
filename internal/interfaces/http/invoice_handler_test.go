package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Verifactu-api/internal/application/billing"
	"github.com/jhoicas/Verifactu-api/internal/application/dto"
	"github.com/jhoicas/Verifactu-api/internal/domain/verifactu"
	"github.com/jhoicas/Verifactu-api/internal/infrastructure/aeat"
	apphttp "github.com/jhoicas/Verifactu-api/internal/interfaces/http"
	"github.com/jhoicas/Verifactu-api/internal/testutil"
	pkgjwt "github.com/jhoicas/Verifactu-api/pkg/jwt"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

const huellaFactura1 = "F81DC8A7259991160F03B90190C7FA4F4F83F3C87CE7440668FCC414C7C0BE69"

const factura1JSON = `{
  "num_serie": "F2024-001",
  "fecha": "01-09-2024",
  "descripcion": "Servicios de consultoría",
  "destinatarios": [{"nif": "B12345674", "nombre": "Cliente Ejemplo SA"}],
  "desglose": [{"base": "100.00", "tipo": 21}],
  "encadenamiento": {"primer_registro": true}
}`

// buildAPI router completo sobre un transporte en memoria.
func buildAPI(t *testing.T, tr *testutil.FakeTransport, opts ...billing.Option) *fiber.App {
	t.Helper()
	cfg, err := aeat.NewConfig(aeat.EnvTest, aeat.AuthCertificate)
	require.NoError(t, err)
	opts = append([]billing.Option{
		billing.WithClock(func() time.Time { return time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC) }),
	}, opts...)
	mgr, err := billing.NewManager(verifactu.Party{NIF: testNIF, NombreRazon: "Empresa Ejemplo SL"}, cfg, tr, opts...)
	require.NoError(t, err)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{Manager: mgr, JWTSecret: testJWTSecret, Logger: zerolog.Nop()})
	return app
}

func post(t *testing.T, app *fiber.App, path, body, auth string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	return resp
}

// ── Altas ────────────────────────────────────────────────────────────────────

func TestInvoiceHandler_Create_Escenario1(t *testing.T) {
	tr := testutil.NewFakeTransport(testutil.RespuestaRegistro(aeat.EstadoCorrecto, "F2024-001"))
	app := buildAPI(t, tr)

	resp := post(t, app, "/api/v1/invoices", factura1JSON, tokenForRole(t, pkgjwt.RoleEmisor))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out dto.RegistrationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, huellaFactura1, out.Huella)
	assert.Equal(t, "2024-09-01T10:00:00+02:00", out.FechaHoraHusoGenRegistro)
	assert.Equal(t, aeat.EstadoCorrecto, out.EstadoEnvio)
	assert.Equal(t, "A-TEST000000001", out.CSV)
	require.Len(t, out.Lineas, 1)
	assert.Equal(t, "F2024-001", out.Lineas[0].NumSerie)
	assert.Equal(t, huellaFactura1, out.Siguiente.Huella)
	assert.Equal(t, "https://prewww2.aeat.es/wlpl/TIKE-CONT/ValidarQR?nif=89890001K&numserie=F2024-001&fecha=01-09-2024&importe=121.00", out.QRURL)
	assert.Equal(t, 1, tr.Len())
}

func TestInvoiceHandler_Create_ValidacionLocal_Retorna422(t *testing.T) {
	tr := testutil.NewFakeTransport("")
	app := buildAPI(t, tr)

	body := `{"num_serie": "F2024-001", "fecha": "01-09-2024", "desglose": [], "encadenamiento": {"primer_registro": true}}`
	resp := post(t, app, "/api/v1/invoices", body, tokenForRole(t, pkgjwt.RoleEmisor))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var out dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.Code)
	assert.Equal(t, 0, tr.Len(), "un documento inválido no llega al transporte")

	require.Greater(t, len(out.Details), 1, "se informan todos los errores de validación")
	fields := make([]string, 0, len(out.Details))
	for _, d := range out.Details {
		assert.NotEmpty(t, d.Code)
		assert.NotEmpty(t, d.Message)
		fields = append(fields, d.Field)
	}
	assert.Contains(t, fields, "DescripcionOperacion")
	assert.Contains(t, fields, "Desglose")
	assert.Contains(t, fields, "Destinatarios")
	assert.Equal(t, out.Details[0].Code, out.Code)
}

func TestInvoiceHandler_Create_CuerpoInvalido_Retorna400(t *testing.T) {
	app := buildAPI(t, testutil.NewFakeTransport(""))

	resp := post(t, app, "/api/v1/invoices", `{"num_serie":`, tokenForRole(t, pkgjwt.RoleEmisor))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "INVALID_BODY")
}

func TestInvoiceHandler_Create_ServicioNoDisponible_Retorna503(t *testing.T) {
	tr := testutil.NewFakeTransport("")
	tr.Err = pkgvf.ServiceUnavailable("https://prewww1.aeat.es")
	app := buildAPI(t, tr)

	resp := post(t, app, "/api/v1/invoices", factura1JSON, tokenForRole(t, pkgjwt.RoleEmisor))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var out dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, string(pkgvf.KindServiceUnavailable), out.Code)
}

func TestInvoiceHandler_Create_FalloAutenticacion_Retorna502(t *testing.T) {
	tr := testutil.NewFakeTransport("")
	tr.Err = pkgvf.AuthenticationFailed("HTTP 403", nil)
	app := buildAPI(t, tr)

	resp := post(t, app, "/api/v1/invoices", factura1JSON, tokenForRole(t, pkgjwt.RoleEmisor))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestInvoiceHandler_Create_RolConsulta_Retorna403(t *testing.T) {
	tr := testutil.NewFakeTransport("")
	app := buildAPI(t, tr)

	resp := post(t, app, "/api/v1/invoices", factura1JSON, tokenForRole(t, pkgjwt.RoleConsulta))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, tr.Len())
}

func TestInvoiceHandler_Create_OtroObligado_Retorna403(t *testing.T) {
	app := buildAPI(t, testutil.NewFakeTransport(""))

	resp := post(t, app, "/api/v1/invoices", factura1JSON, tokenFor(t, "B12345674", pkgjwt.RoleEmisor))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// ── Anulaciones ──────────────────────────────────────────────────────────────

func TestInvoiceHandler_Cancel_Encadenada(t *testing.T) {
	tr := testutil.NewFakeTransport(testutil.RespuestaRegistro(aeat.EstadoCorrecto, "F2024-001"))
	app := buildAPI(t, tr)

	body := `{
	  "num_serie": "F2024-001",
	  "fecha": "01-09-2024",
	  "encadenamiento": {"anterior": {"nif": "89890001K", "num_serie": "F2024-001", "fecha": "01-09-2024", "huella": "` + huellaFactura1 + `"}}
	}`
	resp := post(t, app, "/api/v1/cancellations", body, tokenForRole(t, pkgjwt.RoleEmisor))
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out dto.RegistrationResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out.Huella, 64)
	assert.Empty(t, out.QRURL)

	call, ok := tr.LastCall()
	require.True(t, ok)
	w := call.Payload.(aeat.Wrapped)
	reg := w.Body.(verifactu.RegFactuSistemaFacturacion)
	require.NotNil(t, reg.RegistroFactura[0].Anulacion)
	assert.Equal(t, huellaFactura1, reg.RegistroFactura[0].Anulacion.Encadenamiento.RegistroAnterior.Huella)
}

func TestInvoiceHandler_Cancel_SinEncadenamiento_Retorna4xx(t *testing.T) {
	tr := testutil.NewFakeTransport("")
	app := buildAPI(t, tr)

	resp := post(t, app, "/api/v1/cancellations", `{"num_serie": "F2024-001", "fecha": "01-09-2024"}`, tokenForRole(t, pkgjwt.RoleEmisor))
	defer resp.Body.Close()

	assert.GreaterOrEqual(t, resp.StatusCode, 400)
	assert.Equal(t, 0, tr.Len())
}

// ── Consultas ────────────────────────────────────────────────────────────────

func TestInvoiceHandler_Query_PorHuella(t *testing.T) {
	other := strings.Repeat("A", 64)
	tr := testutil.NewFakeTransport(testutil.RespuestaConsulta("N", other, huellaFactura1))
	app := buildAPI(t, tr)

	body := `{"ejercicio": 2024, "periodo": 9, "huella": "` + strings.ToLower(huellaFactura1) + `"}`
	resp := post(t, app, "/api/v1/queries", body, tokenForRole(t, pkgjwt.RoleConsulta))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ConDatos", out.Resultado)
	require.Len(t, out.Registros, 1)
	assert.Equal(t, "F2024-002", out.Registros[0].NumSerie)
	assert.False(t, out.HayMas)
}

func TestInvoiceHandler_Query_Paginada(t *testing.T) {
	tr := testutil.NewFakeTransport(testutil.RespuestaConsulta("S", huellaFactura1))
	app := buildAPI(t, tr)

	resp := post(t, app, "/api/v1/queries", `{"ejercicio": 2024, "periodo": 9}`, tokenForRole(t, pkgjwt.RoleEmisor))
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out dto.QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.HayMas)
	require.NotNil(t, out.ClaveSiguiente)
	assert.Equal(t, "F2024-001", out.ClaveSiguiente.NumSerie)
}

func TestInvoiceHandler_Query_PeriodoInvalido_Retorna422(t *testing.T) {
	tr := testutil.NewFakeTransport("")
	app := buildAPI(t, tr)

	resp := post(t, app, "/api/v1/queries", `{"ejercicio": 2024, "periodo": 13}`, tokenForRole(t, pkgjwt.RoleEmisor))
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, 0, tr.Len())
}

// ── QR ───────────────────────────────────────────────────────────────────────

func TestQRHandler_URL_Escenario3(t *testing.T) {
	app := buildAPI(t, testutil.NewFakeTransport(""))

	resp := get(t, app, "/api/v1/qr?nif=89890001K&numserie=12345678-G33&fecha=01-09-2024&importe=241.4")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "https://prewww2.aeat.es/wlpl/TIKE-CONT/ValidarQR?nif=89890001K&numserie=12345678-G33&fecha=01-09-2024&importe=241.40", out["url"])
}

func TestQRHandler_NoVerifactu(t *testing.T) {
	app := buildAPI(t, testutil.NewFakeTransport(""))

	resp := get(t, app, "/api/v1/qr?nif=89890001K&numserie=A1&fecha=01-09-2024&importe=10&verifactu=false")
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "ValidarQRNoVerifactu")
}

func TestQRHandler_Formatos(t *testing.T) {
	app := buildAPI(t, testutil.NewFakeTransport(""))
	base := "/api/v1/qr?nif=89890001K&numserie=A1&fecha=01-09-2024&importe=10&format="

	cases := []struct {
		format      string
		contentType string
		prefix      string
	}{
		{"png", "image/png", "\x89PNG"},
		{"svg", "image/svg+xml", "<svg"},
		{"pdf", "application/pdf", "%PDF"},
		{"base64", "application/json", "{"},
	}
	for _, tc := range cases {
		t.Run(tc.format, func(t *testing.T) {
			resp := get(t, app, base+tc.format)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), tc.contentType)
			body, _ := io.ReadAll(resp.Body)
			assert.True(t, strings.HasPrefix(string(body), tc.prefix))
		})
	}
}

func TestQRHandler_Errores(t *testing.T) {
	app := buildAPI(t, testutil.NewFakeTransport(""))

	cases := []struct {
		name   string
		query  string
		status int
	}{
		{"importe no numérico", "nif=89890001K&numserie=A1&fecha=01-09-2024&importe=abc", http.StatusUnprocessableEntity},
		{"NIF inválido", "nif=12345678A&numserie=A1&fecha=01-09-2024&importe=10", http.StatusUnprocessableEntity},
		{"fecha inválida", "nif=89890001K&numserie=A1&fecha=2024-09-01&importe=10", http.StatusUnprocessableEntity},
		{"formato desconocido", "nif=89890001K&numserie=A1&fecha=01-09-2024&importe=10&format=gif", http.StatusBadRequest},
		{"tamaño excesivo", "nif=89890001K&numserie=A1&fecha=01-09-2024&importe=10&format=png&size=5000", http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := get(t, app, "/api/v1/qr?"+tc.query)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
