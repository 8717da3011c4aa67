package aeat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Verifactu-api/internal/infrastructure/aeat"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

func TestConfig_Endpoints(t *testing.T) {
	tests := []struct {
		env  aeat.Environment
		mode aeat.AuthMode
		host string
	}{
		{aeat.EnvTest, aeat.AuthCertificate, "https://prewww1.aeat.es"},
		{aeat.EnvTest, aeat.AuthSeal, "https://prewww10.aeat.es"},
		{aeat.EnvProduction, aeat.AuthCertificate, "https://www1.agenciatributaria.gob.es"},
		{aeat.EnvProduction, aeat.AuthSeal, "https://www10.agenciatributaria.gob.es"},
	}
	for _, tt := range tests {
		t.Run(string(tt.env)+"/"+string(tt.mode), func(t *testing.T) {
			cfg, err := aeat.NewConfig(tt.env, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.host, cfg.BaseURL())

			u, err := cfg.ServiceURL(aeat.ServiceBilling)
			require.NoError(t, err)
			assert.Equal(t, tt.host+"/wlpl/TIKE-CONT/ws/SistemaFacturacion/VerifactuSOAP", u)

			u, err = cfg.ServiceURL(aeat.ServiceCompliance)
			require.NoError(t, err)
			assert.Equal(t, tt.host+"/wlpl/TIKE-CONT/ws/SistemaFacturacion/RequerimientoSOAP", u)
		})
	}
}

func TestConfig_ServicioDesconocido(t *testing.T) {
	cfg, err := aeat.NewConfig(aeat.EnvTest, aeat.AuthCertificate)
	require.NoError(t, err)
	_, err = cfg.ServiceURL("facturae")
	assert.True(t, pkgvf.IsCategory(err, pkgvf.CategoryConfiguration))
}

func TestConfig_EntornoInvalido(t *testing.T) {
	_, err := aeat.NewConfig("staging", aeat.AuthCertificate)
	assert.True(t, pkgvf.HasKind(err, pkgvf.KindConfigurationError))

	_, err = aeat.NewConfig(aeat.EnvTest, "smartcard")
	assert.True(t, pkgvf.HasKind(err, pkgvf.KindConfigurationError))
}

func TestParseEnvironment(t *testing.T) {
	for in, want := range map[string]aeat.Environment{
		"test": aeat.EnvTest, "Sandbox": aeat.EnvTest, " pruebas ": aeat.EnvTest,
		"production": aeat.EnvProduction, "PROD": aeat.EnvProduction,
	} {
		got, err := aeat.ParseEnvironment(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := aeat.ParseEnvironment("dev")
	assert.Error(t, err)
}

func TestParseAuthMode(t *testing.T) {
	m, err := aeat.ParseAuthMode("")
	require.NoError(t, err)
	assert.Equal(t, aeat.AuthCertificate, m)

	m, err = aeat.ParseAuthMode("sello")
	require.NoError(t, err)
	assert.Equal(t, aeat.AuthSeal, m)

	_, err = aeat.ParseAuthMode("dnie")
	assert.True(t, pkgvf.IsCategory(err, pkgvf.CategoryConfiguration))
}

func TestQRValidationURL(t *testing.T) {
	assert.Equal(t, "https://prewww2.aeat.es/wlpl/TIKE-CONT/ValidarQR", aeat.QRValidationURL(true, true))
	assert.Equal(t, "https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQR", aeat.QRValidationURL(false, true))
	assert.Equal(t, "https://www2.agenciatributaria.gob.es/wlpl/TIKE-CONT/ValidarQRNoVerifactu", aeat.QRValidationURL(false, false))

	cfg, _ := aeat.NewConfig(aeat.EnvTest, aeat.AuthSeal)
	assert.Equal(t, aeat.QRValidationURL(true, true), cfg.QRValidationURL(true))
}

func TestConfig_Credentials(t *testing.T) {
	cfg, _ := aeat.NewConfig(aeat.EnvTest, aeat.AuthCertificate)
	assert.True(t, cfg.Credentials().IsZero())

	cfg.WithCertificate("/certs/empresa.p12", "", "secreto")
	c := cfg.Credentials()
	assert.False(t, c.IsZero())
	assert.Equal(t, "/certs/empresa.p12", c.CertPath)
	assert.Equal(t, "secreto", c.Passphrase)
}
