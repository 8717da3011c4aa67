// Package aeat implementa el transporte VERI*FACTU: resolución de endpoints, sobre SOAP 1.1,
// cliente HTTPS con certificado cliente y lectura de respuestas de la AEAT.
package aeat

import (
	"fmt"
	"strings"

	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// ── Entornos y modos de autenticación ─────────────────────────────────────────

// Environment entorno AEAT.
type Environment string

const (
	EnvTest       Environment = "test"
	EnvProduction Environment = "production"
)

// AuthMode tipo de certificado cliente.
type AuthMode string

const (
	// AuthCertificate certificado personal o de representante.
	AuthCertificate AuthMode = "certificate"
	// AuthSeal sello de entidad para procesos automatizados.
	AuthSeal AuthMode = "seal"
)

// Service servicio SOAP de destino.
type Service string

const (
	// ServiceBilling suministro de registros VERI*FACTU.
	ServiceBilling Service = "billing"
	// ServiceCompliance remisión de registros bajo requerimiento.
	ServiceCompliance Service = "compliance"
)

const (
	hostTestCertificate = "https://prewww1.aeat.es"
	hostTestSeal        = "https://prewww10.aeat.es"
	hostProdCertificate = "https://www1.agenciatributaria.gob.es"
	hostProdSeal        = "https://www10.agenciatributaria.gob.es"

	hostQRTest = "https://prewww2.aeat.es"
	hostQRProd = "https://www2.agenciatributaria.gob.es"

	pathBilling    = "/wlpl/TIKE-CONT/ws/SistemaFacturacion/VerifactuSOAP"
	pathCompliance = "/wlpl/TIKE-CONT/ws/SistemaFacturacion/RequerimientoSOAP"

	pathQRVerifactu   = "/wlpl/TIKE-CONT/ValidarQR"
	pathQRNoVerifactu = "/wlpl/TIKE-CONT/ValidarQRNoVerifactu"
)

var hosts = map[Environment]map[AuthMode]string{
	EnvTest:       {AuthCertificate: hostTestCertificate, AuthSeal: hostTestSeal},
	EnvProduction: {AuthCertificate: hostProdCertificate, AuthSeal: hostProdSeal},
}

// ParseEnvironment admite test|sandbox|pruebas y production|prod|live.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "test", "sandbox", "pruebas":
		return EnvTest, nil
	case "production", "prod", "live", "produccion":
		return EnvProduction, nil
	}
	return "", pkgvf.ConfigurationError("environment", fmt.Sprintf("valor desconocido %q (usar 'test' o 'production')", s))
}

// ParseAuthMode admite certificate|personal y seal|sello.
func ParseAuthMode(s string) (AuthMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "certificate", "personal", "":
		return AuthCertificate, nil
	case "seal", "sello":
		return AuthSeal, nil
	}
	return "", pkgvf.ConfigurationError("auth_mode", fmt.Sprintf("valor desconocido %q (usar 'certificate' o 'seal')", s))
}

// Config resuelve entorno y modo a endpoints fijos y guarda la referencia al certificado.
// Cada Manager posee su propia instancia.
type Config struct {
	Environment Environment
	AuthMode    AuthMode
	CertPath    string
	KeyPath     string
	Passphrase  string
}

// NewConfig valida el par entorno/modo.
func NewConfig(env Environment, mode AuthMode) (*Config, error) {
	if _, ok := hosts[env]; !ok {
		return nil, pkgvf.ConfigurationError("environment", fmt.Sprintf("valor desconocido %q", env))
	}
	if _, ok := hosts[env][mode]; !ok {
		return nil, pkgvf.ConfigurationError("auth_mode", fmt.Sprintf("valor desconocido %q", mode))
	}
	return &Config{Environment: env, AuthMode: mode}, nil
}

// WithCertificate fija el certificado cliente (PEM o PKCS#12) y devuelve la misma Config.
func (c *Config) WithCertificate(certPath, keyPath, passphrase string) *Config {
	c.CertPath = certPath
	c.KeyPath = keyPath
	c.Passphrase = passphrase
	return c
}

// IsTest indica el entorno de pruebas.
func (c *Config) IsTest() bool { return c.Environment == EnvTest }

// BaseURL host del servicio según entorno y modo.
func (c *Config) BaseURL() string {
	return hosts[c.Environment][c.AuthMode]
}

// ServiceURL URL completa del servicio SOAP.
func (c *Config) ServiceURL(s Service) (string, error) {
	base := c.BaseURL()
	if base == "" {
		return "", pkgvf.ConfigurationError("environment", "entorno o modo sin endpoint")
	}
	switch s {
	case ServiceBilling:
		return base + pathBilling, nil
	case ServiceCompliance:
		return base + pathCompliance, nil
	}
	return "", pkgvf.ConfigurationError("service", fmt.Sprintf("servicio desconocido %q", s))
}

// QRValidationURL URL de cotejo del QR (ValidarQR para VERI*FACTU, ValidarQRNoVerifactu si no).
func (c *Config) QRValidationURL(verifactu bool) string {
	return QRValidationURL(c.IsTest(), verifactu)
}

// QRValidationURL URL de cotejo del QR sin Config.
func QRValidationURL(isTest, verifactu bool) string {
	host := hostQRProd
	if isTest {
		host = hostQRTest
	}
	if verifactu {
		return host + pathQRVerifactu
	}
	return host + pathQRNoVerifactu
}

// Credentials material del certificado cliente para la llamada.
func (c *Config) Credentials() Credentials {
	return Credentials{CertPath: c.CertPath, KeyPath: c.KeyPath, Passphrase: c.Passphrase}
}
