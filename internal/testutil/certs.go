// Package testutil utilidades compartidas por los tests: certificados autofirmados y un
// transporte SOAP falso.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestCert certificado autofirmado con su llave en PEM.
type TestCert struct {
	TLS     tls.Certificate
	CertPEM []byte
	KeyPEM  []byte
	KeyDER  []byte
}

// NewTestCert genera un certificado cliente con serialNumber "IDCES-<nif>" en el sujeto.
func NewTestCert(t *testing.T, nif string) TestCert {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject: pkix.Name{
			CommonName:   "EMPRESA EJEMPLO - " + nif,
			SerialNumber: "IDCES-" + nif,
			Country:      []string{"ES"},
		},
		NotBefore:   time.Now().Add(-time.Hour),
		NotAfter:    time.Now().Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)
	return TestCert{TLS: pair, CertPEM: certPEM, KeyPEM: keyPEM, KeyDER: keyDER}
}

// WritePEMFiles escribe cert.pem y key.pem en un directorio temporal.
func (c TestCert) WritePEMFiles(t *testing.T) (certPath, keyPath string) {
	t.Helper()
	dir := t.TempDir()
	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, c.CertPEM, 0o600))
	require.NoError(t, os.WriteFile(keyPath, c.KeyPEM, 0o600))
	return certPath, keyPath
}

// WriteCombinedPEM escribe certificado y llave en un único archivo.
func (c TestCert) WriteCombinedPEM(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "combined.pem")
	require.NoError(t, os.WriteFile(path, append(append([]byte{}, c.CertPEM...), c.KeyPEM...), 0o600))
	return path
}

// WriteEncryptedKey escribe la llave cifrada (RFC 1423, AES-256) con passphrase.
func (c TestCert) WriteEncryptedKey(t *testing.T, passphrase string) string {
	t.Helper()
	//nolint:staticcheck // RFC 1423
	block, err := x509.EncryptPEMBlock(rand.Reader, "EC PRIVATE KEY", c.KeyDER, []byte(passphrase), x509.PEMCipherAES256)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key-enc.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

// Pool pool de confianza con el certificado de un servidor de pruebas.
func Pool(certs ...*x509.Certificate) *x509.CertPool {
	p := x509.NewCertPool()
	for _, c := range certs {
		p.AddCert(c)
	}
	return p
}
