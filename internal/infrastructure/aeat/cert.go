package aeat

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"

	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// Credentials certificado cliente de una llamada. Certificate, si no es nil, tiene prioridad
// sobre las rutas.
type Credentials struct {
	CertPath    string
	KeyPath     string
	Passphrase  string
	Certificate *tls.Certificate
}

// IsZero indica que no hay certificado cliente.
func (c Credentials) IsZero() bool {
	return c.Certificate == nil && c.CertPath == ""
}

// LoadClientCertificate carga el certificado cliente desde un .p12/.pfx o un par PEM.
// Una llave PEM cifrada se descifra con Passphrase.
func LoadClientCertificate(c Credentials) (tls.Certificate, error) {
	if c.Certificate != nil {
		if len(c.Certificate.Certificate) == 0 {
			return tls.Certificate{}, pkgvf.ConfigurationError("certificate", "el certificado en memoria no contiene ningún bloque DER")
		}
		return withLeaf(*c.Certificate, "")
	}
	if c.CertPath == "" {
		return tls.Certificate{}, pkgvf.CertificateError("", errors.New("ruta de certificado vacía"))
	}
	switch strings.ToLower(filepath.Ext(c.CertPath)) {
	case ".p12", ".pfx":
		return loadFromP12(c.CertPath, c.Passphrase)
	}
	return loadFromPEM(c.CertPath, c.KeyPath, c.Passphrase)
}

// loadFromP12 convierte el PKCS#12 a bloques PEM para conservar la cadena completa.
func loadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, pkgvf.CertificateError(path, fmt.Errorf("leer p12: %w", err))
	}
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return tls.Certificate{}, pkgvf.CertificateError(path, fmt.Errorf("decodificar p12: %w", err))
	}
	var certPEM, keyPEM bytes.Buffer
	for _, b := range blocks {
		if b.Type == "CERTIFICATE" {
			_ = pem.Encode(&certPEM, b)
		} else {
			_ = pem.Encode(&keyPEM, b)
		}
	}
	cert, err := tls.X509KeyPair(certPEM.Bytes(), keyPEM.Bytes())
	if err != nil {
		return tls.Certificate{}, pkgvf.CertificateError(path, fmt.Errorf("par p12: %w", err))
	}
	return withLeaf(cert, path)
}

// loadFromPEM certificado y llave en archivos separados o combinados.
func loadFromPEM(certPath, keyPath, passphrase string) (tls.Certificate, error) {
	if keyPath == "" {
		keyPath = certPath
	}
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return tls.Certificate{}, pkgvf.CertificateError(certPath, fmt.Errorf("leer certificado: %w", err))
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return tls.Certificate{}, pkgvf.CertificateError(keyPath, fmt.Errorf("leer llave: %w", err))
	}
	keyPEM, err = decryptKeyPEM(keyPEM, passphrase)
	if err != nil {
		return tls.Certificate{}, pkgvf.CertificateError(keyPath, err)
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, pkgvf.CertificateError(certPath, fmt.Errorf("cargar PEM: %w", err))
	}
	return withLeaf(cert, certPath)
}

// decryptKeyPEM devuelve solo el bloque de llave; si viene cifrado (RFC 1423) lo descifra.
func decryptKeyPEM(data []byte, passphrase string) ([]byte, error) {
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, errors.New("no se encontró una llave privada PEM")
		}
		if !strings.Contains(block.Type, "PRIVATE KEY") {
			continue
		}
		//nolint:staticcheck // RFC 1423
		if x509.IsEncryptedPEMBlock(block) {
			if passphrase == "" {
				return nil, errors.New("la llave está cifrada y no se indicó contraseña")
			}
			//nolint:staticcheck
			der, err := x509.DecryptPEMBlock(block, []byte(passphrase))
			if err != nil {
				return nil, fmt.Errorf("descifrar llave: %w", err)
			}
			return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
		}
		return pem.EncodeToMemory(block), nil
	}
}

func withLeaf(cert tls.Certificate, path string) (tls.Certificate, error) {
	if cert.Leaf != nil || len(cert.Certificate) == 0 {
		return cert, nil
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return tls.Certificate{}, pkgvf.CertificateError(path, err)
	}
	cert.Leaf = leaf
	return cert, nil
}

// ── Diagnóstico ──────────────────────────────────────────────────────────────

// CertInfo resumen del certificado cliente.
type CertInfo struct {
	Subject      string
	Issuer       string
	SerialNumber string
	NIF          string // extraído del serialNumber del sujeto (IDCES-, VATES-)
	NotBefore    time.Time
	NotAfter     time.Time
	ChainLength  int
}

// Expired indica si el certificado ha caducado en now.
func (i CertInfo) Expired(now time.Time) bool {
	return now.After(i.NotAfter) || now.Before(i.NotBefore)
}

var nifInSubject = regexp.MustCompile(`(?:IDCES-|VATES-)?([0-9A-Z]{9})$`)

// InspectCertificate carga las credenciales y devuelve los datos del certificado hoja.
func InspectCertificate(c Credentials) (*CertInfo, error) {
	cert, err := LoadClientCertificate(c)
	if err != nil {
		return nil, err
	}
	cert, err = withLeaf(cert, c.CertPath)
	if err != nil {
		return nil, err
	}
	leaf := cert.Leaf
	if leaf == nil {
		return nil, pkgvf.ConfigurationError("certificate", "sin certificado hoja")
	}
	info := &CertInfo{
		Subject:      leaf.Subject.String(),
		Issuer:       leaf.Issuer.String(),
		SerialNumber: leaf.SerialNumber.Text(16),
		NotBefore:    leaf.NotBefore,
		NotAfter:     leaf.NotAfter,
		ChainLength:  len(cert.Certificate),
	}
	if m := nifInSubject.FindStringSubmatch(leaf.Subject.SerialNumber); m != nil {
		info.NIF = m[1]
	}
	return info, nil
}
