package verifactu

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Category clasifica los errores del motor para que el llamador decida sin mirar el mensaje.
type Category string

const (
	CategoryValidation     Category = "validation"
	CategoryCommunication  Category = "communication"
	CategoryAuthentication Category = "authentication"
	CategoryProcessing     Category = "processing"
	CategoryConfiguration  Category = "configuration"
)

// Kind identifica el tipo concreto de fallo dentro de una categoría.
type Kind string

const (
	KindInvalidTaxID         Kind = "invalid_tax_id"
	KindSoapError            Kind = "soap_error"
	KindServiceUnavailable   Kind = "service_unavailable"
	KindAuthenticationFailed Kind = "authentication_failed"
	KindCertificateError     Kind = "certificate_error"
	KindMissingRequiredField Kind = "missing_required_field"
	KindInvalidInvoiceData   Kind = "invalid_invoice_data"
	KindConfigurationError   Kind = "configuration_error"
	KindHashGenerationFailed Kind = "hash_generation_failed"
	KindChainLinkageError    Kind = "chain_linkage_error"
	KindCommunicationFailed  Kind = "communication_failed"
)

// BillingError es el error tipado que devuelven todos los componentes VeriFactu.
type BillingError struct {
	Category  Category
	Kind      Kind
	Code      string // código original (faultcode SOAP, status HTTP, código AEAT)
	Message   string
	Context   map[string]any
	Timestamp time.Time
	Cause     error
}

func newError(cat Category, kind Kind, msg string, ctx map[string]any, cause error) *BillingError {
	if ctx == nil {
		ctx = map[string]any{}
	}
	return &BillingError{
		Category:  cat,
		Kind:      kind,
		Message:   msg,
		Context:   ctx,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func (e *BillingError) Error() string {
	var sb strings.Builder
	sb.WriteString("verifactu [")
	sb.WriteString(string(e.Category))
	sb.WriteString("]: ")
	sb.WriteString(e.Message)
	if e.Code != "" {
		sb.WriteString(" (código " + e.Code + ")")
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		sb.WriteString(" {" + strings.Join(parts, ", ") + "}")
	}
	if e.Cause != nil {
		sb.WriteString(": " + e.Cause.Error())
	}
	return sb.String()
}

func (e *BillingError) Unwrap() error { return e.Cause }

// TimestampISO devuelve el instante del error en ISO-8601.
func (e *BillingError) TimestampISO() string {
	return e.Timestamp.Format(time.RFC3339)
}

// WithContext añade un par clave/valor y devuelve el mismo error.
func (e *BillingError) WithContext(key string, value any) *BillingError {
	e.Context[key] = value
	return e
}

// ── Factorías ────────────────────────────────────────────────────────────────

// InvalidTaxID NIF/NIE/CIF con formato o dígito de control incorrecto.
func InvalidTaxID(taxID string) *BillingError {
	return newError(CategoryValidation, KindInvalidTaxID,
		fmt.Sprintf("identificador fiscal inválido %q", taxID),
		map[string]any{"tax_id": taxID}, nil)
}

// SoapError envuelve un SOAP Fault conservando el faultcode original.
func SoapError(code, message string, cause error) *BillingError {
	e := newError(CategoryCommunication, KindSoapError, "error SOAP: "+message, nil, cause)
	e.Code = code
	return e
}

// ServiceUnavailable servicio AEAT no disponible (HTTP 503); el llamador puede reintentar más tarde.
func ServiceUnavailable(endpoint string) *BillingError {
	e := newError(CategoryCommunication, KindServiceUnavailable, "servicio AEAT no disponible",
		map[string]any{"endpoint": endpoint}, nil)
	e.Code = "503"
	return e
}

// CommunicationFailed fallo de red o respuesta HTTP no esperada.
func CommunicationFailed(endpoint, reason string, cause error) *BillingError {
	return newError(CategoryCommunication, KindCommunicationFailed, "fallo de comunicación: "+reason,
		map[string]any{"endpoint": endpoint}, cause)
}

// AuthenticationFailed la AEAT rechazó el certificado o la negociación TLS falló.
func AuthenticationFailed(reason string, cause error) *BillingError {
	return newError(CategoryAuthentication, KindAuthenticationFailed,
		"autenticación fallida: "+reason, nil, cause)
}

// CertificateError no se pudo cargar el certificado cliente (archivo o contraseña).
func CertificateError(path string, cause error) *BillingError {
	return newError(CategoryAuthentication, KindCertificateError,
		"certificado inválido o contraseña incorrecta", map[string]any{"path": path}, cause)
}

// MissingRequiredField falta un campo obligatorio del registro.
func MissingRequiredField(field string) *BillingError {
	return newError(CategoryValidation, KindMissingRequiredField,
		"campo obligatorio ausente: "+field, map[string]any{"field": field}, nil)
}

// InvalidInvoiceData valor de campo no admitido.
func InvalidInvoiceData(field, reason string) *BillingError {
	return newError(CategoryValidation, KindInvalidInvoiceData,
		fmt.Sprintf("dato inválido en %s: %s", field, reason), map[string]any{"field": field}, nil)
}

// ConfigurationError entorno, modo o endpoint mal configurados.
func ConfigurationError(setting, reason string) *BillingError {
	return newError(CategoryConfiguration, KindConfigurationError,
		fmt.Sprintf("configuración inválida %s: %s", setting, reason), map[string]any{"setting": setting}, nil)
}

// HashGenerationFailed no se pudo calcular la huella.
func HashGenerationFailed(cause error) *BillingError {
	return newError(CategoryProcessing, KindHashGenerationFailed, "no se pudo generar la huella", nil, cause)
}

// ChainLinkageError encadenamiento inconsistente.
func ChainLinkageError(reason string) *BillingError {
	return newError(CategoryProcessing, KindChainLinkageError, "encadenamiento inválido: "+reason, nil, nil)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// AsBillingError busca un *BillingError en la cadena de err.
func AsBillingError(err error) (*BillingError, bool) {
	var be *BillingError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// BillingErrors devuelve todos los BillingError de err en orden, recorriendo errors.Join y
// los wraps con %w. No entra en la causa de un BillingError.
func BillingErrors(err error) []*BillingError {
	var out []*BillingError
	var walk func(error)
	walk = func(e error) {
		switch x := e.(type) {
		case nil:
		case *BillingError:
			out = append(out, x)
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(x.Unwrap())
		}
	}
	walk(err)
	return out
}

// CategoryOf devuelve la categoría de err o "" si no es un BillingError.
func CategoryOf(err error) Category {
	if be, ok := AsBillingError(err); ok {
		return be.Category
	}
	return ""
}

// IsCategory indica si err (o alguno de los errores unidos) pertenece a la categoría.
func IsCategory(err error, cat Category) bool {
	return CategoryOf(err) == cat
}

// HasKind indica si err contiene un BillingError del tipo indicado.
func HasKind(err error, kind Kind) bool {
	if be, ok := AsBillingError(err); ok {
		return be.Kind == kind
	}
	return false
}

// IsServiceUnavailable distingue el 503 de la AEAT para que el llamador reprograme el envío.
func IsServiceUnavailable(err error) bool {
	return HasKind(err, KindServiceUnavailable)
}
