package aeat

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

const maxResponseBytes = 10 << 20

// Call una operación SOAP contra un endpoint ya resuelto.
type Call struct {
	Endpoint    string
	Operation   string // puede ir vacío si Payload es Wrapped
	Payload     any
	Credentials Credentials
}

// Response respuesta HTTP correcta (2xx, sin Fault).
type Response struct {
	CorrelationID string
	StatusCode    int
	Header        http.Header
	Body          []byte
	Duration      time.Duration
}

// Exchange última petición/respuesta, capturada tanto si la llamada falla como si no.
type Exchange struct {
	CorrelationID  string
	Endpoint       string
	Operation      string
	RequestHeader  http.Header
	RequestBody    []byte
	StatusCode     int
	ResponseHeader http.Header
	ResponseBody   []byte
	Err            error
	StartedAt      time.Time
	Duration       time.Duration
}

// TransportFactory construye el RoundTripper para la configuración TLS de la llamada.
type TransportFactory func(*tls.Config) http.RoundTripper

// Option configura el SOAPClient.
type Option func(*SOAPClient)

// WithTimeout timeout total de cada llamada (sin timeout por defecto).
func WithTimeout(d time.Duration) Option {
	return func(c *SOAPClient) { c.timeout = d }
}

// WithLogger logger zerolog (Nop por defecto).
func WithLogger(l zerolog.Logger) Option {
	return func(c *SOAPClient) { c.log = l }
}

// WithTransportFactory sustituye la creación del transporte HTTP (tests).
func WithTransportFactory(f TransportFactory) Option {
	return func(c *SOAPClient) { c.transport = f }
}

// WithRootCAs raíces de confianza para el servidor (por defecto las del sistema).
func WithRootCAs(pool *x509.CertPool) Option {
	return func(c *SOAPClient) { c.rootCAs = pool }
}

// SOAPClient ejecuta operaciones SOAP 1.1 con certificado cliente (TLS mutuo).
type SOAPClient struct {
	log       zerolog.Logger
	timeout   time.Duration
	transport TransportFactory
	rootCAs   *x509.CertPool

	mu   sync.Mutex
	last *Exchange
}

// NewSOAPClient construye el cliente.
func NewSOAPClient(opts ...Option) *SOAPClient {
	c := &SOAPClient{
		log:       zerolog.Nop(),
		transport: defaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultTransport(cfg *tls.Config) http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = cfg
	return t
}

// LastExchange devuelve una copia del último intercambio.
func (c *SOAPClient) LastExchange() (Exchange, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Exchange{}, false
	}
	ex := *c.last
	ex.RequestBody = append([]byte(nil), c.last.RequestBody...)
	ex.ResponseBody = append([]byte(nil), c.last.ResponseBody...)
	ex.RequestHeader = c.last.RequestHeader.Clone()
	ex.ResponseHeader = c.last.ResponseHeader.Clone()
	return ex, true
}

func (c *SOAPClient) record(ex *Exchange) {
	c.mu.Lock()
	c.last = ex
	c.mu.Unlock()
}

// Execute envía la operación y devuelve la respuesta cruda. Los Fault SOAP y los estados HTTP
// de error se devuelven como *verifactu.BillingError. El intercambio queda en LastExchange
// también cuando la llamada falla antes de salir (operación, certificado o sobre inválidos).
func (c *SOAPClient) Execute(ctx context.Context, call Call) (*Response, error) {
	ex := &Exchange{
		CorrelationID: uuid.NewString(),
		Endpoint:      call.Endpoint,
		Operation:     call.Operation,
		StartedAt:     time.Now(),
	}
	log := c.log.With().
		Str("correlation_id", ex.CorrelationID).
		Str("endpoint", call.Endpoint).
		Logger()
	fail := func(err error) (*Response, error) {
		ex.Duration = time.Since(ex.StartedAt)
		ex.Err = err
		c.record(ex)
		log.Warn().Err(err).Str("operation", ex.Operation).Int("status", ex.StatusCode).
			Dur("duration", ex.Duration).Msg("soap: llamada fallida")
		return nil, err
	}

	op, body := call.Operation, call.Payload
	if w, ok := body.(Wrapped); ok {
		if op != "" && op != w.Operation {
			return fail(pkgvf.ConfigurationError("operation",
				fmt.Sprintf("la operación %q no coincide con el payload %q", op, w.Operation)))
		}
		op, body = w.Operation, w.Body
	}
	ex.Operation = op
	if !validOperations[op] {
		return fail(pkgvf.ConfigurationError("operation", fmt.Sprintf("operación desconocida %q", op)))
	}
	if call.Endpoint == "" {
		return fail(pkgvf.ConfigurationError("endpoint", "endpoint vacío"))
	}

	payload, err := BuildEnvelope(op, body)
	if err != nil {
		return fail(err)
	}
	ex.RequestBody = payload

	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, RootCAs: c.rootCAs}
	if !call.Credentials.IsZero() {
		cert, err := LoadClientCertificate(call.Credentials)
		if err != nil {
			return fail(err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, call.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fail(pkgvf.ConfigurationError("endpoint", err.Error()))
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `""`)
	ex.RequestHeader = req.Header.Clone()

	log.Debug().Str("operation", op).Int("bytes", len(payload)).Msg("soap: enviando petición")

	resp, err := c.do(ctx, req, tlsCfg, ex)
	if err != nil {
		return fail(err)
	}
	ex.Duration = time.Since(ex.StartedAt)
	c.record(ex)
	log.Info().Str("operation", op).Int("status", ex.StatusCode).Dur("duration", ex.Duration).Msg("soap: respuesta recibida")
	resp.Duration = ex.Duration
	return resp, nil
}

func (c *SOAPClient) do(ctx context.Context, req *http.Request, tlsCfg *tls.Config, ex *Exchange) (*Response, error) {
	client := &http.Client{Transport: c.transport(tlsCfg)}
	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, ex.Endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	ex.StatusCode = resp.StatusCode
	ex.ResponseHeader = resp.Header.Clone()
	ex.ResponseBody = raw
	if err != nil {
		return nil, pkgvf.CommunicationFailed(ex.Endpoint, "leer respuesta", err)
	}

	switch resp.StatusCode {
	case http.StatusServiceUnavailable:
		return nil, pkgvf.ServiceUnavailable(ex.Endpoint)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, pkgvf.AuthenticationFailed(
			fmt.Sprintf("la AEAT respondió %d", resp.StatusCode), nil).WithContext("endpoint", ex.Endpoint)
	}
	if f, ok := ParseFault(raw); ok {
		return nil, pkgvf.SoapError(f.Code, f.String, nil).WithContext("endpoint", ex.Endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := pkgvf.CommunicationFailed(ex.Endpoint, "HTTP "+strconv.Itoa(resp.StatusCode), nil)
		e.Code = strconv.Itoa(resp.StatusCode)
		return nil, e
	}
	return &Response{
		CorrelationID: ex.CorrelationID,
		StatusCode:    resp.StatusCode,
		Header:        resp.Header.Clone(),
		Body:          raw,
	}, nil
}

// classifyTransportError separa los fallos TLS (autenticación) del resto (comunicación).
func classifyTransportError(ctx context.Context, endpoint string, err error) error {
	if ctx.Err() != nil {
		return pkgvf.CommunicationFailed(endpoint, "timeout o cancelación", ctx.Err())
	}
	var (
		recErr    tls.RecordHeaderError
		verifyErr *tls.CertificateVerificationError
		unknownCA x509.UnknownAuthorityError
		hostErr   x509.HostnameError
	)
	switch {
	case errors.As(err, &recErr), errors.As(err, &verifyErr), errors.As(err, &unknownCA), errors.As(err, &hostErr):
		return pkgvf.AuthenticationFailed("negociación TLS fallida", err).WithContext("endpoint", endpoint)
	case strings.Contains(err.Error(), "tls:"):
		return pkgvf.AuthenticationFailed("negociación TLS fallida", err).WithContext("endpoint", endpoint)
	}
	return pkgvf.CommunicationFailed(endpoint, "llamada HTTP fallida", err)
}
