// Package billing orquesta el envío de registros VERI*FACTU: completa los documentos con los
// datos del obligado, genera la huella, construye la petición y la entrega al transporte.
package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Verifactu-api/internal/domain/verifactu"
	"github.com/jhoicas/Verifactu-api/internal/infrastructure/aeat"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// Submission datos del último envío aceptado por el transporte, para auditoría del llamador.
type Submission struct {
	CorrelationID            string
	Operation                string
	Huella                   string
	FechaHoraHusoGenRegistro string
	Payload                  any
	SentAt                   time.Time
}

// Receipt resultado de un envío de alta o anulación.
type Receipt struct {
	CorrelationID            string
	Huella                   string
	FechaHoraHusoGenRegistro string
	// NextLink encadenamiento para el siguiente registro del obligado.
	NextLink verifactu.ChainLink
	Response *aeat.RegistrationResponse
}

// Option configura el Manager.
type Option func(*Manager)

// WithLogger logger zerolog (Nop por defecto).
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithLocation zona horaria de FechaHoraHusoGenRegistro (Europe/Madrid por defecto).
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithSystemInfo SistemaInformatico que se añade a los documentos que no lo informan.
func WithSystemInfo(si verifactu.SistemaInformatico) Option {
	return func(m *Manager) { m.si = si }
}

// WithStore histórico donde se guarda cada registro remitido.
func WithStore(s SubmissionStore) Option {
	return func(m *Manager) { m.store = s }
}

// WithClock reloj para la marca temporal de la huella.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager fachada del motor para un obligado. Es seguro para uso concurrente: cada envío
// trabaja sobre una copia del documento y solo el último Submission es estado compartido.
type Manager struct {
	obligado  verifactu.Party
	cfg       *aeat.Config
	transport Transport
	log       zerolog.Logger
	loc       *time.Location
	si        verifactu.SistemaInformatico
	now       func() time.Time
	store     SubmissionStore

	mu   sync.Mutex
	last *Submission
}

// NewManager valida el obligado y la configuración.
func NewManager(obligado verifactu.Party, cfg *aeat.Config, transport Transport, opts ...Option) (*Manager, error) {
	if _, err := pkgvf.ValidateTaxID(obligado.NIF); err != nil {
		return nil, err
	}
	if obligado.NombreRazon == "" {
		return nil, pkgvf.MissingRequiredField("ObligadoEmision.NombreRazon")
	}
	if cfg == nil {
		return nil, pkgvf.ConfigurationError("config", "configuración AEAT ausente")
	}
	if transport == nil {
		return nil, pkgvf.ConfigurationError("transport", "transporte ausente")
	}
	obligado.NIF = pkgvf.NormalizeTaxID(obligado.NIF)

	m := &Manager{
		obligado:  obligado,
		cfg:       cfg,
		transport: transport,
		log:       zerolog.Nop(),
		loc:       pkgvf.MadridLocation(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Obligado titular de los registros.
func (m *Manager) Obligado() verifactu.Party { return m.obligado }

// Config configuración AEAT del Manager.
func (m *Manager) Config() *aeat.Config { return m.cfg }

// NewInvoice alta con el obligado como emisor.
func (m *Manager) NewInvoice(serial, fecha string) *verifactu.Invoice {
	return verifactu.NewInvoice(m.obligado.NIF, serial, fecha).ApplyDefaults(m.obligado, m.si)
}

// NewCancellation anulación de una factura del obligado.
func (m *Manager) NewCancellation(serial, fecha string) *verifactu.Cancellation {
	return verifactu.NewCancellation(m.obligado.NIF, serial, fecha).ApplyDefaults(m.obligado, m.si)
}

// NewQuery consulta en nombre del obligado.
func (m *Manager) NewQuery(opts ...verifactu.QueryOption) *verifactu.Query {
	return verifactu.NewQuery(m.obligado, opts...)
}

// LastSubmission último envío aceptado por el transporte.
func (m *Manager) LastSubmission() (Submission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return Submission{}, false
	}
	return *m.last, true
}

// SendInvoice remite un alta. El documento del llamador no se modifica.
func (m *Manager) SendInvoice(ctx context.Context, inv *verifactu.Invoice, creds aeat.Credentials) (*Receipt, error) {
	if inv == nil {
		return nil, pkgvf.MissingRequiredField("RegistroAlta")
	}
	doc := inv.Clone().ApplyDefaults(m.obligado, m.si)
	if doc.ID().IDEmisorFactura != m.obligado.NIF {
		return nil, pkgvf.InvalidInvoiceData("IDEmisorFactura", "no coincide con el obligado a la emisión")
	}
	if doc.Huella() == "" {
		if _, err := doc.GenerateFingerprintAt(m.now(), m.loc); err != nil {
			return nil, err
		}
	}
	rec, err := doc.Record()
	if err != nil {
		return nil, err
	}
	body := verifactu.RegFactuSistemaFacturacion{
		Cabecera:        verifactu.NewCabecera(m.obligado, doc.Incidence()),
		RegistroFactura: []verifactu.RegistroFactura{{Alta: rec}},
	}
	importe, _ := decimal.NewFromString(rec.ImporteTotal)
	return m.register(ctx, body, creds, verifactu.ChainLinkFrom(rec), SubmissionRecord{
		TipoRegistro:             RecordAlta,
		TipoFactura:              rec.TipoFactura,
		FechaHoraHusoGenRegistro: rec.FechaHoraHusoGenRegistro,
		ImporteTotal:             importe,
	})
}

// SendCancellation remite una anulación. El documento del llamador no se modifica.
func (m *Manager) SendCancellation(ctx context.Context, c *verifactu.Cancellation, creds aeat.Credentials) (*Receipt, error) {
	if c == nil {
		return nil, pkgvf.MissingRequiredField("RegistroAnulacion")
	}
	doc := c.Clone().ApplyDefaults(m.obligado, m.si)
	if doc.ID().IDEmisorFacturaAnulada != m.obligado.NIF {
		return nil, pkgvf.InvalidInvoiceData("IDEmisorFacturaAnulada", "no coincide con el obligado a la emisión")
	}
	if doc.Huella() == "" {
		if _, err := doc.GenerateFingerprintAt(m.now(), m.loc); err != nil {
			return nil, err
		}
	}
	rec, err := doc.Record()
	if err != nil {
		return nil, err
	}
	body := verifactu.RegFactuSistemaFacturacion{
		Cabecera:        verifactu.NewCabecera(m.obligado, doc.Incidence()),
		RegistroFactura: []verifactu.RegistroFactura{{Anulacion: rec}},
	}
	return m.register(ctx, body, creds, verifactu.ChainLinkFromAnulacion(rec), SubmissionRecord{
		TipoRegistro:             RecordAnulacion,
		FechaHoraHusoGenRegistro: rec.FechaHoraHusoGenRegistro,
	})
}

func (m *Manager) register(
	ctx context.Context,
	body verifactu.RegFactuSistemaFacturacion,
	creds aeat.Credentials,
	link verifactu.ChainLink,
	hist SubmissionRecord,
) (*Receipt, error) {
	ts := hist.FechaHoraHusoGenRegistro
	resp, err := m.execute(ctx, aeat.OpRegFactu, body, creds, link)
	if err != nil {
		return nil, err
	}
	parsed, err := aeat.ParseRegistrationResponse(resp.Body)
	if err != nil {
		return nil, err
	}
	m.remember(Submission{
		CorrelationID:            resp.CorrelationID,
		Operation:                aeat.OpRegFactu,
		Huella:                   link.Huella,
		FechaHoraHusoGenRegistro: ts,
		Payload:                  body,
		SentAt:                   m.now(),
	})

	ev := m.log.Info()
	if !parsed.Accepted() {
		ev = m.log.Warn()
	}
	ev.Str("correlation_id", resp.CorrelationID).
		Str("num_serie", link.NumSerieFactura).
		Str("estado_envio", parsed.EstadoEnvio).
		Str("csv", parsed.CSV).
		Msg("verifactu: registro remitido")

	if m.store != nil {
		hist.ID = uuid.NewString()
		hist.CorrelationID = resp.CorrelationID
		hist.IDEmisorFactura = link.IDEmisorFactura
		hist.NumSerieFactura = link.NumSerieFactura
		hist.FechaExpedicionFactura = link.FechaExpedicionFactura
		hist.Huella = link.Huella
		hist.EstadoEnvio = parsed.EstadoEnvio
		hist.CSV = parsed.CSV
		hist.SentAt = m.now()
		if err := m.store.Save(ctx, hist); err != nil {
			m.log.Error().Err(err).
				Str("correlation_id", resp.CorrelationID).
				Str("num_serie", link.NumSerieFactura).
				Msg("verifactu: no se pudo guardar el registro en el histórico")
		}
	}

	return &Receipt{
		CorrelationID:            resp.CorrelationID,
		Huella:                   link.Huella,
		FechaHoraHusoGenRegistro: ts,
		NextLink:                 link,
		Response:                 parsed,
	}, nil
}

// LastLink encadenamiento hacia el último registro guardado del obligado. ok=false si el
// histórico está vacío y el siguiente registro debe ser el primero de la cadena.
func (m *Manager) LastLink(ctx context.Context) (verifactu.ChainLink, bool, error) {
	if m.store == nil {
		return verifactu.ChainLink{}, false, pkgvf.ConfigurationError("store", "histórico de envíos no configurado")
	}
	rec, ok, err := m.store.Last(ctx, m.obligado.NIF)
	if err != nil || !ok {
		return verifactu.ChainLink{}, false, err
	}
	return rec.Link(), true, nil
}

// QueryInvoice consulta registros del obligado. Si la consulta fija una huella, la respuesta
// se reduce al registro que la contiene.
func (m *Manager) QueryInvoice(ctx context.Context, q *verifactu.Query, creds aeat.Credentials) (*verifactu.QueryResponse, error) {
	if q == nil {
		q = m.NewQuery()
	}
	req, err := q.Clone().WithObligado(m.obligado).Request()
	if err != nil {
		return nil, err
	}
	resp, err := m.execute(ctx, aeat.OpConsultaFactu, *req, creds, verifactu.ChainLink{})
	if err != nil {
		return nil, err
	}
	out, err := aeat.ParseQueryResponse(resp.Body)
	if err != nil {
		return nil, err
	}
	m.remember(Submission{
		CorrelationID: resp.CorrelationID,
		Operation:     aeat.OpConsultaFactu,
		Payload:       *req,
		SentAt:        m.now(),
	})

	if h := q.Fingerprint(); h != "" {
		reg, ok := out.FindByFingerprint(h)
		out.Registros = nil
		out.ResultadoConsulta = "SinDatos"
		if ok {
			out.Registros = []verifactu.RegistroConsultado{*reg}
			out.ResultadoConsulta = "ConDatos"
		}
	}
	m.log.Debug().
		Str("correlation_id", resp.CorrelationID).
		Str("resultado", out.ResultadoConsulta).
		Int("registros", len(out.Registros)).
		Msg("verifactu: consulta completada")
	return out, nil
}

func (m *Manager) execute(ctx context.Context, op string, body any, creds aeat.Credentials, link verifactu.ChainLink) (*aeat.Response, error) {
	endpoint, err := m.cfg.ServiceURL(aeat.ServiceBilling)
	if err != nil {
		return nil, err
	}
	if creds.IsZero() {
		creds = m.cfg.Credentials()
	}
	resp, err := m.transport.Execute(ctx, aeat.Call{
		Endpoint:    endpoint,
		Payload:     aeat.Wrapped{Operation: op, Body: body},
		Credentials: creds,
	})
	if err != nil {
		m.log.Error().Err(err).
			Str("operation", op).
			Str("num_serie", link.NumSerieFactura).
			Bool("service_unavailable", pkgvf.IsServiceUnavailable(err)).
			Msg("verifactu: envío fallido")
		return nil, err
	}
	return resp, nil
}

func (m *Manager) remember(s Submission) {
	m.mu.Lock()
	m.last = &s
	m.mu.Unlock()
}
