package billing

//go:generate mockgen -source=ports.go -destination=ports_mock.go -package=billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Verifactu-api/internal/domain/verifactu"
	"github.com/jhoicas/Verifactu-api/internal/infrastructure/aeat"
)

// Transport ejecuta una operación SOAP contra la AEAT. *aeat.SOAPClient la implementa; los
// tests usan un transporte en memoria.
type Transport interface {
	Execute(ctx context.Context, call aeat.Call) (*aeat.Response, error)
}

// Tipos de registro guardados en el histórico de envíos.
const (
	RecordAlta      = "alta"
	RecordAnulacion = "anulacion"
)

// SubmissionRecord fila del histórico de registros remitidos.
type SubmissionRecord struct {
	ID                       string
	CorrelationID            string
	TipoRegistro             string
	TipoFactura              string
	IDEmisorFactura          string
	NumSerieFactura          string
	FechaExpedicionFactura   string
	Huella                   string
	FechaHoraHusoGenRegistro string
	ImporteTotal             decimal.Decimal
	EstadoEnvio              string
	CSV                      string
	SentAt                   time.Time
}

// Link encadenamiento que apunta a este registro.
func (r SubmissionRecord) Link() verifactu.ChainLink {
	return verifactu.ChainLink{
		IDEmisorFactura:        r.IDEmisorFactura,
		NumSerieFactura:        r.NumSerieFactura,
		FechaExpedicionFactura: r.FechaExpedicionFactura,
		Huella:                 r.Huella,
	}
}

// SubmissionStore persiste los registros remitidos y devuelve el último de cada obligado.
type SubmissionStore interface {
	Save(ctx context.Context, rec SubmissionRecord) error
	// Last último registro guardado para el NIF; ok=false si no hay ninguno.
	Last(ctx context.Context, nif string) (rec SubmissionRecord, ok bool, err error)
}
