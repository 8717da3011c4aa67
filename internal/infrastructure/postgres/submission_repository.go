package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Verifactu-api/internal/application/billing"
)

var _ billing.SubmissionStore = (*SubmissionRepo)(nil)

// ErrDuplicateSubmission el registro (emisor + huella) ya estaba guardado.
var ErrDuplicateSubmission = errors.New("registro ya guardado en el histórico")

const schema = `
CREATE TABLE IF NOT EXISTS verifactu_submissions (
	seq                          BIGSERIAL PRIMARY KEY,
	id                           UUID NOT NULL UNIQUE,
	correlation_id               TEXT NOT NULL,
	tipo_registro                TEXT NOT NULL,
	tipo_factura                 TEXT,
	id_emisor_factura            TEXT NOT NULL,
	num_serie_factura            TEXT NOT NULL,
	fecha_expedicion_factura     TEXT NOT NULL,
	huella                       CHAR(64) NOT NULL,
	fecha_hora_huso_gen_registro TEXT NOT NULL,
	importe_total                NUMERIC(14,2) NOT NULL DEFAULT 0,
	estado_envio                 TEXT,
	csv                          TEXT,
	sent_at                      TIMESTAMPTZ NOT NULL,
	UNIQUE (id_emisor_factura, huella)
);
CREATE INDEX IF NOT EXISTS idx_verifactu_submissions_emisor ON verifactu_submissions (id_emisor_factura, seq DESC);`

// EnsureSchema crea la tabla del histórico si no existe.
func EnsureSchema(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, schema); err != nil {
		return fmt.Errorf("crear esquema: %w", err)
	}
	return nil
}

// SubmissionRepo histórico de registros remitidos (usable con pool o tx).
type SubmissionRepo struct {
	q Querier
}

// NewSubmissionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSubmissionRepository(q Querier) *SubmissionRepo {
	return &SubmissionRepo{q: q}
}

// Save inserta el registro. La cadena del obligado se ordena por orden de inserción.
func (r *SubmissionRepo) Save(ctx context.Context, rec billing.SubmissionRecord) error {
	query := `
		INSERT INTO verifactu_submissions (id, correlation_id, tipo_registro, tipo_factura, id_emisor_factura,
			num_serie_factura, fecha_expedicion_factura, huella, fecha_hora_huso_gen_registro, importe_total,
			estado_envio, csv, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.CorrelationID, rec.TipoRegistro, nullIfEmpty(rec.TipoFactura), rec.IDEmisorFactura,
		rec.NumSerieFactura, rec.FechaExpedicionFactura, rec.Huella, rec.FechaHoraHusoGenRegistro, rec.ImporteTotal,
		nullIfEmpty(rec.EstadoEnvio), nullIfEmpty(rec.CSV), rec.SentAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateSubmission, rec.Huella)
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// Last último registro guardado del emisor.
func (r *SubmissionRepo) Last(ctx context.Context, nif string) (billing.SubmissionRecord, bool, error) {
	query := `
		SELECT id, correlation_id, tipo_registro, COALESCE(tipo_factura, ''), id_emisor_factura,
			num_serie_factura, fecha_expedicion_factura, huella, fecha_hora_huso_gen_registro, importe_total,
			COALESCE(estado_envio, ''), COALESCE(csv, ''), sent_at
		FROM verifactu_submissions
		WHERE id_emisor_factura = $1
		ORDER BY seq DESC
		LIMIT 1`
	var (
		rec     billing.SubmissionRecord
		importe decimal.Decimal
	)
	err := r.q.QueryRow(ctx, query, nif).Scan(
		&rec.ID, &rec.CorrelationID, &rec.TipoRegistro, &rec.TipoFactura, &rec.IDEmisorFactura,
		&rec.NumSerieFactura, &rec.FechaExpedicionFactura, &rec.Huella, &rec.FechaHoraHusoGenRegistro, &importe,
		&rec.EstadoEnvio, &rec.CSV, &rec.SentAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return billing.SubmissionRecord{}, false, nil
		}
		return billing.SubmissionRecord{}, false, fmt.Errorf("select last submission: %w", err)
	}
	rec.ImporteTotal = importe
	return rec, true, nil
}
