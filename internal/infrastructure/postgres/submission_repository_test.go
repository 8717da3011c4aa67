package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Verifactu-api/internal/application/billing"
)

// fakeQuerier guarda la última sentencia y responde con err o con row.
type fakeQuerier struct {
	sql  string
	args []any
	err  error
	row  fakeRow
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.sql, f.args = sql, args
	return nil, errors.New("no implementado")
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *decimal.Decimal:
			*p = r.values[i].(decimal.Decimal)
		case *time.Time:
			*p = r.values[i].(time.Time)
		}
	}
	return nil
}

const huella = "F81DC8A7259991160F03B90190C7FA4F4F83F3C87CE7440668FCC414C7C0BE69"

func TestSubmissionRepo_Save(t *testing.T) {
	q := &fakeQuerier{}
	repo := NewSubmissionRepository(q)
	sentAt := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)

	err := repo.Save(context.Background(), billing.SubmissionRecord{
		ID:                       "7f1c4c55-0000-4000-8000-000000000001",
		CorrelationID:            "corr-1",
		TipoRegistro:             billing.RecordAnulacion,
		IDEmisorFactura:          "89890001K",
		NumSerieFactura:          "F2024-001",
		FechaExpedicionFactura:   "01-09-2024",
		Huella:                   huella,
		FechaHoraHusoGenRegistro: "2024-09-01T10:05:00+02:00",
		SentAt:                   sentAt,
	})
	require.NoError(t, err)
	assert.Contains(t, q.sql, "INSERT INTO verifactu_submissions")
	require.Len(t, q.args, 13)
	assert.Nil(t, q.args[3], "tipo_factura vacío en anulaciones")
	assert.Equal(t, huella, q.args[7])
	assert.True(t, q.args[9].(decimal.Decimal).IsZero())
	assert.Nil(t, q.args[10])
	assert.Equal(t, sentAt, q.args[12])
}

func TestSubmissionRepo_Save_Duplicado(t *testing.T) {
	q := &fakeQuerier{err: &pgconn.PgError{Code: "23505"}}
	err := NewSubmissionRepository(q).Save(context.Background(), billing.SubmissionRecord{Huella: huella})
	assert.ErrorIs(t, err, ErrDuplicateSubmission)

	q.err = errors.New("conexión cerrada")
	err = NewSubmissionRepository(q).Save(context.Background(), billing.SubmissionRecord{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateSubmission)
}

func TestSubmissionRepo_Last(t *testing.T) {
	sentAt := time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC)
	q := &fakeQuerier{row: fakeRow{values: []any{
		"id-2", "corr-2", billing.RecordAlta, "F1", "89890001K",
		"F2024-002", "02-09-2024", huella, "2024-09-02T11:00:00+02:00", decimal.RequireFromString("60.50"),
		"Correcto", "A-TEST000000001", sentAt,
	}}}

	rec, ok, err := NewSubmissionRepository(q).Last(context.Background(), "89890001K")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []any{"89890001K"}, q.args)
	assert.Equal(t, "F2024-002", rec.NumSerieFactura)
	assert.True(t, rec.ImporteTotal.Equal(decimal.RequireFromString("60.5")))
	assert.Equal(t, sentAt, rec.SentAt)
	assert.Equal(t, huella, rec.Link().Huella)
}

func TestSubmissionRepo_Last_SinRegistros(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}
	_, ok, err := NewSubmissionRepository(q).Last(context.Background(), "89890001K")
	require.NoError(t, err)
	assert.False(t, ok)

	q.row.err = errors.New("timeout")
	_, _, err = NewSubmissionRepository(q).Last(context.Background(), "89890001K")
	assert.Error(t, err)
}

func TestEnsureSchema(t *testing.T) {
	q := &fakeQuerier{}
	require.NoError(t, EnsureSchema(context.Background(), q))
	assert.Contains(t, q.sql, "CREATE TABLE IF NOT EXISTS verifactu_submissions")

	q.err = errors.New("permiso denegado")
	assert.Error(t, EnsureSchema(context.Background(), q))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("otro")))
}
