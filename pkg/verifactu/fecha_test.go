package verifactu_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

func TestParseFecha(t *testing.T) {
	d, err := verifactu.ParseFecha("01-09-2024")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.September, d.Month())

	for _, bad := range []string{"2024-09-01", "1-9-2024", "31-02-2024", "00-01-2024", "01/09/2024", ""} {
		_, err := verifactu.ParseFecha(bad)
		assert.Error(t, err, "%q debe fallar", bad)
	}
	_, err = verifactu.ParseFecha("29-02-2024")
	assert.NoError(t, err, "2024 es bisiesto")
}

func TestFormatTimestamp_Madrid(t *testing.T) {
	ts := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-09-01T10:00:00+02:00", verifactu.FormatTimestamp(ts, nil))

	winter := time.Date(2024, 1, 1, 18, 20, 30, 0, time.UTC)
	assert.Equal(t, "2024-01-01T19:20:30+01:00", verifactu.FormatTimestamp(winter, nil))
	assert.Equal(t, "2024-01-01T18:20:30+00:00", verifactu.FormatTimestamp(winter, time.UTC))
}

func TestLocation(t *testing.T) {
	loc, err := verifactu.Location("")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", loc.String())

	_, err = verifactu.Location("Mars/Olympus")
	assert.True(t, verifactu.IsCategory(err, verifactu.CategoryConfiguration))
}
