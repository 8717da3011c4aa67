package verifactu

import (
	"fmt"
	"regexp"
	"time"
	_ "time/tzdata" // zona Europe/Madrid disponible en contenedores sin tzdata
)

const (
	// LayoutFecha formato DD-MM-YYYY usado en todo el payload y la URL del QR.
	LayoutFecha = "02-01-2006"
	// LayoutTimestamp FechaHoraHusoGenRegistro (ISO-8601 con huso numérico).
	LayoutTimestamp = "2006-01-02T15:04:05-07:00"
	// DefaultTimezone zona en la que se generan los registros salvo indicación.
	DefaultTimezone = "Europe/Madrid"
)

var fechaPattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)

// ParseFecha valida estrictamente DD-MM-YYYY con validez de calendario.
func ParseFecha(s string) (time.Time, error) {
	if !fechaPattern.MatchString(s) {
		return time.Time{}, InvalidInvoiceData("fecha", fmt.Sprintf("%q no tiene formato DD-MM-YYYY", s))
	}
	t, err := time.Parse(LayoutFecha, s)
	if err != nil {
		return time.Time{}, InvalidInvoiceData("fecha", fmt.Sprintf("%q no es una fecha válida", s))
	}
	return t, nil
}

// FormatFecha formatea una fecha como DD-MM-YYYY.
func FormatFecha(t time.Time) string {
	return t.Format(LayoutFecha)
}

// Location devuelve la zona indicada o Europe/Madrid si name está vacío.
func Location(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, ConfigurationError("timezone", err.Error())
	}
	return loc, nil
}

// MadridLocation zona por defecto; cae a UTC solo si la base tz no está disponible.
func MadridLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormatTimestamp formatea t en loc (Europe/Madrid si es nil) con el layout de FechaHoraHusoGenRegistro.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = MadridLocation()
	}
	return t.In(loc).Format(LayoutTimestamp)
}
