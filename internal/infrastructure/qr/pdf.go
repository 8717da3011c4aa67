package qr

import (
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// Stamp sello imprimible: "QR tributario", el código y, en VERI*FACTU, la leyenda.
type Stamp struct {
	Data      Data
	Verifactu bool
	IsTest    bool
	Emisor    string // razón social, opcional
}

// RenderPDF genera un PDF A4 con el sello QR en la cabecera de la página.
func RenderPDF(s Stamp) ([]byte, error) {
	u, err := s.Data.URL(s.Verifactu, s.IsTest)
	if err != nil {
		return nil, err
	}
	nif, fecha, importe, err := s.Data.normalized()
	if err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("QR tributario "+s.Data.NumSerie, true).
		Build()
	m := maroto.New(cfg)

	m.AddRows(row.New(8).Add(col.New(12).Add(
		text.New("QR tributario:", props.Text{Style: fontstyle.Bold, Size: 10, Color: colorPrimary, Top: 1}),
	)))
	m.AddRows(row.New(40).Add(
		col.New(3).Add(code.NewQr(u, props.Rect{Percent: 100, Center: true})),
		col.New(9).Add(
			text.New("NIF emisor: "+nif, props.Text{Size: 8, Top: 2, Left: 3}),
			text.New("Número de serie: "+s.Data.NumSerie, props.Text{Size: 8, Top: 8, Left: 3}),
			text.New("Fecha de expedición: "+fecha, props.Text{Size: 8, Top: 14, Left: 3}),
			text.New("Importe total: "+importe+" EUR", props.Text{Size: 8, Top: 20, Left: 3}),
			text.New(s.Emisor, props.Text{Size: 8, Top: 26, Left: 3, Color: colorGray}),
		),
	))
	if s.Verifactu {
		m.AddRows(row.New(8).Add(col.New(3).Add(
			text.New("VERI*FACTU", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Center, Top: 1}),
		)))
	}
	if s.IsTest {
		m.AddRows(row.New(6).Add(col.New(12).Add(
			text.New("Entorno de pruebas AEAT: sin validez tributaria", props.Text{Size: 7, Color: colorGray, Top: 1}),
		)))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("qr: generar pdf: %w", err)
	}
	return doc.GetBytes(), nil
}
