package qr

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/boombuler/barcode"
	bqr "github.com/boombuler/barcode/qr"

	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

const (
	// DefaultSize lado en píxeles si no se indica otro.
	DefaultSize = 300
	// MaxSize límite superior del lado de la imagen.
	MaxSize = 2000
)

// encode genera la matriz QR con corrección de errores nivel M.
func encode(content string) (barcode.Barcode, error) {
	if content == "" {
		return nil, pkgvf.MissingRequiredField("contenido QR")
	}
	code, err := bqr.Encode(content, bqr.M, bqr.Auto)
	if err != nil {
		return nil, fmt.Errorf("qr: codificar: %w", err)
	}
	return code, nil
}

func checkSize(size, modules int) (int, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		return 0, pkgvf.InvalidInvoiceData("size", fmt.Sprintf("máximo %d píxeles", MaxSize))
	}
	if size < modules {
		return 0, pkgvf.InvalidInvoiceData("size", fmt.Sprintf("mínimo %d píxeles para este contenido", modules))
	}
	return size, nil
}

// RenderPNG imagen PNG cuadrada de size píxeles (DefaultSize si size<=0).
func RenderPNG(content string, size int) ([]byte, error) {
	code, err := encode(content)
	if err != nil {
		return nil, err
	}
	size, err = checkSize(size, code.Bounds().Dx())
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("qr: escalar: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("qr: codificar png: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderBase64 PNG codificado en Base64 estándar.
func RenderBase64(content string, size int) (string, error) {
	raw, err := RenderPNG(content, size)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DataURI PNG como data URI para incrustar en HTML.
func DataURI(content string, size int) (string, error) {
	b64, err := RenderBase64(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + b64, nil
}

// RenderSVG documento SVG: fondo blanco y un único path con un cuadrado por módulo oscuro.
func RenderSVG(content string, size int) (string, error) {
	code, err := encode(content)
	if err != nil {
		return "", err
	}
	modules := code.Bounds().Dx()
	size, err = checkSize(size, modules)
	if err != nil {
		return "", err
	}

	var d strings.Builder
	b := code.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if dark(code, x, y) {
				fmt.Fprintf(&d, "M%d %dh1v1h-1z", x-b.Min.X, y-b.Min.Y)
			}
		}
	}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Startview(size, size, 0, 0, modules, modules)
	canvas.Rect(0, 0, modules, modules, `fill="#ffffff"`)
	canvas.Path(d.String(), `fill="#000000" shape-rendering="crispEdges"`)
	canvas.End()
	return buf.String(), nil
}

func dark(code barcode.Barcode, x, y int) bool {
	r, _, _, _ := code.At(x, y).RGBA()
	return r < 0x8000
}
