package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Verifactu-api/internal/application/dto"
	"github.com/jhoicas/Verifactu-api/internal/infrastructure/qr"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// QRHandler genera el código QR tributario (público).
type QRHandler struct {
	isTest bool
	emisor string
}

// NewQRHandler construye el handler para el entorno indicado. emisor se imprime en el PDF.
func NewQRHandler(isTest bool, emisor string) *QRHandler {
	return &QRHandler{isTest: isTest, emisor: emisor}
}

// Get devuelve la URL de cotejo o su imagen.
// GET /api/v1/qr?nif=&numserie=&fecha=&importe=&format=url|png|svg|base64|pdf&size=&verifactu=
func (h *QRHandler) Get(c *fiber.Ctx) error {
	importe, err := decimal.NewFromString(strings.TrimSpace(c.Query("importe")))
	if err != nil {
		return writeError(c, pkgvf.InvalidInvoiceData("importe", "no es un número"))
	}
	data := qr.Data{
		NIF:      c.Query("nif"),
		NumSerie: c.Query("numserie"),
		Fecha:    c.Query("fecha"),
		Importe:  importe,
	}
	verifactu := c.QueryBool("verifactu", true)
	url, err := data.URL(verifactu, h.isTest)
	if err != nil {
		return writeError(c, err)
	}
	size := c.QueryInt("size", qr.DefaultSize)

	switch strings.ToLower(c.Query("format", "url")) {
	case "url":
		return c.JSON(fiber.Map{"url": url})
	case "png":
		png, err := qr.RenderPNG(url, size)
		if err != nil {
			return writeError(c, err)
		}
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(png)
	case "svg":
		svg, err := qr.RenderSVG(url, size)
		if err != nil {
			return writeError(c, err)
		}
		c.Set(fiber.HeaderContentType, "image/svg+xml")
		return c.SendString(svg)
	case "base64":
		uri, err := qr.DataURI(url, size)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(fiber.Map{"url": url, "data_uri": uri})
	case "pdf":
		pdf, err := qr.RenderPDF(qr.Stamp{Data: data, Verifactu: verifactu, IsTest: h.isTest, Emisor: h.emisor})
		if err != nil {
			return writeError(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, `inline; filename="qr.pdf"`)
		return c.Send(pdf)
	}
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_FORMAT", Message: "format debe ser url, png, svg, base64 o pdf"})
}
