package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Verifactu-api/internal/application/billing"
	"github.com/jhoicas/Verifactu-api/internal/application/dto"
	"github.com/jhoicas/Verifactu-api/internal/infrastructure/aeat"
)

// InvoiceHandler maneja altas, anulaciones y consultas VERI*FACTU (protegido).
type InvoiceHandler struct {
	mgr *billing.Manager
	log zerolog.Logger
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(mgr *billing.Manager, log zerolog.Logger) *InvoiceHandler {
	return &InvoiceHandler{mgr: mgr, log: log}
}

// Create remite un registro de alta a la AEAT.
// POST /api/v1/invoices
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.InvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	inv := h.mgr.InvoiceFromRequest(in)
	receipt, err := h.mgr.SendInvoice(c.UserContext(), inv, aeat.Credentials{})
	if err != nil {
		h.log.Warn().Err(err).Str("client_id", GetClientID(c)).Str("num_serie", in.NumSerie).Msg("alta no remitida")
		return writeError(c, err)
	}
	qrURL, err := h.mgr.InvoiceQRURL(inv)
	if err != nil {
		h.log.Warn().Err(err).Str("num_serie", in.NumSerie).Msg("no se pudo generar la URL QR")
		qrURL = ""
	}
	return c.Status(fiber.StatusCreated).JSON(billing.RegistrationDTO(receipt, qrURL))
}

// Cancel remite un registro de anulación.
// POST /api/v1/cancellations
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancellationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	receipt, err := h.mgr.SendCancellation(c.UserContext(), h.mgr.CancellationFromRequest(in), aeat.Credentials{})
	if err != nil {
		h.log.Warn().Err(err).Str("client_id", GetClientID(c)).Str("num_serie", in.NumSerie).Msg("anulación no remitida")
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(billing.RegistrationDTO(receipt, ""))
}

// Query consulta registros del obligado.
// POST /api/v1/queries
func (h *InvoiceHandler) Query(c *fiber.Ctx) error {
	var in dto.QueryRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	resp, err := h.mgr.QueryInvoice(c.UserContext(), h.mgr.QueryFromRequest(in), aeat.Credentials{})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(billing.QueryDTO(resp))
}

// LastLink encadenamiento que debe llevar el siguiente registro del obligado.
// GET /api/v1/chain/last
func (h *InvoiceHandler) LastLink(c *fiber.Ctx) error {
	link, ok, err := h.mgr.LastLink(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	if !ok {
		return c.JSON(dto.EncadenamientoDTO{PrimerRegistro: true})
	}
	return c.JSON(dto.EncadenamientoDTO{Anterior: &dto.ChainLinkDTO{
		NIF:      link.IDEmisorFactura,
		NumSerie: link.NumSerieFactura,
		Fecha:    link.FechaExpedicionFactura,
		Huella:   link.Huella,
	}})
}
