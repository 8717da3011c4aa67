package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Verifactu-api/internal/application/billing"
	"github.com/jhoicas/Verifactu-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Manager   *billing.Manager
	JWTSecret string
	Logger    zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api/v1")

	// QR (público)
	obligado := deps.Manager.Obligado()
	qrHandler := NewQRHandler(deps.Manager.Config().IsTest(), obligado.NombreRazon)
	api.Get("/qr", qrHandler.Get)

	// Rutas protegidas (Bearer Token del obligado)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret), RequireObligado(obligado.NIF))
	invoiceHandler := NewInvoiceHandler(deps.Manager, deps.Logger)

	protected.Post("/invoices", RequireRole(jwt.RoleEmisor), invoiceHandler.Create)
	protected.Post("/cancellations", RequireRole(jwt.RoleEmisor), invoiceHandler.Cancel)
	protected.Post("/queries", RequireRole(jwt.RoleEmisor, jwt.RoleConsulta), invoiceHandler.Query)
	protected.Get("/chain/last", RequireRole(jwt.RoleEmisor), invoiceHandler.LastLink)
}
