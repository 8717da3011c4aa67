package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Verifactu-api/internal/application/dto"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// RequireObligado verifica que el NIF del token JWT sea el del obligado que atiende la API.
// Debe usarse DESPUÉS de AuthMiddleware (necesita LocalNIF).
//
// Comportamiento:
//   - 401 Unauthorized → el token no incluye NIF.
//   - 403 Forbidden    → el NIF del token es de otro obligado.
func RequireObligado(obligadoNIF string) fiber.Handler {
	want := pkgvf.NormalizeTaxID(obligadoNIF)
	return func(c *fiber.Ctx) error {
		nif := GetNIF(c)
		if nif == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "nif no encontrado en el token",
			})
		}
		if pkgvf.NormalizeTaxID(nif) != want {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "NIF_MISMATCH",
				Message: "el token no pertenece al obligado " + want,
			})
		}
		return c.Next()
	}
}
