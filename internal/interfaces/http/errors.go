package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Verifactu-api/internal/application/dto"
	pkgvf "github.com/jhoicas/Verifactu-api/pkg/verifactu"
)

// writeError traduce un error del motor a status HTTP y dto.ErrorResponse.
// El código de respuesta es el Kind del primer BillingError; si hay varios (validación
// unida con errors.Join) todos van en Details.
func writeError(c *fiber.Ctx, err error) error {
	all := pkgvf.BillingErrors(err)
	if len(all) == 0 {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	be := all[0]
	out := dto.ErrorResponse{Code: codeFor(be), Message: be.Error()}
	if len(all) > 1 {
		out.Message = err.Error()
		out.Details = make([]dto.ErrorDetail, 0, len(all))
		for _, e := range all {
			d := dto.ErrorDetail{Code: codeFor(e), Message: e.Message}
			if f, ok := e.Context["field"].(string); ok {
				d.Field = f
			}
			out.Details = append(out.Details, d)
		}
	}
	return c.Status(statusFor(be)).JSON(out)
}

func statusFor(be *pkgvf.BillingError) int {
	switch be.Category {
	case pkgvf.CategoryValidation:
		return fiber.StatusUnprocessableEntity
	case pkgvf.CategoryAuthentication:
		if be.Kind == pkgvf.KindCertificateError {
			return fiber.StatusInternalServerError
		}
		return fiber.StatusBadGateway
	case pkgvf.CategoryCommunication:
		if be.Kind == pkgvf.KindServiceUnavailable {
			return fiber.StatusServiceUnavailable
		}
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func codeFor(be *pkgvf.BillingError) string {
	if be.Kind == "" {
		return "INTERNAL"
	}
	return string(be.Kind)
}
