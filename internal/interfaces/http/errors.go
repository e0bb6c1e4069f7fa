package http

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

var validate = validator.New()

// statusOf código HTTP de cada tipo de error de dominio.
func statusOf(k domain.Kind) int {
	switch k {
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindValidationFailed:
		return fiber.StatusBadRequest
	case domain.KindInsufficientStock, domain.KindAlreadyCompleted:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError traduce el error de dominio a ErrorResponse.
func respondError(c *fiber.Ctx, err error) error {
	if errors.Is(err, domain.ErrForbidden) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "stock.error.forbidden"})
	}
	kind := domain.KindOf(err)
	return c.Status(statusOf(kind)).JSON(dto.ErrorResponse{Code: string(kind), Message: domain.MessageKey(kind)})
}

// parseBody decodifica y valida el cuerpo. Si falla ya respondió; el handler debe devolver el error tal cual.
func parseBody(c *fiber.Ctx, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate.Struct(out); err != nil {
		return false, respondValidation(c, err)
	}
	return true, nil
}

func respondValidation(c *fiber.Ctx, err error) error {
	resp := dto.ErrorResponse{
		Code:    string(domain.KindValidationFailed),
		Message: domain.MessageKey(domain.KindValidationFailed),
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) {
		resp.Fields = make(map[string]string, len(ves))
		for _, ve := range ves {
			resp.Fields[ve.Field()] = ve.Tag()
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(resp)
}
