package http

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/validator"
)

var errInvalidBody = errors.New("invalid body")

// statusFor traduce el tipo de error del ledger a código HTTP.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindInsufficientStock, domain.KindConcurrencyConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError responde con el código y mensaje de domain.ResultOf; nunca expone causas internas.
func writeError(c *fiber.Ctx, err error) error {
	res := domain.ResultOf(err)
	return c.Status(statusFor(domain.ErrorKind(res.Code))).JSON(dto.ErrorResponse{Code: res.Code, Message: res.Message})
}

// bind parsea el cuerpo JSON (si lo hay) y lo valida.
func bind(c *fiber.Ctx, dst any) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(dst); err != nil {
			return errInvalidBody
		}
	}
	return validator.Validate(dst)
}

// bindQuery parsea y valida los parámetros de query.
func bindQuery(c *fiber.Ctx, dst any) error {
	if err := c.QueryParser(dst); err != nil {
		return errInvalidBody
	}
	return validator.Validate(dst)
}

// writeBindError responde 400 con el detalle por campo cuando la validación falla.
func writeBindError(c *fiber.Ctx, err error) error {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code:    string(domain.KindValidation),
			Message: ve.Error(),
			Fields:  ve.Fields(),
		})
	}
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// pathParam devuelve el parámetro de ruta sin escapes (%2F en números de documento).
func pathParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
