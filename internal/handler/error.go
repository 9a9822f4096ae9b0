package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/tuncerburak97/munzi/internal/errextract"
	"github.com/tuncerburak97/munzi/internal/middleware"
	"github.com/tuncerburak97/munzi/internal/model"
)

const (
	CodeValidation = "E001"
	CodeClient     = "E400"
	CodeInternal   = "E500"
)

// ErrorHandler renders every failure as a model.ErrorResponse and reports
// it to the traffic pipeline.
func ErrorHandler(c *fiber.Ctx, err error) error {
	resp := errorResponse(err)

	if resp.Status >= fiber.StatusInternalServerError {
		zerolog.Ctx(c.UserContext()).Error().
			Stack().
			Err(err).
			Str("path", c.Path()).
			Msg("Request failed")
	}

	middleware.ReportError(c.UserContext(), resp, err)
	return c.Status(resp.Status).JSON(resp)
}

func errorResponse(err error) model.ErrorResponse {
	var ve *errextract.ValidationError
	if errors.As(err, &ve) {
		message := "bad request"
		if len(ve.Violations) > 0 {
			message = ve.Violations[0].Message
		}
		return model.ErrorResponse{Status: fiber.StatusBadRequest, Code: CodeValidation, Message: message}
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := CodeClient
		if fe.Code >= fiber.StatusInternalServerError {
			code = CodeInternal
		}
		return model.ErrorResponse{Status: fe.Code, Code: code, Message: fe.Message}
	}

	return model.ErrorResponse{
		Status:  fiber.StatusInternalServerError,
		Code:    CodeInternal,
		Message: "internal server error",
	}
}
