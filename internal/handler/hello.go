// Package handler holds the demo hello endpoints served behind the
// traffic middleware.
package handler

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tuncerburak97/munzi/internal/errextract"
	"github.com/tuncerburak97/munzi/internal/model"
	"github.com/tuncerburak97/munzi/internal/service"
	"github.com/valyala/fasthttp"
)

const mustNotBeBlank = "must not be blank"

type HelloHandler struct {
	names *service.NameService

	streamEvents   int
	streamInterval time.Duration
}

func NewHelloHandler(names *service.NameService) *HelloHandler {
	return &HelloHandler{
		names:          names,
		streamEvents:   5,
		streamInterval: 200 * time.Millisecond,
	}
}

func (h *HelloHandler) Register(router fiber.Router) {
	hello := router.Group("/hello")
	hello.Get("", h.Hello)
	hello.Post("", h.HelloPost)
	hello.Get("/secret", h.Secret)
	hello.Post("/secret", h.SecretPost)
	hello.Post("/no-secret", h.NoSecretPost)
	hello.Get("/stream", h.Stream)
	hello.Get("/fail", h.Fail)
}

// Hello logs name at every level and returns the stored names.
func (h *HelloHandler) Hello(c *fiber.Ctx) error {
	name := c.Query("name")
	if strings.TrimSpace(name) == "" {
		return errextract.NewValidationError(errextract.FieldViolation{Field: "name", Message: mustNotBeBlank})
	}

	logger := zerolog.Ctx(c.UserContext())
	logger.Trace().Msgf("trace hello %s", name)
	logger.Info().Msgf("info hello %s", name)
	logger.Debug().Msgf("debug hello %s", name)
	logger.Warn().Msgf("warn hello %s", name)
	logger.Error().Msgf("error hello %s", name)

	names, err := h.names.Names(c.UserContext())
	if err != nil {
		return err
	}
	return c.SendString(names)
}

// HelloPost takes a multipart form with a name and a file.
func (h *HelloHandler) HelloPost(c *fiber.Ctx) error {
	name := c.FormValue("name")
	file, err := c.FormFile("file")

	var violations []errextract.FieldViolation
	if strings.TrimSpace(name) == "" {
		violations = append(violations, errextract.FieldViolation{Field: "name", Message: mustNotBeBlank})
	}
	if err != nil {
		violations = append(violations, errextract.FieldViolation{Field: "file", Message: "must not be null"})
	}
	if len(violations) > 0 {
		return errextract.NewValidationError(violations...)
	}

	zerolog.Ctx(c.UserContext()).Debug().
		Str("name", name).
		Int64("fileSize", file.Size).
		Msg("Hello form received")

	if _, err := h.names.Create(c.UserContext(), name); err != nil {
		return err
	}
	return c.JSON(model.HelloResponse{Name: name})
}

func (h *HelloHandler) Secret(c *fiber.Ctx) error {
	names, err := h.names.Names(c.UserContext())
	if err != nil {
		return err
	}
	return c.SendString(names)
}

func (h *HelloHandler) SecretPost(c *fiber.Ctx) error {
	req, err := parseHello(c)
	if err != nil {
		return err
	}

	zerolog.Ctx(c.UserContext()).Debug().Msgf("name : %s", req.Name)

	if _, err := h.names.Create(c.UserContext(), req.Name); err != nil {
		return err
	}
	return c.JSON(model.HelloResponse{Name: req.Name})
}

func (h *HelloHandler) NoSecretPost(c *fiber.Ctx) error {
	req, err := parseHello(c)
	if err != nil {
		return err
	}
	return c.JSON(model.HelloResponse{Name: req.Name})
}

// Stream sends server-sent events. The body is never buffered for logging.
func (h *HelloHandler) Stream(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	events, interval := h.streamEvents, h.streamInterval
	var stream fasthttp.StreamWriter = func(w *bufio.Writer) {
		for i := 0; i < events; i++ {
			fmt.Fprintf(w, "id: %d\ndata: hello %d\n\n", i, i)
			if err := w.Flush(); err != nil {
				return
			}
			if interval > 0 {
				time.Sleep(interval)
			}
		}
	}
	c.Context().SetBodyStreamWriter(stream)
	return nil
}

// Fail always answers 500 with a stack-carrying error.
func (h *HelloHandler) Fail(c *fiber.Ctx) error {
	return errors.WithStack(errors.New("hello failed"))
}

func parseHello(c *fiber.Ctx) (*model.HelloRequest, error) {
	var req model.HelloRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	var violations []errextract.FieldViolation
	if strings.TrimSpace(req.Name) == "" {
		violations = append(violations, errextract.FieldViolation{Field: "name", Message: mustNotBeBlank})
	}
	if strings.TrimSpace(req.Name2) == "" {
		violations = append(violations, errextract.FieldViolation{Field: "name2", Message: mustNotBeBlank})
	}
	if len(violations) > 0 {
		return nil, errextract.NewValidationError(violations...)
	}
	return &req, nil
}
