package http

import (
	"errors"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/domain"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/service"
	"github.com/gofiber/fiber/v2"
)

func Register(app *fiber.App, svcs *service.Services) {
	g := app.Group("/api", RequestLogger())

	g.Post("/readings", func(c *fiber.Ctx) error {
		var sub service.Submission
		if err := c.BodyParser(&sub); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body", "message": err.Error()})
		}
		rd, err := svcs.Readings.Ingest(c.UserContext(), sub)
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(rd)
	})

	g.Get("/readings/:deviceKey", func(c *fiber.Ctx) error {
		out, err := svcs.Readings.Retrieve(c.UserContext(), c.Params("deviceKey"), c.QueryInt("limit", 0))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(out)
	})

	g.Get("/devices", func(c *fiber.Ctx) error {
		items, err := svcs.Devices.List(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(items)
	})

	g.Get("/devices/:deviceKey/reliability", func(c *fiber.Ctx) error {
		return c.JSON(svcs.Devices.Reliability(c.Params("deviceKey")))
	})
}

func writeError(c *fiber.Ctx, err error) error {
	status, kind := classify(err)
	return c.Status(status).JSON(fiber.Map{"error": kind, "message": err.Error()})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrMissingField):
		return fiber.StatusBadRequest, "missing_field"
	case errors.Is(err, domain.ErrEmptyPayload):
		return fiber.StatusBadRequest, "empty_payload"
	case errors.Is(err, domain.ErrOutOfRange):
		return fiber.StatusUnprocessableEntity, "out_of_range"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrStore):
		return fiber.StatusInternalServerError, "store_error"
	default:
		return fiber.StatusInternalServerError, "internal"
	}
}
