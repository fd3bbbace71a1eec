package trip

import (
	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the saved trips of the authenticated user.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Use(authMiddleware)

	r.Get("/", func(c *fiber.Ctx) error {
		status := Status(c.Query("status"))
		switch status {
		case "", StatusUpcoming, StatusSaved, StatusCompleted:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "status must be one of [upcoming saved completed]")
		}
		trips, err := svc.List(c.Context(), auth.UserID(c), status)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(trips)
	})

	r.Post("/", func(c *fiber.Ctx) error {
		var req NewTrip
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		trip, err := svc.Create(c.Context(), auth.UserID(c), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(trip)
	})

	r.Post("/plan", func(c *fiber.Ctx) error {
		var req PlanRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		trip, err := svc.Plan(c.UserContext(), auth.UserID(c), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(trip)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		trip, err := svc.Get(c.Context(), auth.UserID(c), c.Params("id"))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(trip)
	})

	r.Patch("/:id", func(c *fiber.Ctx) error {
		var req TripPatch
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		trip, err := svc.Update(c.Context(), auth.UserID(c), c.Params("id"), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(trip)
	})

	r.Delete("/:id", func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), auth.UserID(c), c.Params("id")); err != nil {
			return apperr.Fiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
