package contact

import (
	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/auth"
	"backend-nepaltrip/internal/content"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Use(authMiddleware)

	r.Get("/", func(c *fiber.Ctx) error {
		contacts, err := svc.List(c.Context(), auth.UserID(c))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(contacts)
	})

	r.Post("/", func(c *fiber.Ctx) error {
		var req content.EmergencyContact
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		contact, err := svc.Create(c.Context(), auth.UserID(c), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(contact)
	})

	r.Delete("/:id", func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), auth.UserID(c), c.Params("id")); err != nil {
			return apperr.Fiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
