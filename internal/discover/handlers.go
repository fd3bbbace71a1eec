package discover

import (
	"context"
	"net/url"
	"strings"

	"backend-nepaltrip/internal/ai"
	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/shared/geo"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service) {
	r.Get("/destinations", func(c *fiber.Ctx) error {
		if c.Query("lat") == "" && c.Query("lng") == "" {
			return c.JSON(Destinations(nil))
		}
		point, _ := geo.Resolve(c.Query("lat"), c.Query("lng"))
		return c.JSON(Destinations(&point))
	})

	r.Get("/featured", func(c *fiber.Ctx) error {
		return c.JSON(svc.Featured(c.UserContext()))
	})

	r.Get("/trip-ideas", func(c *fiber.Ctx) error {
		return c.JSON(svc.TripIdeas(c.UserContext()))
	})

	r.Get("/hero", func(c *fiber.Ctx) error {
		return c.JSON(svc.Hero(c.UserContext()))
	})

	r.Get("/hotlines", func(c *fiber.Ctx) error {
		return c.JSON(svc.Hotlines())
	})

	r.Get("/guide/:name", func(c *fiber.Ctx) error {
		name, err := url.PathUnescape(c.Params("name"))
		if err != nil || strings.TrimSpace(name) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "destination name required")
		}
		stream, err := svc.Guide(context.Background(), name)
		if err != nil {
			return fiber.NewError(apperr.Status(err), ai.GuideFailure)
		}
		return ai.StreamSSE(c, stream, ai.GuideFailure)
	})
}
