package feed

import (
	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/auth"
	"backend-nepaltrip/internal/content"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the feed. Reads are open; is_liked reflects the
// caller when a token is present. Posts are edited and deleted by their
// authors only.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/posts", func(c *fiber.Ctx) error {
		posts, err := svc.List(c.Context(), auth.UserID(c))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(posts)
	})

	r.Post("/posts", authMiddleware, func(c *fiber.Ctx) error {
		var req content.NewPost
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		post, err := svc.Create(c.Context(), req, auth.UserID(c))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(post)
	})

	r.Patch("/posts/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req content.PostPatch
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := svc.Update(c.Context(), c.Params("id"), auth.UserID(c), req); err != nil {
			return apperr.Fiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Delete("/posts/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.Delete(c.Context(), c.Params("id"), auth.UserID(c)); err != nil {
			return apperr.Fiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/posts/:id/like", authMiddleware, func(c *fiber.Ctx) error {
		post, err := svc.ToggleLike(c.Context(), c.Params("id"), auth.UserID(c))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(post)
	})

	r.Post("/posts/:id/comments", authMiddleware, func(c *fiber.Ctx) error {
		var req content.NewComment
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		comment, err := svc.AddComment(c.Context(), c.Params("id"), auth.UserID(c), req)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(comment)
	})

	r.Delete("/posts/:id/comments/:commentID", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteComment(c.Context(), c.Params("id"), c.Params("commentID"), auth.UserID(c)); err != nil {
			return apperr.Fiber(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/posts/:id/comments/:commentID/like", authMiddleware, func(c *fiber.Ctx) error {
		post, err := svc.ToggleCommentLike(c.Context(), c.Params("id"), c.Params("commentID"), auth.UserID(c))
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(post)
	})
}
