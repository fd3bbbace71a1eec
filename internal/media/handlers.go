package media

import (
	"io"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the multipart upload. The size ceiling is checked
// from the part header before any bytes reach the uploader.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/upload", authMiddleware, func(c *fiber.Ctx) error {
		header, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file required")
		}
		if header.Size > svc.MaxBytes() {
			return apperr.Fiber(apperr.PayloadTooLarge(header.Size, svc.MaxBytes()))
		}

		f, err := header.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, svc.MaxBytes()+1))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if int64(len(data)) > svc.MaxBytes() {
			return apperr.Fiber(apperr.PayloadTooLarge(int64(len(data)), svc.MaxBytes()))
		}

		obj, err := svc.Upload(c.Context(), auth.UserID(c), data, header.Filename)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	})
}
