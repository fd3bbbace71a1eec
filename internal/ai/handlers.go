package ai

import (
	"context"
	"fmt"
	"io"
	"strings"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/content"
	"backend-nepaltrip/internal/shared/geo"
	"backend-nepaltrip/internal/shared/validate"

	"github.com/gofiber/fiber/v2"
)

const maxAnalyzeBytes = 5 << 20

type chatRequest struct {
	Prompt  string                `json:"prompt" validate:"required,max=4000"`
	History []content.ChatMessage `json:"history" validate:"max=100,dive"`
}

type promptRequest struct {
	Prompt string `json:"prompt" validate:"max=4000"`
}

type imageRequest struct {
	Prompt string `json:"prompt" validate:"required,max=1000"`
	Label  string `json:"label" validate:"max=80"`
}

type imageResponse struct {
	Image       string `json:"image"`
	Placeholder bool   `json:"placeholder"`
}

type nearbyResponse struct {
	content.SearchResult
	FallbackLocation bool   `json:"fallback_location"`
	Notice           string `json:"notice,omitempty"`
	Message          string `json:"message,omitempty"`
}

// failWith keeps the status of err but replaces the body with a fixed
// user-facing message.
func failWith(err error, message string) error {
	return fiber.NewError(apperr.Status(err), message)
}

// Streams outlive the handler, so they run on a background context and end
// through Close when the client goes away.
func RegisterRoutes(r fiber.Router, g *Gateway) {
	r.Get("/chat/greeting", func(c *fiber.Ctx) error {
		return c.JSON(content.ChatMessage{Role: content.RoleModel, Text: Greeting})
	})

	r.Post("/chat", func(c *fiber.Ctx) error {
		var req chatRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Input(req); err != nil {
			return apperr.Fiber(err)
		}
		stream, err := g.ChatReply(context.Background(), req.Prompt, req.History)
		if err != nil {
			return failWith(err, ChatApology)
		}
		return StreamSSE(c, stream, ChatApology)
	})

	r.Post("/chat/reply", func(c *fiber.Ctx) error {
		var req chatRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Input(req); err != nil {
			return apperr.Fiber(err)
		}
		msg, err := g.Chat(c.UserContext(), req.Prompt, req.History)
		if err != nil {
			return failWith(err, ChatApology)
		}
		return c.JSON(msg)
	})

	r.Post("/plan", func(c *fiber.Ctx) error {
		prompt, err := planPrompt(c)
		if err != nil {
			return err
		}
		stream, err := g.PlanTrip(context.Background(), prompt)
		if err != nil {
			return failWith(err, PlanFailure)
		}
		return StreamSSE(c, stream, PlanFailure)
	})

	r.Post("/plan/text", func(c *fiber.Ctx) error {
		prompt, err := planPrompt(c)
		if err != nil {
			return err
		}
		text, err := g.PlanTripText(c.UserContext(), prompt)
		if err != nil {
			return failWith(err, PlanFailure)
		}
		return c.JSON(fiber.Map{"text": text})
	})

	r.Get("/search", func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q required")
		}
		res, err := g.GroundedSearch(c.UserContext(), q)
		if err != nil {
			return failWith(err, SearchFailure)
		}
		return c.JSON(res)
	})

	r.Get("/nearby", func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q required")
		}
		point, fallback := geo.Resolve(c.Query("lat"), c.Query("lng"))
		res, err := g.NearbyPlaces(c.UserContext(), q, point)
		if err != nil {
			return failWith(err, PlacesFailure)
		}
		out := nearbyResponse{SearchResult: res, FallbackLocation: fallback}
		if fallback {
			out.Notice = LocationNotice
		}
		if len(res.Sources) == 0 {
			out.Message = fmt.Sprintf(PlacesNone, q)
		}
		return c.JSON(out)
	})

	r.Post("/images", func(c *fiber.Ctx) error {
		var req imageRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Input(req); err != nil {
			return apperr.Fiber(err)
		}
		img, err := g.GenerateImage(c.UserContext(), req.Prompt)
		if err != nil {
			label := req.Label
			if label == "" {
				label = req.Prompt
			}
			return c.JSON(imageResponse{Image: PlaceholderImage(label), Placeholder: true})
		}
		return c.JSON(imageResponse{Image: img.DataURI()})
	})

	r.Post("/analyze", func(c *fiber.Ctx) error {
		header, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file required")
		}
		if header.Size > maxAnalyzeBytes {
			return apperr.Fiber(apperr.PayloadTooLarge(header.Size, maxAnalyzeBytes))
		}
		f, err := header.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxAnalyzeBytes))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		mime := header.Header.Get(fiber.HeaderContentType)
		if mime == "" || mime == fiber.MIMEOctetStream {
			mime = "image/jpeg"
		}
		analysis, err := g.AnalyzeImage(c.UserContext(), data, mime)
		if err != nil {
			return apperr.Fiber(err)
		}
		return c.JSON(analysis)
	})
}

func planPrompt(c *fiber.Ctx) (string, error) {
	var req promptRequest
	if err := c.BodyParser(&req); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, PlanEmpty)
	}
	if err := validate.Input(req); err != nil {
		return "", apperr.Fiber(err)
	}
	return prompt, nil
}
