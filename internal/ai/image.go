package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"time"

	"backend-nepaltrip/internal/apperr"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

var errNoImage = errors.New("model returned no image")

type Image struct {
	Data     []byte
	MIMEType string
}

// DataURI encodes the image inline so it can be stored or rendered without
// an upload.
func (img Image) DataURI() string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// PlaceholderImage is the stand-in shown when generation fails.
func PlaceholderImage(label string) string {
	return "https://placehold.co/400x300/0d0d0d/ffffff?text=" + url.QueryEscape(label)
}

// GenerateImage renders one image for prompt.
func (g *Gateway) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	const op = "generate_image"
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.admit(ctx, op); err != nil {
		observe(op, start, err)
		return Image{}, err
	}
	resp, err := g.gen.GenerateImages(ctx, ImageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "4:3",
	})
	if err == nil && (resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
		len(resp.GeneratedImages[0].Image.ImageBytes) == 0) {
		err = errNoImage
	}
	if err != nil {
		err = apperr.Service(err, "%s", op)
		g.log.Warn("image generation failed", zap.Error(err))
		observe(op, start, err)
		return Image{}, err
	}
	observe(op, start, nil)
	img := resp.GeneratedImages[0].Image
	return Image{Data: img.ImageBytes, MIMEType: img.MIMEType}, nil
}

type ImageAnalysis struct {
	Location string `json:"location" validate:"required"`
	Caption  string `json:"caption" validate:"required"`
}

// AnalyzeImage guesses where a photo was taken and drafts a caption for it.
func (g *Gateway) AnalyzeImage(ctx context.Context, data []byte, mimeType string) (ImageAnalysis, error) {
	const op = "analyze_image"
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{Data: data, MIMEType: mimeType}},
			{Text: analyzePrompt},
		},
	}}
	_, text, err := g.generate(ctx, op, StructuredModel, contents, structuredConfig(analysisSchema))
	if err != nil {
		return ImageAnalysis{}, err
	}
	return decodeObject[ImageAnalysis](op, text)
}
