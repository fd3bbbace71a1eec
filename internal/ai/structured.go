package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/content"
	"backend-nepaltrip/internal/shared/validate"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	featuredPrompt = `Suggest %d lesser-known but remarkable travel destinations in Nepal for the home screen of a travel app.
Do not include any of these: %s.
For each give the destination name, its district or province as location, a one-sentence description, and tags chosen only from: %s.`

	tripIdeasPrompt = "Suggest %d short, inspiring trip ideas for Nepal. For each give a catchy title of at most six words and the full request a traveller would send to a trip planner to get that itinerary."

	heroPrompt = "Write a headline of at most six words and one inspiring sentence inviting travellers to discover Nepal this season."
)

func structuredConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
}

func stringSchema() *genai.Schema {
	return &genai.Schema{Type: genai.TypeString}
}

func objectSchema(props map[string]*genai.Schema, required ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

func listSchema(item *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: item}
}

var (
	destinationSchema = listSchema(objectSchema(map[string]*genai.Schema{
		"name":        stringSchema(),
		"location":    stringSchema(),
		"description": stringSchema(),
		"tags":        listSchema(stringSchema()),
	}, "name", "location", "description"))

	tripIdeaSchema = listSchema(objectSchema(map[string]*genai.Schema{
		"title":  stringSchema(),
		"prompt": stringSchema(),
	}, "title", "prompt"))

	heroSchema = objectSchema(map[string]*genai.Schema{
		"title":       stringSchema(),
		"description": stringSchema(),
	}, "title", "description")

	analysisSchema = objectSchema(map[string]*genai.Schema{
		"location": stringSchema(),
		"caption":  stringSchema(),
	}, "location", "caption")
)

// StructuredList asks for a JSON array matching schema. Items that fail
// validation are dropped. An undecodable reply is logged and yields an
// empty list; callers fall back on an empty result.
func StructuredList[T any](ctx context.Context, g *Gateway, op, prompt string, schema *genai.Schema) ([]T, error) {
	_, text, err := g.generate(ctx, op, StructuredModel, []*genai.Content{userText(prompt)}, structuredConfig(schema))
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal([]byte(stripFences(text)), &items); err != nil {
		g.log.Warn("structured reply did not decode", zap.String("operation", op), zap.Error(err))
		return []T{}, nil
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		if err := validate.Check(item); err != nil {
			g.log.Debug("dropping invalid item", zap.String("operation", op), zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// StructuredObject asks for one JSON object matching schema.
func StructuredObject[T any](ctx context.Context, g *Gateway, op, prompt string, schema *genai.Schema) (T, error) {
	var zero T
	_, text, err := g.generate(ctx, op, StructuredModel, []*genai.Content{userText(prompt)}, structuredConfig(schema))
	if err != nil {
		return zero, err
	}
	return decodeObject[T](op, text)
}

func decodeObject[T any](op, text string) (T, error) {
	var v T
	if err := json.Unmarshal([]byte(stripFences(text)), &v); err != nil {
		var zero T
		return zero, apperr.Parse(err, "%s", op)
	}
	if err := validate.Check(v); err != nil {
		var zero T
		return zero, apperr.Parse(err, "%s", op)
	}
	return v, nil
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}

// FeaturedDestinations asks for n destinations not named in exclude.
func (g *Gateway) FeaturedDestinations(ctx context.Context, n int, exclude []string) ([]content.Destination, error) {
	tags := make([]string, 0, len(content.DestinationTags))
	for _, t := range content.DestinationTags {
		tags = append(tags, string(t))
	}
	prompt := fmt.Sprintf(featuredPrompt, n, strings.Join(exclude, ", "), strings.Join(tags, ", "))
	dests, err := StructuredList[content.Destination](ctx, g, "featured_destinations", prompt, destinationSchema)
	if err != nil {
		return nil, err
	}
	for i := range dests {
		kept := dests[i].Tags[:0]
		for _, t := range dests[i].Tags {
			if content.ValidTag(t) && t != string(content.TagAIPick) {
				kept = append(kept, t)
			}
		}
		dests[i].Tags = append(kept, string(content.TagAIPick))
	}
	return dests, nil
}

func (g *Gateway) TripIdeas(ctx context.Context, n int) ([]content.TripIdea, error) {
	return StructuredList[content.TripIdea](ctx, g, "trip_ideas", fmt.Sprintf(tripIdeasPrompt, n), tripIdeaSchema)
}

// Hero returns the home screen headline without an image.
func (g *Gateway) Hero(ctx context.Context) (content.HeroContent, error) {
	return StructuredObject[content.HeroContent](ctx, g, "hero", heroPrompt, heroSchema)
}
