// Package discover serves the home screen: the destination catalogue, AI
// featured picks, trip ideas and the hero banner.
package discover

import (
	"context"
	"errors"
	"slices"
	"time"
	"unicode/utf8"

	"backend-nepaltrip/internal/ai"
	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/content"
	"backend-nepaltrip/internal/shared/latest"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	DefaultTTL = 6 * time.Hour

	featuredKey  = "featured"
	tripIdeasKey = "trip_ideas"
	heroKey      = "hero"

	featuredCount  = 3
	tripIdeasCount = 4

	heroImagePrompt = "A breathtaking wide photo of the Himalayas in Nepal: "

	maxGuideName = 120
)

var (
	errNoIdeas = errors.New("no trip ideas returned")
	errNoPicks = errors.New("no featured destinations returned")
)

type Service struct {
	ai    *ai.Gateway
	cache *cache.Cache
	guard *latest.Guard
	log   *zap.Logger
}

func NewService(gateway *ai.Gateway, ttl time.Duration, log *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		ai:    gateway,
		cache: cache.New(ttl, ttl*2),
		guard: latest.New(),
		log:   log,
	}
}

// refresh runs load and caches its result unless a newer refresh of the
// same key started while load was in flight. Failed loads are not cached.
func refresh[T any](s *Service, key string, load func() (T, error)) (T, error) {
	ticket := s.guard.Begin(key)
	v, err := load()
	if err != nil {
		return v, err
	}
	if !s.guard.Commit(ticket, func() { s.cache.SetDefault(key, v) }) {
		s.log.Debug("discarding stale refresh", zap.String("key", key))
	}
	return v, nil
}

func cached[T any](s *Service, key string) (T, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Featured is the catalogue followed by AI picks that are not already in
// it. When the model fails the catalogue is returned alone and nothing is
// cached.
func (s *Service) Featured(ctx context.Context) []content.Destination {
	if v, ok := cached[[]content.Destination](s, featuredKey); ok {
		return slices.Clone(v)
	}

	base := Destinations(nil)
	out, err := refresh(s, featuredKey, func() ([]content.Destination, error) {
		names := make([]string, 0, len(base))
		for _, d := range base {
			names = append(names, d.Name)
		}
		picks, err := s.ai.FeaturedDestinations(ctx, featuredCount, names)
		if err != nil {
			return nil, err
		}
		if len(picks) == 0 {
			return nil, errNoPicks
		}
		out := slices.Clone(base)
		for _, p := range picks {
			if slices.Contains(names, p.Name) {
				continue
			}
			names = append(names, p.Name)
			p.Image = ai.PlaceholderImage(p.Name)
			out = append(out, p)
		}
		return out, nil
	})
	if err != nil {
		s.log.Warn("featured destinations unavailable", zap.Error(err))
		return base
	}
	return slices.Clone(out)
}

// TripIdeas falls back to the built-in examples when the model fails.
func (s *Service) TripIdeas(ctx context.Context) []content.TripIdea {
	if v, ok := cached[[]content.TripIdea](s, tripIdeasKey); ok {
		return slices.Clone(v)
	}
	ideas, err := refresh(s, tripIdeasKey, func() ([]content.TripIdea, error) {
		ideas, err := s.ai.TripIdeas(ctx, tripIdeasCount)
		if err == nil && len(ideas) == 0 {
			err = errNoIdeas
		}
		return ideas, err
	})
	if err != nil {
		s.log.Warn("trip ideas unavailable", zap.Error(err))
		return slices.Clone(exampleTrips)
	}
	return slices.Clone(ideas)
}

// Hero pairs a generated headline with a generated image. Without a
// headline the default banner is used; without an image the headline keeps
// the default picture.
func (s *Service) Hero(ctx context.Context) content.HeroContent {
	if v, ok := cached[content.HeroContent](s, heroKey); ok {
		return v
	}
	hero, err := refresh(s, heroKey, func() (content.HeroContent, error) {
		hero, err := s.ai.Hero(ctx)
		if err != nil {
			return hero, err
		}
		img, err := s.ai.GenerateImage(ctx, heroImagePrompt+hero.Title)
		if err != nil {
			hero.Image = defaultHero.Image
		} else {
			hero.Image = img.DataURI()
		}
		return hero, nil
	})
	if err != nil {
		s.log.Warn("hero text unavailable", zap.Error(err))
		return defaultHero
	}
	return hero
}

// Guide streams a travel guide for a destination.
// Guide streams a destination guide. Names are free text from the client
// and end up in the prompt, so their length is capped.
func (s *Service) Guide(ctx context.Context, name string) (*ai.TextStream, error) {
	if utf8.RuneCountInString(name) > maxGuideName {
		return nil, apperr.Invalid(nil, "destination name longer than %d characters", maxGuideName)
	}
	return s.ai.DestinationGuide(ctx, name)
}

func (s *Service) Hotlines() []Hotline {
	return slices.Clone(hotlines)
}
