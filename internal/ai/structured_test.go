package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/content"

	"go.uber.org/zap"
)

func TestParseSources(t *testing.T) {
	raw := `{"groundingChunks":[
		{"web":{"uri":"https://a.example","title":"A"}},
		{"web":{"uri":"https://a.example","title":"A again"}},
		{"maps":{"uri":"https://maps/1","title":"Boudhanath","placeAnswerSources":{"reviewSnippets":[{"uri":"https://r/1","title":"Ram","text":"Peaceful"}]}}},
		{"maps":{"uri":"https://maps/2","title":"Swayambhu","placeAnswerSources":[{"reviewSnippets":[{"googleMapsUri":"https://r/2","title":"Sita","review":"Monkeys!"}]}]}},
		{"web":{"title":"no uri"}}
	]}`
	got := parseSources([]byte(raw), zap.NewNop())
	if len(got) != 3 {
		t.Fatalf("expected 3 deduplicated sources, got %d", len(got))
	}
	if got[0].Web == nil || got[0].Web.Title != "A" {
		t.Fatalf("unexpected web source: %+v", got[0])
	}
	one := got[1].Maps
	if one == nil || len(one.ReviewSnippets) != 1 || one.ReviewSnippets[0].Text != "Peaceful" {
		t.Fatalf("unexpected object-shaped snippets: %+v", got[1])
	}
	two := got[2].Maps
	if two == nil || len(two.ReviewSnippets) != 1 || two.ReviewSnippets[0].URI != "https://r/2" || two.ReviewSnippets[0].Text != "Monkeys!" {
		t.Fatalf("unexpected list-shaped snippets: %+v", got[2])
	}

	if empty := parseSources([]byte(`not json`), zap.NewNop()); empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty sources on garbage")
	}
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		`[1]`:                     `[1]`,
		"```json\n[1]\n```":       `[1]`,
		"  ```\n{\"a\":1}\n```  ": `{"a":1}`,
	}
	for in, want := range cases {
		if got := stripFences(in); got != want {
			t.Fatalf("stripFences(%q) = %q want %q", in, got, want)
		}
	}
}

func TestFeaturedDestinations(t *testing.T) {
	gen := newFake()
	gen.text = "```json\n" + `[
		{"name":"Rara Lake","location":"Mugu","description":"Nepal's largest lake.","tags":["Nature","Nightlife","AI Pick"]},
		{"name":"","location":"Nowhere","description":"missing name"}
	]` + "\n```"
	g := newTestGateway(t, gen, time.Second)

	dests, err := g.FeaturedDestinations(context.Background(), 2, []string{"Pokhara Valley"})
	if err != nil {
		t.Fatalf("featured: %v", err)
	}
	if len(dests) != 1 || dests[0].Name != "Rara Lake" {
		t.Fatalf("expected invalid item dropped, got %+v", dests)
	}
	if strings.Join(dests[0].Tags, ",") != "Nature,AI Pick" {
		t.Fatalf("unexpected tags %v", dests[0].Tags)
	}
	if !strings.Contains(gen.contents[0].Parts[0].Text, "Pokhara Valley") {
		t.Fatalf("expected exclusions in prompt")
	}
	if gen.cfg.ResponseMIMEType != "application/json" || gen.cfg.ResponseSchema == nil {
		t.Fatalf("expected schema-constrained request")
	}
}

func TestStructuredMalformedReply(t *testing.T) {
	gen := newFake()
	gen.text = "Here are some ideas: trek!"
	g := newTestGateway(t, gen, time.Second)

	ideas, err := g.TripIdeas(context.Background(), 3)
	if err != nil {
		t.Fatalf("an undecodable list is not an error, got %v", err)
	}
	if ideas == nil || len(ideas) != 0 {
		t.Fatalf("expected empty list, got %v", ideas)
	}
	if _, err := g.Hero(context.Background()); !errors.Is(err, apperr.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}

	gen.text = `{"title":"Discover Nepal"}`
	if _, err := g.Hero(context.Background()); !errors.Is(err, apperr.ErrParse) {
		t.Fatalf("expected parse error for missing description, got %v", err)
	}

	gen.text = `{"title":"Discover Nepal","description":"Roof of the world."}`
	hero, err := g.Hero(context.Background())
	if err != nil || hero != (content.HeroContent{Title: "Discover Nepal", Description: "Roof of the world."}) {
		t.Fatalf("unexpected hero %+v %v", hero, err)
	}
}
