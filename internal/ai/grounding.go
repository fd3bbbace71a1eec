package ai

import (
	"bytes"
	"encoding/json"

	"backend-nepaltrip/internal/content"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// groundingMetadata mirrors the wire shape of a candidate's grounding
// metadata. Review snippets arrive either as one object or as a list, and
// their fields have been renamed across API versions.
type groundingMetadata struct {
	GroundingChunks []struct {
		Web *struct {
			URI   string `json:"uri"`
			Title string `json:"title"`
		} `json:"web"`
		Maps *struct {
			URI                string          `json:"uri"`
			Title              string          `json:"title"`
			PlaceAnswerSources json.RawMessage `json:"placeAnswerSources"`
		} `json:"maps"`
	} `json:"groundingChunks"`
}

type placeAnswerSources struct {
	ReviewSnippets []reviewSnippet `json:"reviewSnippets"`
}

type reviewSnippet struct {
	URI           string `json:"uri"`
	GoogleMapsURI string `json:"googleMapsUri"`
	Title         string `json:"title"`
	Text          string `json:"text"`
	Review        string `json:"review"`
}

// sources extracts the citations attached to the first candidate. Missing
// metadata is not an error; the result is then empty.
func sources(resp *genai.GenerateContentResponse, log *zap.Logger) []content.Source {
	out := []content.Source{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return out
	}
	raw, err := json.Marshal(resp.Candidates[0].GroundingMetadata)
	if err != nil {
		log.Warn("encode grounding metadata", zap.Error(err))
		return out
	}
	return parseSources(raw, log)
}

func parseSources(raw []byte, log *zap.Logger) []content.Source {
	out := []content.Source{}
	var md groundingMetadata
	if err := json.Unmarshal(raw, &md); err != nil {
		log.Warn("decode grounding metadata", zap.Error(err))
		return out
	}

	seen := map[string]struct{}{}
	for _, chunk := range md.GroundingChunks {
		switch {
		case chunk.Web != nil && chunk.Web.URI != "":
			if _, dup := seen[chunk.Web.URI]; dup {
				continue
			}
			seen[chunk.Web.URI] = struct{}{}
			out = append(out, content.Source{Web: &content.WebSource{URI: chunk.Web.URI, Title: chunk.Web.Title}})
		case chunk.Maps != nil && chunk.Maps.URI != "":
			if _, dup := seen[chunk.Maps.URI]; dup {
				continue
			}
			seen[chunk.Maps.URI] = struct{}{}
			out = append(out, content.Source{Maps: &content.MapsSource{
				URI:            chunk.Maps.URI,
				Title:          chunk.Maps.Title,
				ReviewSnippets: reviewSnippets(chunk.Maps.PlaceAnswerSources),
			}})
		}
	}
	return out
}

func reviewSnippets(raw json.RawMessage) []content.ReviewSnippet {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var groups []placeAnswerSources
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &groups); err != nil {
			return nil
		}
	} else {
		var one placeAnswerSources
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil
		}
		groups = append(groups, one)
	}

	var out []content.ReviewSnippet
	for _, g := range groups {
		for _, r := range g.ReviewSnippets {
			out = append(out, content.ReviewSnippet{
				URI:   firstNonEmpty(r.URI, r.GoogleMapsURI),
				Title: r.Title,
				Text:  firstNonEmpty(r.Text, r.Review),
			})
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
