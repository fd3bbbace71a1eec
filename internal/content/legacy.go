package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// storedPost accepts both the canonical Post encoding and the older
// counter-based shape (numeric ids, "likes"/"isLiked", "avatar",
// "authorAvatar", epoch "timestamp", comment counts).
type storedPost struct {
	ID           json.RawMessage `json:"id"`
	AuthorID     string          `json:"author_id"`
	Author       string          `json:"author"`
	AuthorAvatar string          `json:"author_avatar"`
	CamelAvatar  string          `json:"authorAvatar"`
	Avatar       string          `json:"avatar"`
	Location     string          `json:"location"`
	Image        string          `json:"image"`
	Caption      string          `json:"caption"`
	LikedBy      []string        `json:"liked_by"`
	LegacyLikes  int             `json:"legacy_likes"`
	Likes        *int            `json:"likes"`
	IsLiked      bool            `json:"isLiked"`
	Comments     json.RawMessage `json:"comments"`
	Tags         []string        `json:"tags"`
	Type         PostType        `json:"type"`
	CreatedAt    json.RawMessage `json:"created_at"`
	Timestamp    json.RawMessage `json:"timestamp"`
}

type storedComment struct {
	ID           json.RawMessage `json:"id"`
	AuthorID     string          `json:"author_id"`
	Author       string          `json:"author"`
	AuthorAvatar string          `json:"author_avatar"`
	CamelAvatar  string          `json:"authorAvatar"`
	Text         string          `json:"text"`
	LikedBy      []string        `json:"liked_by"`
	CreatedAt    json.RawMessage `json:"created_at"`
	Timestamp    json.RawMessage `json:"timestamp"`
}

// DecodePosts reads a JSON array of posts in either encoding and returns them
// in canonical form, newest first. owner is the actor a legacy isLiked flag
// is attributed to. Records with a duplicate id are dropped. Records without
// an id get one derived from their content, so repeated reads agree.
func DecodePosts(data []byte, owner string) ([]Post, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []Post{}, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	posts := make([]Post, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, raw := range records {
		var sp storedPost
		if err := json.Unmarshal(raw, &sp); err != nil {
			return nil, fmt.Errorf("decode posts: %w", err)
		}
		p := sp.normalize(derivedID("", raw), owner)
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		posts = append(posts, p)
	}
	return SortNewestFirst(posts), nil
}

// documentKeys maps document field names onto the stored JSON names.
var documentKeys = map[string]string{
	"authorId":    "author_id",
	"likedBy":     "liked_by",
	"legacyLikes": "legacy_likes",
}

// DecodeDocument reads one post held as a document field map, as document
// stores return it. The second result reports a counter-shaped record
// ("likes"/"isLiked" fields) that should be rewritten in canonical form.
// A "likes" array of actor ids is merged into the like-set.
func DecodeDocument(id string, fields map[string]any, owner string) (Post, bool, error) {
	rec := renameKeys(fields)
	_, hasLikes := rec["likes"]
	_, hasFlag := rec["isLiked"]
	legacy := hasLikes || hasFlag

	var likers []string
	if arr, ok := rec["likes"].([]any); ok {
		for _, v := range arr {
			if actor, ok := v.(string); ok {
				likers = append(likers, actor)
			}
		}
		delete(rec, "likes")
	}
	if comments, ok := rec["comments"].([]any); ok {
		renamed := make([]any, 0, len(comments))
		for _, c := range comments {
			if m, ok := c.(map[string]any); ok {
				renamed = append(renamed, renameKeys(m))
				continue
			}
			renamed = append(renamed, c)
		}
		rec["comments"] = renamed
	}
	delete(rec, "id")

	raw, err := json.Marshal(rec)
	if err != nil {
		return Post{}, false, fmt.Errorf("decode post %s: %w", id, err)
	}
	var sp storedPost
	if err := json.Unmarshal(raw, &sp); err != nil {
		return Post{}, false, fmt.Errorf("decode post %s: %w", id, err)
	}
	p := sp.normalize(id, owner)
	p.ID = id
	for _, actor := range likers {
		if !slices.Contains(p.LikedBy, actor) {
			p.LikedBy = append(p.LikedBy, actor)
		}
	}
	return p, legacy, nil
}

func renameKeys(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if name, ok := documentKeys[k]; ok {
			k = name
		}
		out[k] = v
	}
	return out
}

func (sp storedPost) normalize(fallbackID, owner string) Post {
	p := Post{
		ID:           rawID(sp.ID, fallbackID),
		AuthorID:     sp.AuthorID,
		Author:       sp.Author,
		AuthorAvatar: firstNonEmpty(sp.AuthorAvatar, sp.CamelAvatar, sp.Avatar),
		Location:     sp.Location,
		Image:        sp.Image,
		Caption:      sp.Caption,
		LikedBy:      slices.Clone(sp.LikedBy),
		LegacyLikes:  sp.LegacyLikes,
		Tags:         sp.Tags,
		Type:         sp.Type,
		CreatedAt:    rawTime(sp.CreatedAt, sp.Timestamp),
		Comments:     []Comment{},
	}
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}

	if sp.Likes != nil {
		MigrateCounter(&p, *sp.Likes, sp.IsLiked, owner)
	}

	// A bare number is the legacy comment count; there is nothing to restore.
	var comments []json.RawMessage
	if len(sp.Comments) > 0 && sp.Comments[0] == '[' {
		if err := json.Unmarshal(sp.Comments, &comments); err == nil {
			for _, raw := range comments {
				var sc storedComment
				if err := json.Unmarshal(raw, &sc); err != nil {
					continue
				}
				p.Comments = append(p.Comments, sc.normalize(derivedID(p.ID, raw)))
			}
		}
	}
	return p
}

func (sc storedComment) normalize(fallbackID string) Comment {
	c := Comment{
		ID:           rawID(sc.ID, fallbackID),
		AuthorID:     sc.AuthorID,
		Author:       sc.Author,
		AuthorAvatar: firstNonEmpty(sc.AuthorAvatar, sc.CamelAvatar),
		Text:         sc.Text,
		LikedBy:      slices.Clone(sc.LikedBy),
		CreatedAt:    rawTime(sc.CreatedAt, sc.Timestamp),
	}
	if c.LikedBy == nil {
		c.LikedBy = []string{}
	}
	return c
}

// MigrateCounter folds a counter-only like total into p. A set isLiked flag
// becomes owner's membership; the rest of the count stays anonymous.
func MigrateCounter(p *Post, likes int, isLiked bool, owner string) {
	if isLiked && owner != "" {
		if !slices.Contains(p.LikedBy, owner) {
			p.LikedBy = append(p.LikedBy, owner)
		}
		likes--
	}
	p.LegacyLikes = max(likes, 0)
}

func rawID(raw json.RawMessage, fallback string) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		return fallback
	}
	return string(raw)
}

// derivedID names a record that was stored without an id. The same record
// under the same parent always gets the same id.
func derivedID(parent string, record []byte) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, append([]byte(parent+"/"), record...)).String()
}

func rawTime(candidates ...json.RawMessage) time.Time {
	for _, raw := range candidates {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			continue
		}
		if t, err := ParseTimestamp(v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
