package content

import "time"

type PostType string

const (
	PostText  PostType = "text"
	PostPhoto PostType = "photo"
	PostNews  PostType = "news"
)

// Post is the canonical feed record. Likes are a like-set of actor ids plus
// an anonymous count carried over from counter-only records. AuthorID is the
// account that created the post; records without one are read-only.
type Post struct {
	ID           string    `json:"id" firestore:"-"`
	AuthorID     string    `json:"author_id,omitempty" firestore:"authorId"`
	Author       string    `json:"author" firestore:"author"`
	AuthorAvatar string    `json:"author_avatar" firestore:"authorAvatar"`
	Location     string    `json:"location" firestore:"location"`
	Image        string    `json:"image,omitempty" firestore:"image"`
	Caption      string    `json:"caption" firestore:"caption"`
	LikedBy      []string  `json:"liked_by" firestore:"likedBy"`
	LegacyLikes  int       `json:"legacy_likes,omitempty" firestore:"legacyLikes"`
	Comments     []Comment `json:"comments" firestore:"comments"`
	Tags         []string  `json:"tags,omitempty" firestore:"tags"`
	Type         PostType  `json:"type,omitempty" firestore:"type"`
	CreatedAt    time.Time `json:"created_at" firestore:"timestamp"`
}

type Comment struct {
	ID           string    `json:"id" firestore:"id"`
	AuthorID     string    `json:"author_id,omitempty" firestore:"authorId"`
	Author       string    `json:"author" firestore:"author"`
	AuthorAvatar string    `json:"author_avatar" firestore:"authorAvatar"`
	Text         string    `json:"text" firestore:"text"`
	LikedBy      []string  `json:"liked_by" firestore:"likedBy"`
	CreatedAt    time.Time `json:"created_at" firestore:"timestamp"`
}

// NewPost is the create payload; id and timestamp are assigned by the store.
// AuthorID is taken from the authenticated caller, never from the body.
type NewPost struct {
	AuthorID     string   `json:"-" validate:"required"`
	Author       string   `json:"author" validate:"required,max=80"`
	AuthorAvatar string   `json:"author_avatar" validate:"omitempty,max=2048"`
	Location     string   `json:"location" validate:"max=120"`
	Image        string   `json:"image"`
	Caption      string   `json:"caption" validate:"required_without=Image,max=2200"`
	Tags         []string `json:"tags" validate:"max=10,dive,max=40"`
	Type         PostType `json:"type" validate:"omitempty,oneof=text photo news"`
}

// PostPatch carries the mutable fields of a post; nil means unchanged.
type PostPatch struct {
	Location *string   `json:"location"`
	Image    *string   `json:"image"`
	Caption  *string   `json:"caption"`
	Tags     *[]string `json:"tags"`
}

type NewComment struct {
	AuthorID     string `json:"-" validate:"required"`
	Author       string `json:"author" validate:"required,max=80"`
	AuthorAvatar string `json:"author_avatar" validate:"omitempty,max=2048"`
	Text         string `json:"text" validate:"required,max=1000"`
}

type Tag string

const (
	TagTrending  Tag = "Trending"
	TagAIPick    Tag = "AI Pick"
	TagHiddenGem Tag = "Hidden Gem"
	TagAdventure Tag = "Adventure"
	TagCultural  Tag = "Cultural"
	TagNature    Tag = "Nature"
	TagSpiritual Tag = "Spiritual"
)

var DestinationTags = []Tag{TagTrending, TagAIPick, TagHiddenGem, TagAdventure, TagCultural, TagNature, TagSpiritual}

func ValidTag(s string) bool {
	for _, t := range DestinationTags {
		if string(t) == s {
			return true
		}
	}
	return false
}

// Destination is display-only and never updated once produced.
type Destination struct {
	Name        string   `json:"name" validate:"required"`
	Location    string   `json:"location" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Image       string   `json:"image"`
	Tags        []string `json:"tags"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type ChatMessage struct {
	Role Role   `json:"role" validate:"required,oneof=user model"`
	Text string `json:"text"`
}

type TripIdea struct {
	Title  string `json:"title" validate:"required"`
	Prompt string `json:"prompt" validate:"required"`
}

type EmergencyContact struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required,max=80"`
	Phone string `json:"phone" validate:"required,max=32"`
}

type HeroContent struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Image       string `json:"image"`
}

type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type ReviewSnippet struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

type MapsSource struct {
	URI            string          `json:"uri"`
	Title          string          `json:"title"`
	ReviewSnippets []ReviewSnippet `json:"review_snippets,omitempty"`
}

// Source is one citation; exactly one of Web or Maps is set.
type Source struct {
	Web  *WebSource  `json:"web,omitempty"`
	Maps *MapsSource `json:"maps,omitempty"`
}

type SearchResult struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}
