package content

import (
	"slices"
	"time"
)

// ToggleMember flips actor's membership in set. The returned bool reports
// whether actor is a member afterwards. The input slice is not modified.
func ToggleMember(set []string, actor string) ([]string, bool) {
	if i := slices.Index(set, actor); i >= 0 {
		out := make([]string, 0, len(set)-1)
		out = append(out, set[:i]...)
		return append(out, set[i+1:]...), false
	}
	out := make([]string, 0, len(set)+1)
	out = append(out, set...)
	return append(out, actor), true
}

func (p Post) LikeCount() int {
	return p.LegacyLikes + len(p.LikedBy)
}

func (p Post) LikedByActor(actor string) bool {
	return actor != "" && slices.Contains(p.LikedBy, actor)
}

// OwnedBy reports whether actor created p.
func (p Post) OwnedBy(actor string) bool {
	return actor != "" && p.AuthorID == actor
}

func (c Comment) OwnedBy(actor string) bool {
	return actor != "" && c.AuthorID == actor
}

func (p Post) CommentIndex(id string) int {
	return slices.IndexFunc(p.Comments, func(c Comment) bool { return c.ID == id })
}

// Apply copies the non-nil patch fields onto p.
func (p *Post) Apply(patch PostPatch) {
	if patch.Location != nil {
		p.Location = *patch.Location
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Caption != nil {
		p.Caption = *patch.Caption
	}
	if patch.Tags != nil {
		p.Tags = slices.Clone(*patch.Tags)
	}
}

// SortNewestFirst orders posts by creation time descending; ties keep their
// relative order.
func SortNewestFirst(posts []Post) []Post {
	slices.SortStableFunc(posts, func(a, b Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return posts
}

type CommentView struct {
	Comment
	Likes   int    `json:"likes"`
	IsLiked bool   `json:"is_liked"`
	TimeAgo string `json:"time_ago"`
}

type PostView struct {
	Post
	Likes        int           `json:"likes"`
	IsLiked      bool          `json:"is_liked"`
	CommentCount int           `json:"comment_count"`
	TimeAgo      string        `json:"time_ago"`
	Comments     []CommentView `json:"comments"`
}

// ViewFor renders p as seen by viewer at now.
func ViewFor(p Post, viewer string, now time.Time) PostView {
	comments := make([]CommentView, 0, len(p.Comments))
	for _, c := range p.Comments {
		comments = append(comments, CommentView{
			Comment: c,
			Likes:   len(c.LikedBy),
			IsLiked: viewer != "" && slices.Contains(c.LikedBy, viewer),
			TimeAgo: TimeAgo(c.CreatedAt, now),
		})
	}
	return PostView{
		Post:         p,
		Likes:        p.LikeCount(),
		IsLiked:      p.LikedByActor(viewer),
		CommentCount: len(p.Comments),
		TimeAgo:      TimeAgo(p.CreatedAt, now),
		Comments:     comments,
	}
}

func ViewsFor(posts []Post, viewer string, now time.Time) []PostView {
	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, ViewFor(p, viewer, now))
	}
	return views
}
