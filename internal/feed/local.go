package feed

import (
	"context"
	"encoding/json"
	"slices"
	"time"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/content"
	"backend-nepaltrip/internal/kv"

	"github.com/google/uuid"
)

// PostsKey is the namespace key holding the JSON array of posts.
const PostsKey = "travel_app_posts"

// Local keeps the whole collection as one JSON document in a kv namespace.
// It has no push; callers re-list on demand.
type Local struct {
	ns    kv.Namespace
	owner string
	now   func() time.Time
}

// NewLocal returns a store over ns. owner receives the likes of legacy
// records that were flagged isLiked.
func NewLocal(ns kv.Namespace, owner string) *Local {
	return &Local{ns: ns, owner: owner, now: time.Now}
}

func (s *Local) List(ctx context.Context) ([]content.Post, error) {
	data, err := s.ns.Get(ctx, PostsKey)
	if err != nil {
		return nil, apperr.Storage(err, "read posts")
	}
	return s.decode(data)
}

func (s *Local) Get(ctx context.Context, id string) (content.Post, error) {
	posts, err := s.List(ctx)
	if err != nil {
		return content.Post{}, err
	}
	i := indexOf(posts, id)
	if i < 0 {
		return content.Post{}, apperr.NotFound("post %s not found", id)
	}
	return posts[i], nil
}

func (s *Local) Create(ctx context.Context, in content.NewPost) (content.Post, error) {
	post := content.Post{
		ID:           uuid.NewString(),
		AuthorID:     in.AuthorID,
		Author:       in.Author,
		AuthorAvatar: in.AuthorAvatar,
		Location:     in.Location,
		Image:        in.Image,
		Caption:      in.Caption,
		LikedBy:      []string{},
		Comments:     []content.Comment{},
		Tags:         in.Tags,
		Type:         in.Type,
		CreatedAt:    s.now(),
	}
	err := s.mutate(ctx, func(posts []content.Post) ([]content.Post, error) {
		return append([]content.Post{post}, posts...), nil
	})
	if err != nil {
		return content.Post{}, err
	}
	return post, nil
}

func (s *Local) Update(ctx context.Context, id string, patch content.PostPatch) error {
	return s.mutate(ctx, func(posts []content.Post) ([]content.Post, error) {
		if i := indexOf(posts, id); i >= 0 {
			posts[i].Apply(patch)
		}
		return posts, nil
	})
}

func (s *Local) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func(posts []content.Post) ([]content.Post, error) {
		return slices.DeleteFunc(posts, func(p content.Post) bool { return p.ID == id }), nil
	})
}

func (s *Local) ToggleLike(ctx context.Context, id, actor string) (content.Post, error) {
	var out content.Post
	err := s.mutate(ctx, func(posts []content.Post) ([]content.Post, error) {
		i := indexOf(posts, id)
		if i < 0 {
			return nil, apperr.NotFound("post %s not found", id)
		}
		posts[i].LikedBy, _ = content.ToggleMember(posts[i].LikedBy, actor)
		out = posts[i]
		return posts, nil
	})
	return out, err
}

func (s *Local) AddComment(ctx context.Context, postID string, in content.NewComment) (content.Comment, error) {
	comment := content.Comment{
		ID:           uuid.NewString(),
		AuthorID:     in.AuthorID,
		Author:       in.Author,
		AuthorAvatar: in.AuthorAvatar,
		Text:         in.Text,
		LikedBy:      []string{},
		CreatedAt:    s.now(),
	}
	err := s.mutate(ctx, func(posts []content.Post) ([]content.Post, error) {
		i := indexOf(posts, postID)
		if i < 0 {
			return nil, apperr.NotFound("post %s not found", postID)
		}
		posts[i].Comments = append(posts[i].Comments, comment)
		return posts, nil
	})
	if err != nil {
		return content.Comment{}, err
	}
	return comment, nil
}

func (s *Local) DeleteComment(ctx context.Context, postID, commentID string) error {
	return s.mutate(ctx, func(posts []content.Post) ([]content.Post, error) {
		if i := indexOf(posts, postID); i >= 0 {
			posts[i].Comments = slices.DeleteFunc(posts[i].Comments, func(c content.Comment) bool {
				return c.ID == commentID
			})
		}
		return posts, nil
	})
}

func (s *Local) ToggleCommentLike(ctx context.Context, postID, commentID, actor string) (content.Post, error) {
	var out content.Post
	err := s.mutate(ctx, func(posts []content.Post) ([]content.Post, error) {
		i := indexOf(posts, postID)
		if i < 0 {
			return nil, apperr.NotFound("post %s not found", postID)
		}
		j := posts[i].CommentIndex(commentID)
		if j < 0 {
			return nil, apperr.NotFound("comment %s not found", commentID)
		}
		posts[i].Comments[j].LikedBy, _ = content.ToggleMember(posts[i].Comments[j].LikedBy, actor)
		out = posts[i]
		return posts, nil
	})
	return out, err
}

func (s *Local) decode(data []byte) ([]content.Post, error) {
	posts, err := content.DecodePosts(data, s.owner)
	if err != nil {
		return nil, apperr.Storage(err, "read posts")
	}
	return posts, nil
}

// mutate runs fn as one atomic read-modify-write of the document. fn may
// run more than once when another writer gets in first. Nothing is written
// when fn fails.
func (s *Local) mutate(ctx context.Context, fn func([]content.Post) ([]content.Post, error)) error {
	var failed error
	err := s.ns.Update(ctx, PostsKey, func(data []byte) ([]byte, error) {
		failed = nil
		posts, err := s.decode(data)
		if err == nil {
			posts, err = fn(posts)
		}
		if err != nil {
			failed = err
			return nil, err
		}
		out, err := json.Marshal(posts)
		if err != nil {
			failed = apperr.Storage(err, "encode posts")
			return nil, failed
		}
		return out, nil
	})
	if failed != nil {
		return failed
	}
	if err != nil {
		return apperr.Storage(err, "write posts")
	}
	return nil
}

func indexOf(posts []content.Post, id string) int {
	return slices.IndexFunc(posts, func(p content.Post) bool { return p.ID == id })
}
