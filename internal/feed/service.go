package feed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/auth"
	"backend-nepaltrip/internal/content"
	"backend-nepaltrip/internal/shared/validate"

	"go.uber.org/zap"
)

// ErrNoPush is returned by Mirror when the backend cannot push changes.
var ErrNoPush = errors.New("feed backend has no change subscription")

// FeedChannel is the stream hub channel feed snapshots are published on.
const FeedChannel = "feed"

// Publisher is the fan-out the feed mirrors snapshots into.
type Publisher interface {
	Broadcast(channel string, payload []byte)
}

// Authors resolves the account a post or comment is signed with.
type Authors interface {
	Profile(ctx context.Context, userID string) (auth.User, error)
}

var errNoActor = apperr.Unauthorized("actor required")

type Service struct {
	store   Store
	authors Authors
	log     *zap.Logger
	now     func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

// WithAuthors makes posts and comments carry the caller's account name and
// avatar instead of the ones in the payload.
func (s *Service) WithAuthors(a Authors) *Service {
	s.authors = a
	return s
}

func (s *Service) sign(ctx context.Context, actor string, name, avatar *string) error {
	if s.authors == nil {
		return nil
	}
	user, err := s.authors.Profile(ctx, actor)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Unauthorized("account %s no longer exists", actor)
	}
	if err != nil {
		return err
	}
	*name = user.Username
	if user.AvatarURL != "" {
		*avatar = user.AvatarURL
	}
	return nil
}

// owned loads a post and checks that actor created it.
func (s *Service) owned(ctx context.Context, id, actor string) (content.Post, error) {
	if actor == "" {
		return content.Post{}, errNoActor
	}
	post, err := s.store.Get(ctx, id)
	if err != nil {
		return content.Post{}, err
	}
	if !post.OwnedBy(actor) {
		return post, apperr.Forbidden("post %s belongs to another author", id)
	}
	return post, nil
}

func (s *Service) List(ctx context.Context, viewer string) ([]content.PostView, error) {
	posts, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return content.ViewsFor(posts, viewer, s.now()), nil
}

func (s *Service) Create(ctx context.Context, in content.NewPost, actor string) (content.PostView, error) {
	if actor == "" {
		return content.PostView{}, errNoActor
	}
	in.AuthorID = actor
	if err := s.sign(ctx, actor, &in.Author, &in.AuthorAvatar); err != nil {
		return content.PostView{}, err
	}
	if in.Type == "" {
		in.Type = content.PostText
		if in.Image != "" {
			in.Type = content.PostPhoto
		}
	}
	if err := validate.Input(in); err != nil {
		return content.PostView{}, err
	}
	post, err := s.store.Create(ctx, in)
	if err != nil {
		return content.PostView{}, err
	}
	s.log.Info("post created", zap.String("id", post.ID), zap.String("type", string(post.Type)))
	return content.ViewFor(post, actor, s.now()), nil
}

// Update patches a post. Only its author may edit it.
func (s *Service) Update(ctx context.Context, id, actor string, patch content.PostPatch) error {
	if _, err := s.owned(ctx, id, actor); err != nil {
		return err
	}
	return s.store.Update(ctx, id, patch)
}

// Delete removes a post. Only its author may delete it; an absent post is
// already deleted.
func (s *Service) Delete(ctx context.Context, id, actor string) error {
	_, err := s.owned(ctx, id, actor)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("post deleted", zap.String("id", id))
	return nil
}

func (s *Service) ToggleLike(ctx context.Context, id, actor string) (content.PostView, error) {
	if actor == "" {
		return content.PostView{}, errNoActor
	}
	post, err := s.store.ToggleLike(ctx, id, actor)
	if err != nil {
		return content.PostView{}, err
	}
	return content.ViewFor(post, actor, s.now()), nil
}

func (s *Service) AddComment(ctx context.Context, postID, actor string, in content.NewComment) (content.Comment, error) {
	if actor == "" {
		return content.Comment{}, errNoActor
	}
	in.AuthorID = actor
	if err := s.sign(ctx, actor, &in.Author, &in.AuthorAvatar); err != nil {
		return content.Comment{}, err
	}
	if err := validate.Input(in); err != nil {
		return content.Comment{}, err
	}
	return s.store.AddComment(ctx, postID, in)
}

// DeleteComment removes a comment. The comment's author and the post's
// author may delete it; absent posts and comments are already deleted.
func (s *Service) DeleteComment(ctx context.Context, postID, commentID, actor string) error {
	post, err := s.owned(ctx, postID, actor)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	case errors.Is(err, apperr.ErrForbidden):
		j := post.CommentIndex(commentID)
		if j < 0 {
			return nil
		}
		if !post.Comments[j].OwnedBy(actor) {
			return apperr.Forbidden("comment %s belongs to another author", commentID)
		}
	case err != nil:
		return err
	}
	return s.store.DeleteComment(ctx, postID, commentID)
}

func (s *Service) ToggleCommentLike(ctx context.Context, postID, commentID, actor string) (content.PostView, error) {
	if actor == "" {
		return content.PostView{}, errNoActor
	}
	post, err := s.store.ToggleCommentLike(ctx, postID, commentID, actor)
	if err != nil {
		return content.PostView{}, err
	}
	return content.ViewFor(post, actor, s.now()), nil
}

// Mirror publishes every pushed snapshot, rendered for an anonymous viewer,
// on FeedChannel until ctx ends or the returned func is called.
func (s *Service) Mirror(ctx context.Context, pub Publisher) (func(), error) {
	sub, ok := s.store.(Subscriber)
	if !ok {
		return nil, ErrNoPush
	}
	return sub.Subscribe(ctx, func(posts []content.Post) {
		payload, err := json.Marshal(content.ViewsFor(posts, "", s.now()))
		if err != nil {
			s.log.Warn("encode feed snapshot", zap.Error(err))
			return
		}
		pub.Broadcast(FeedChannel, payload)
	})
}
