package feed

import (
	"context"
	"errors"
	"slices"
	"time"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/content"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// PostsCollection is the Firestore collection posts live in.
const PostsCollection = "posts"

// Firestore is the hosted document backend; the collection is the system of
// record and subscribers follow it through query snapshots.
type Firestore struct {
	client *firestore.Client
	owner  string
	log    *zap.Logger
	now    func() time.Time
}

func NewFirestore(client *firestore.Client, owner string, log *zap.Logger) *Firestore {
	return &Firestore{client: client, owner: owner, log: log, now: time.Now}
}

func (s *Firestore) coll() *firestore.CollectionRef {
	return s.client.Collection(PostsCollection)
}

func (s *Firestore) List(ctx context.Context) ([]content.Post, error) {
	docs, err := s.coll().OrderBy("timestamp", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, apperr.Storage(err, "list posts")
	}
	return s.decodeAll(docs)
}

func (s *Firestore) Get(ctx context.Context, id string) (content.Post, error) {
	doc, err := s.coll().Doc(id).Get(ctx)
	if err != nil {
		return content.Post{}, classify(err, "post %s", id)
	}
	post, _, err := s.decode(doc)
	if err != nil {
		return content.Post{}, apperr.Storage(err, "get post")
	}
	return post, nil
}

func (s *Firestore) Create(ctx context.Context, in content.NewPost) (content.Post, error) {
	ref := s.coll().NewDoc()
	post := content.Post{
		ID:           ref.ID,
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
	if _, err := ref.Create(ctx, post); err != nil {
		return content.Post{}, apperr.Storage(err, "create post")
	}
	return post, nil
}

func (s *Firestore) Update(ctx context.Context, id string, patch content.PostPatch) error {
	var updates []firestore.Update
	if patch.Location != nil {
		updates = append(updates, firestore.Update{Path: "location", Value: *patch.Location})
	}
	if patch.Image != nil {
		updates = append(updates, firestore.Update{Path: "image", Value: *patch.Image})
	}
	if patch.Caption != nil {
		updates = append(updates, firestore.Update{Path: "caption", Value: *patch.Caption})
	}
	if patch.Tags != nil {
		updates = append(updates, firestore.Update{Path: "tags", Value: *patch.Tags})
	}
	ref := s.coll().Doc(id)
	if len(updates) == 0 {
		_, err := ref.Get(ctx)
		return classify(err, "post %s", id)
	}
	_, err := ref.Update(ctx, updates)
	return classify(err, "post %s", id)
}

func (s *Firestore) Delete(ctx context.Context, id string) error {
	if _, err := s.coll().Doc(id).Delete(ctx); err != nil {
		return apperr.Storage(err, "delete post")
	}
	return nil
}

func (s *Firestore) ToggleLike(ctx context.Context, id, actor string) (content.Post, error) {
	return s.transact(ctx, id, func(p *content.Post) error {
		p.LikedBy, _ = content.ToggleMember(p.LikedBy, actor)
		return nil
	})
}

func (s *Firestore) AddComment(ctx context.Context, postID string, in content.NewComment) (content.Comment, error) {
	comment := content.Comment{
		ID:           uuid.NewString(),
		AuthorID:     in.AuthorID,
		Author:       in.Author,
		AuthorAvatar: in.AuthorAvatar,
		Text:         in.Text,
		LikedBy:      []string{},
		CreatedAt:    s.now(),
	}
	_, err := s.transact(ctx, postID, func(p *content.Post) error {
		p.Comments = append(p.Comments, comment)
		return nil
	})
	if err != nil {
		return content.Comment{}, err
	}
	return comment, nil
}

func (s *Firestore) DeleteComment(ctx context.Context, postID, commentID string) error {
	_, err := s.transact(ctx, postID, func(p *content.Post) error {
		p.Comments = slices.DeleteFunc(p.Comments, func(c content.Comment) bool { return c.ID == commentID })
		return nil
	})
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Firestore) ToggleCommentLike(ctx context.Context, postID, commentID, actor string) (content.Post, error) {
	return s.transact(ctx, postID, func(p *content.Post) error {
		j := p.CommentIndex(commentID)
		if j < 0 {
			return apperr.NotFound("comment %s not found", commentID)
		}
		p.Comments[j].LikedBy, _ = content.ToggleMember(p.Comments[j].LikedBy, actor)
		return nil
	})
}

// Subscribe follows the ordered collection. The first snapshot is read
// before returning so a broken backend is reported to the caller.
func (s *Firestore) Subscribe(ctx context.Context, fn func([]content.Post)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	it := s.coll().OrderBy("timestamp", firestore.Desc).Snapshots(ctx)

	posts, err := s.nextSnapshot(it)
	if err != nil {
		it.Stop()
		cancel()
		return nil, apperr.Storage(err, "subscribe posts")
	}
	fn(posts)

	go func() {
		defer it.Stop()
		for {
			posts, err := s.nextSnapshot(it)
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					s.log.Warn("feed snapshot stream ended", zap.Error(err))
				}
				return
			}
			fn(posts)
		}
	}()
	return cancel, nil
}

func (s *Firestore) nextSnapshot(it *firestore.QuerySnapshotIterator) ([]content.Post, error) {
	snap, err := it.Next()
	if err != nil {
		return nil, err
	}
	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, err
	}
	return s.decodeAll(docs)
}

// transact reads one post, applies fn and writes back the mutable sets.
// Counter-shaped documents are rewritten in canonical form.
func (s *Firestore) transact(ctx context.Context, id string, fn func(*content.Post) error) (content.Post, error) {
	ref := s.coll().Doc(id)
	var out content.Post
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		post, legacy, err := s.decode(doc)
		if err != nil {
			return err
		}
		if err := fn(&post); err != nil {
			return err
		}
		updates := []firestore.Update{
			{Path: "likedBy", Value: post.LikedBy},
			{Path: "legacyLikes", Value: post.LegacyLikes},
			{Path: "comments", Value: post.Comments},
		}
		if legacy {
			updates = append(updates,
				firestore.Update{Path: "likes", Value: firestore.Delete},
				firestore.Update{Path: "isLiked", Value: firestore.Delete},
			)
		}
		out = post
		return tx.Update(ref, updates)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return content.Post{}, err
		}
		return content.Post{}, classify(err, "post %s", id)
	}
	return out, nil
}

func (s *Firestore) decodeAll(docs []*firestore.DocumentSnapshot) ([]content.Post, error) {
	posts := make([]content.Post, 0, len(docs))
	for _, doc := range docs {
		post, _, err := s.decode(doc)
		if err != nil {
			s.log.Warn("skipping undecodable post", zap.String("id", doc.Ref.ID), zap.Error(err))
			continue
		}
		posts = append(posts, post)
	}
	return content.SortNewestFirst(posts), nil
}

func (s *Firestore) decode(doc *firestore.DocumentSnapshot) (content.Post, bool, error) {
	return content.DecodeDocument(doc.Ref.ID, doc.Data(), s.owner)
}

func classify(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.NotFound {
		return apperr.NotFound(format+" not found", args...)
	}
	return apperr.Storage(err, format, args...)
}
