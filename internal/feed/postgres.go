package feed

import (
	"context"
	"errors"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/content"
	"backend-nepaltrip/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const selectPosts = `
	SELECT p.id, p.author_id, p.author, p.author_avatar, p.location, p.image, p.caption, p.legacy_likes, p.tags, p.type, p.created_at,
	       COALESCE(array_agg(l.actor_id) FILTER (WHERE l.actor_id IS NOT NULL), '{}')
	FROM posts p
	LEFT JOIN post_likes l ON l.post_id = p.id`

// Postgres is the remote collection backend. Changes made through it are
// pushed to subscribers of the same process; the stream hub mirrors them
// to other instances.
type Postgres struct {
	db   db.Querier
	log  *zap.Logger
	subs *Broadcaster
}

func NewPostgres(q db.Querier, log *zap.Logger) *Postgres {
	return &Postgres{db: q, log: log, subs: NewBroadcaster()}
}

func (s *Postgres) List(ctx context.Context) ([]content.Post, error) {
	posts, err := s.queryPosts(ctx, selectPosts+` GROUP BY p.id ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, apperr.Storage(err, "list posts")
	}
	return posts, nil
}

func (s *Postgres) Create(ctx context.Context, in content.NewPost) (content.Post, error) {
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
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO posts (id, author_id, author, author_avatar, location, image, caption, tags, type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, post.ID, post.AuthorID, post.Author, post.AuthorAvatar, post.Location, post.Image, post.Caption, post.Tags, string(post.Type))
	if err := row.Scan(&post.CreatedAt); err != nil {
		return content.Post{}, apperr.Storage(err, "create post")
	}
	s.changed(ctx)
	return post, nil
}

func (s *Postgres) Update(ctx context.Context, id string, patch content.PostPatch) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE posts SET
			location = COALESCE($2, location),
			image = COALESCE($3, image),
			caption = COALESCE($4, caption),
			tags = COALESCE($5, tags)
		WHERE id=$1
	`, id, patch.Location, patch.Image, patch.Caption, patch.Tags)
	if err != nil {
		return apperr.Storage(err, "update post")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("post %s not found", id)
	}
	s.changed(ctx)
	return nil
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return apperr.Storage(err, "delete post")
	}
	if tag.RowsAffected() > 0 {
		s.changed(ctx)
	}
	return nil
}

func (s *Postgres) ToggleLike(ctx context.Context, id, actor string) (content.Post, error) {
	removed, err := s.db.Exec(ctx, `DELETE FROM post_likes WHERE post_id=$1 AND actor_id=$2`, id, actor)
	if err != nil {
		return content.Post{}, apperr.Storage(err, "toggle like")
	}
	if removed.RowsAffected() == 0 {
		added, err := s.db.Exec(ctx, `
			INSERT INTO post_likes (post_id, actor_id)
			SELECT $1, $2 WHERE EXISTS (SELECT 1 FROM posts WHERE id=$1)
		`, id, actor)
		if err != nil {
			return content.Post{}, apperr.Storage(err, "toggle like")
		}
		if added.RowsAffected() == 0 {
			return content.Post{}, apperr.NotFound("post %s not found", id)
		}
	}
	post, err := s.Get(ctx, id)
	if err != nil {
		return content.Post{}, err
	}
	s.changed(ctx)
	return post, nil
}

func (s *Postgres) AddComment(ctx context.Context, postID string, in content.NewComment) (content.Comment, error) {
	comment := content.Comment{
		ID:           uuid.NewString(),
		AuthorID:     in.AuthorID,
		Author:       in.Author,
		AuthorAvatar: in.AuthorAvatar,
		Text:         in.Text,
		LikedBy:      []string{},
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO post_comments (id, post_id, author_id, author, author_avatar, text)
		SELECT $1,$2,$3,$4,$5,$6 WHERE EXISTS (SELECT 1 FROM posts WHERE id=$2)
		RETURNING created_at
	`, comment.ID, postID, comment.AuthorID, comment.Author, comment.AuthorAvatar, comment.Text)
	if err := row.Scan(&comment.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return content.Comment{}, apperr.NotFound("post %s not found", postID)
		}
		return content.Comment{}, apperr.Storage(err, "add comment")
	}
	s.changed(ctx)
	return comment, nil
}

func (s *Postgres) DeleteComment(ctx context.Context, postID, commentID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM post_comments WHERE id=$1 AND post_id=$2`, commentID, postID)
	if err != nil {
		return apperr.Storage(err, "delete comment")
	}
	if tag.RowsAffected() > 0 {
		s.changed(ctx)
	}
	return nil
}

func (s *Postgres) ToggleCommentLike(ctx context.Context, postID, commentID, actor string) (content.Post, error) {
	removed, err := s.db.Exec(ctx, `DELETE FROM comment_likes WHERE comment_id=$1 AND actor_id=$2`, commentID, actor)
	if err != nil {
		return content.Post{}, apperr.Storage(err, "toggle comment like")
	}
	if removed.RowsAffected() == 0 {
		added, err := s.db.Exec(ctx, `
			INSERT INTO comment_likes (comment_id, actor_id)
			SELECT $1, $2 WHERE EXISTS (SELECT 1 FROM post_comments WHERE id=$1 AND post_id=$3)
		`, commentID, actor, postID)
		if err != nil {
			return content.Post{}, apperr.Storage(err, "toggle comment like")
		}
		if added.RowsAffected() == 0 {
			return content.Post{}, apperr.NotFound("comment %s not found", commentID)
		}
	}
	post, err := s.Get(ctx, postID)
	if err != nil {
		return content.Post{}, err
	}
	s.changed(ctx)
	return post, nil
}

// Subscribe delivers the current list immediately, then after every change
// made through this store.
func (s *Postgres) Subscribe(ctx context.Context, fn func([]content.Post)) (func(), error) {
	posts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	fn(posts)
	unsubscribe := s.subs.Add(fn)
	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			unsubscribe()
		}()
	}
	return unsubscribe, nil
}

func (s *Postgres) Get(ctx context.Context, id string) (content.Post, error) {
	posts, err := s.queryPosts(ctx, selectPosts+` WHERE p.id=$1 GROUP BY p.id`, id)
	if err != nil {
		return content.Post{}, apperr.Storage(err, "get post")
	}
	if len(posts) == 0 {
		return content.Post{}, apperr.NotFound("post %s not found", id)
	}
	return posts[0], nil
}

func (s *Postgres) changed(ctx context.Context) {
	if s.subs.Len() == 0 {
		return
	}
	posts, err := s.List(context.WithoutCancel(ctx))
	if err != nil {
		s.log.Warn("feed refresh for subscribers failed", zap.Error(err))
		return
	}
	s.subs.Publish(posts)
}

func (s *Postgres) queryPosts(ctx context.Context, sql string, args ...any) ([]content.Post, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []content.Post{}
	var ids []string
	for rows.Next() {
		var p content.Post
		var postType string
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Author, &p.AuthorAvatar, &p.Location, &p.Image, &p.Caption,
			&p.LegacyLikes, &p.Tags, &postType, &p.CreatedAt, &p.LikedBy); err != nil {
			return nil, err
		}
		p.Type = content.PostType(postType)
		ids = append(ids, p.ID)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	comments, err := s.loadComments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].Comments = comments[posts[i].ID]
		if posts[i].Comments == nil {
			posts[i].Comments = []content.Comment{}
		}
	}
	return posts, nil
}

func (s *Postgres) loadComments(ctx context.Context, postIDs []string) (map[string][]content.Comment, error) {
	if len(postIDs) == 0 {
		return map[string][]content.Comment{}, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.post_id, c.author_id, c.author, c.author_avatar, c.text, c.created_at,
		       COALESCE(array_agg(cl.actor_id) FILTER (WHERE cl.actor_id IS NOT NULL), '{}')
		FROM post_comments c
		LEFT JOIN comment_likes cl ON cl.comment_id = c.id
		WHERE c.post_id = ANY($1)
		GROUP BY c.id
		ORDER BY c.created_at
	`, postIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := map[string][]content.Comment{}
	for rows.Next() {
		var c content.Comment
		var postID string
		if err := rows.Scan(&c.ID, &postID, &c.AuthorID, &c.Author, &c.AuthorAvatar, &c.Text, &c.CreatedAt, &c.LikedBy); err != nil {
			return nil, err
		}
		comments[postID] = append(comments[postID], c)
	}
	return comments, rows.Err()
}
