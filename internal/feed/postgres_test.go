package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-nepaltrip/internal/apperr"
	"backend-nepaltrip/internal/content"

	"github.com/pashagolub/pgxmock/v3"
	"go.uber.org/zap"
)

var postColumns = []string{"id", "author_id", "author", "author_avatar", "location", "image", "caption", "legacy_likes", "tags", "type", "created_at", "liked_by"}
var commentColumns = []string{"id", "post_id", "author_id", "author", "author_avatar", "text", "created_at", "liked_by"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestPostgresCreateAndList(t *testing.T) {
	mock := newMock(t)
	createdAt := time.Now()

	mock.ExpectQuery(`INSERT INTO posts`).
		WithArgs(pgxmock.AnyArg(), "u1", "Asha", "", "Pokhara", "", "Phewa lake", []string{}, "text").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	store := NewPostgres(mock, zap.NewNop())
	post, err := store.Create(context.Background(), content.NewPost{AuthorID: "u1", Author: "Asha", Location: "Pokhara", Caption: "Phewa lake", Type: content.PostText})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if post.ID == "" || !post.CreatedAt.Equal(createdAt) {
		t.Fatalf("expected id and created_at")
	}

	mock.ExpectQuery(`SELECT p.id, p.author`).
		WillReturnRows(pgxmock.NewRows(postColumns).
			AddRow(post.ID, "u1", "Asha", "", "Pokhara", "", "Phewa lake", 2, []string{}, "text", createdAt, []string{"u1"}))
	mock.ExpectQuery(`FROM post_comments c`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(commentColumns).
			AddRow("c1", post.ID, "u2", "Bikash", "", "nice", createdAt, []string{}))

	posts, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(posts) != 1 || posts[0].LikeCount() != 3 || len(posts[0].Comments) != 1 || posts[0].AuthorID != "u1" || posts[0].Comments[0].AuthorID != "u2" {
		t.Fatalf("unexpected list: %+v", posts)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresToggleLikeAdds(t *testing.T) {
	mock := newMock(t)
	createdAt := time.Now()

	mock.ExpectExec(`DELETE FROM post_likes`).
		WithArgs("p1", "u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO post_likes`).
		WithArgs("p1", "u1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`WHERE p.id=\$1`).
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows(postColumns).
			AddRow("p1", "u1", "Asha", "", "", "", "hi", 0, []string{}, "text", createdAt, []string{"u1"}))
	mock.ExpectQuery(`FROM post_comments c`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(commentColumns))

	post, err := NewPostgres(mock, zap.NewNop()).ToggleLike(context.Background(), "p1", "u1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !post.LikedByActor("u1") {
		t.Fatalf("expected u1 in like-set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresToggleLikeMissingPost(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`DELETE FROM post_likes`).
		WithArgs("nope", "u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`INSERT INTO post_likes`).
		WithArgs("nope", "u1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	_, err := NewPostgres(mock, zap.NewNop()).ToggleLike(context.Background(), "nope", "u1")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgresUpdateMissingIsNotFound(t *testing.T) {
	mock := newMock(t)
	caption := "new"
	mock.ExpectExec(`UPDATE posts SET`).
		WithArgs("nope", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewPostgres(mock, zap.NewNop()).Update(context.Background(), "nope", content.PostPatch{Caption: &caption})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgresDeleteIdempotent(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`DELETE FROM posts`).WithArgs("p1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM posts`).WithArgs("p1").WillReturnResult(pgxmock.NewResult("DELETE", 0))

	store := NewPostgres(mock, zap.NewNop())
	if err := store.Delete(context.Background(), "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(context.Background(), "p1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestPostgresAddCommentMissingPost(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO post_comments`).
		WithArgs(pgxmock.AnyArg(), "nope", "u2", "Bikash", "", "hi").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}))

	_, err := NewPostgres(mock, zap.NewNop()).AddComment(context.Background(), "nope", content.NewComment{AuthorID: "u2", Author: "Bikash", Text: "hi"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPostgresStorageError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT p.id, p.author`).WillReturnError(errors.New("connection refused"))

	_, err := NewPostgres(mock, zap.NewNop()).List(context.Background())
	if !errors.Is(err, apperr.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestPostgresSubscribe(t *testing.T) {
	mock := newMock(t)
	createdAt := time.Now()
	store := NewPostgres(mock, zap.NewNop())

	mock.ExpectQuery(`SELECT p.id, p.author`).WillReturnRows(pgxmock.NewRows(postColumns))

	var got [][]content.Post
	unsubscribe, err := store.Subscribe(context.Background(), func(posts []content.Post) {
		got = append(got, posts)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	mock.ExpectQuery(`INSERT INTO posts`).
		WithArgs(pgxmock.AnyArg(), "u1", "Asha", "", "", "", "hi", []string{}, "text").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))
	mock.ExpectQuery(`SELECT p.id, p.author`).
		WillReturnRows(pgxmock.NewRows(postColumns).
			AddRow("p1", "u1", "Asha", "", "", "", "hi", 0, []string{}, "text", createdAt, []string{}))
	mock.ExpectQuery(`FROM post_comments c`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(commentColumns))

	if _, err := store.Create(context.Background(), content.NewPost{AuthorID: "u1", Author: "Asha", Caption: "hi", Type: content.PostText}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(got) != 2 || len(got[0]) != 0 || len(got[1]) != 1 {
		t.Fatalf("expected initial and changed snapshots, got %v", got)
	}

	unsubscribe()
	mock.ExpectQuery(`INSERT INTO posts`).
		WithArgs(pgxmock.AnyArg(), "u1", "Asha", "", "", "", "again", []string{}, "text").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))
	if _, err := store.Create(context.Background(), content.NewPost{AuthorID: "u1", Author: "Asha", Caption: "again", Type: content.PostText}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected no snapshot after unsubscribe")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func mockEmptyPosts() *pgxmock.Rows {
	return pgxmock.NewRows(postColumns)
}
