// Package feed keeps the travel feed: posts, their comments and like-sets.
// Three backends share the Store contract; the remote ones also push the
// full ordered list to subscribers after every change.
package feed

import (
	"context"
	"sync"

	"backend-nepaltrip/internal/content"
)

// Store is the uniform post collection contract. List is newest first.
// Update on an absent id is silent for the local backend and NotFound for
// remote ones. Delete and DeleteComment are idempotent.
type Store interface {
	List(ctx context.Context) ([]content.Post, error)
	Get(ctx context.Context, id string) (content.Post, error)
	Create(ctx context.Context, in content.NewPost) (content.Post, error)
	Update(ctx context.Context, id string, patch content.PostPatch) error
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, id, actor string) (content.Post, error)
	AddComment(ctx context.Context, postID string, in content.NewComment) (content.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID string) error
	ToggleCommentLike(ctx context.Context, postID, commentID, actor string) (content.Post, error)
}

// Subscriber is implemented by backends that push changes. fn receives the
// full ordered list once on subscribe and again after every change. The
// returned func unsubscribes; cancelling ctx does the same.
type Subscriber interface {
	Subscribe(ctx context.Context, fn func([]content.Post)) (func(), error)
}

// Broadcaster fans a post list out to in-process subscribers.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]func([]content.Post)
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[int]func([]content.Post){}}
}

func (b *Broadcaster) Add(fn func([]content.Post)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster) Publish(posts []content.Post) {
	b.mu.Lock()
	fns := make([]func([]content.Post), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(posts)
	}
}
