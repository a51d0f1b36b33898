package sessions

import (
	"context"
	"time"
)

// Store persists sessions and their conversation logs.
type Store interface {
	// Create inserts an empty session. It returns ErrExists when the name
	// is taken.
	Create(ctx context.Context, name string, now time.Time) (Session, error)
	Get(ctx context.Context, name string) (Session, error)
	// Put writes session metadata. A missing session is created with an
	// empty conversation log.
	Put(ctx context.Context, s Session) error
	// SaveResume stores the original resume file of an existing session.
	SaveResume(ctx context.Context, name string, data []byte) error
	AppendEntries(ctx context.Context, name string, entries ...Entry) error
	Conversation(ctx context.Context, name string) ([]Entry, error)
	List(ctx context.Context) ([]Session, error)
	Delete(ctx context.Context, name string) error
}
