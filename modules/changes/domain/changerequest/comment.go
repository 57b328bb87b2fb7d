package changerequest

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Comment is one entry in the append-only discussion log of a change
// request. Comments are never edited or deleted through the engine; only the
// author's opaque account ID is stored, identity resolution happens at read
// time.
type Comment struct {
	id        uuid.UUID
	authorID  string
	body      string
	createdAt time.Time
}

// NewComment validates and stamps a comment. createdAt is engine-observed
// time, never client-supplied.
func NewComment(authorID, body string, now time.Time) (Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Comment{}, ErrEmptyComment
	}
	return Comment{
		id:        uuid.New(),
		authorID:  authorID,
		body:      body,
		createdAt: now.UTC(),
	}, nil
}

func HydrateComment(id uuid.UUID, authorID, body string, createdAt time.Time) Comment {
	return Comment{
		id:        id,
		authorID:  authorID,
		body:      body,
		createdAt: createdAt,
	}
}

func (c Comment) ID() uuid.UUID        { return c.id }
func (c Comment) AuthorID() string     { return c.authorID }
func (c Comment) Body() string         { return c.body }
func (c Comment) CreatedAt() time.Time { return c.createdAt }
func (c Comment) IsZero() bool         { return c.id == uuid.Nil }
