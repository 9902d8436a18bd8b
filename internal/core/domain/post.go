package domain

import "time"

// Author is the resolved identity of a post's owner.
type Author struct {
	ID    string
	Name  string
	Email string
}

// Post is a blog entry owned by a single author account.
type Post struct {
	ID        string
	Title     string
	Body      string
	AuthorID  string
	Author    *Author // nil when the author account no longer exists
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostEventKind names a content mutation pushed to observers.
type PostEventKind string

const (
	PostCreated PostEventKind = "newPost"
	PostUpdated PostEventKind = "postUpdated"
	PostDeleted PostEventKind = "postDeleted"
)

// PostEvent is a change notification. Post is set for created/updated events,
// PostID alone for deletions.
type PostEvent struct {
	Kind   PostEventKind
	Post   *Post
	PostID string
}
