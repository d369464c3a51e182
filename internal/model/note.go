package model

import "time"

// MaxNoteLen is enforced by a CHECK constraint on notes.body.
const MaxNoteLen = 10000

type Note struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
