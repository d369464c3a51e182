package model

import "time"

// MaxTitleLen is enforced by a CHECK constraint on posts.title.
const MaxTitleLen = 100

type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    int64     `json:"user_id"`
	Author    string    `json:"author"` // username, joined on read
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
