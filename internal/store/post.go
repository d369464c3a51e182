package store

import (
	"database/sql"
	"fmt"

	"github.com/calebdws/inkwell/internal/model"
)

// PerPage is the fixed feed page size.
const PerPage = 5

type PostStore struct {
	db *sql.DB
}

func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

func scanPost(scanner interface{ Scan(...any) error }) (*model.Post, error) {
	var p model.Post
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Content, &p.UserID, &p.Author, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const postCols = `p.id, p.title, p.content, p.user_id, u.username, p.created_at, p.updated_at`
const postFrom = ` FROM posts p JOIN users u ON u.id = p.user_id`

func (s *PostStore) Create(title, content string, userID int64) (*model.Post, error) {
	result, err := s.db.Exec(
		`INSERT INTO posts (title, content, user_id) VALUES (?, ?, ?)`,
		title, content, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *PostStore) GetByID(id int64) (*model.Post, error) {
	row := s.db.QueryRow(`SELECT `+postCols+postFrom+` WHERE p.id = ?`, id)
	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *PostStore) Update(id int64, title, content string) (*model.Post, error) {
	_, err := s.db.Exec(
		`UPDATE posts SET title = ?, content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, content, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return s.GetByID(id)
}

func (s *PostStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// ListPage returns one page of the global feed, newest first. Pages are
// 1-based; ties on created_at fall back to insertion order via id.
func (s *PostStore) ListPage(page int) ([]model.Post, error) {
	if page < 1 {
		page = 1
	}
	rows, err := s.db.Query(
		`SELECT `+postCols+postFrom+`
		 ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`,
		PerPage, (page-1)*PerPage,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return collectPosts(rows)
}

func (s *PostStore) CountAll() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// ListByUserPage returns one page of a single author's posts, newest first.
func (s *PostStore) ListByUserPage(userID int64, page int) ([]model.Post, error) {
	if page < 1 {
		page = 1
	}
	rows, err := s.db.Query(
		`SELECT `+postCols+postFrom+` WHERE p.user_id = ?
		 ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`,
		userID, PerPage, (page-1)*PerPage,
	)
	if err != nil {
		return nil, fmt.Errorf("list posts by user: %w", err)
	}
	return collectPosts(rows)
}

func (s *PostStore) CountByUser(userID int64) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM posts WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts by user: %w", err)
	}
	return n, nil
}

func collectPosts(rows *sql.Rows) ([]model.Post, error) {
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}
