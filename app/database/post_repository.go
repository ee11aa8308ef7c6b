package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/ad-comb/app/ads"
)

// PostRepository serves the content stream feeds are built from
type PostRepository struct {
	db *DB
}

func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) CreatePost(ctx context.Context, post ads.ContentItem) (*ads.ContentItem, error) {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	post.Section = ads.NormalizeSection(post.Section)
	post.CreatedAt = post.CreatedAt.UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO posts (id, section, title, body, author_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, post.ID, post.Section, post.Title, post.Body, post.AuthorID, formatTime(post.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}
	return &post, nil
}

// GetContentPage returns posts newest first. An empty section spans all sections.
func (r *PostRepository) GetContentPage(ctx context.Context, section string, page, limit int) ([]ads.ContentItem, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, section, title, body, author_id, created_at
		FROM posts
		WHERE ? = '' OR section = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, section, section, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var items []ads.ContentItem
	for rows.Next() {
		var item ads.ContentItem
		var createdAt string
		if err := rows.Scan(&item.ID, &item.Section, &item.Title, &item.Body, &item.AuthorID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return items, nil
}

func (r *PostRepository) CountContent(ctx context.Context, section string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE ? = '' OR section = ?`, section, section).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}
