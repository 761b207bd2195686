package repository

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/models"
)

// PostRepository persists posts
type PostRepository interface {
	Insert(ctx context.Context, post *models.Post) error
	Get(ctx context.Context, id uuid.UUID) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
}

type postRepository struct {
	pool *pgxpool.Pool
}

// NewPostRepository creates a Postgres-backed PostRepository
func NewPostRepository(pool *pgxpool.Pool) PostRepository {
	return &postRepository{pool: pool}
}

const postColumns = "id, title, body, published, created_at"

func (r *postRepository) Insert(ctx context.Context, post *models.Post) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO posts (id, title, body, published, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		post.ID, post.Title, post.Body, post.Published, post.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to insert post")
	}
	return nil
}

func (r *postRepository) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.pool.QueryRow(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id = $1", id).
		Scan(&post.ID, &post.Title, &post.Body, &post.Published, &post.CreatedAt)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.ErrorTypeNotFound, "post not found")
		}
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to get post")
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context) ([]*models.Post, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+postColumns+" FROM posts ORDER BY created_at")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to list posts")
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(&post.ID, &post.Title, &post.Body, &post.Published, &post.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to scan post")
		}
		posts = append(posts, &post)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to iterate posts")
	}
	return posts, nil
}
