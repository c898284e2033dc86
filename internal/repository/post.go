// Package repository provides the dev server's data access layer.
package repository

import (
	"context"
	"errors"

	"adda/internal/database"
	"adda/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines interface for post, comment and saved-post operations
type PostRepository interface {
	Create(ctx context.Context, post *database.PostRecord) error
	GetByID(ctx context.Context, id string) (*database.PostRecord, error)
	AddComment(ctx context.Context, comment *database.CommentRecord) error
	Save(ctx context.Context, userID, postID string) error
	Unsave(ctx context.Context, userID, postID string) error
	IsSaved(ctx context.Context, userID, postID string) (bool, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *database.PostRecord) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*database.PostRecord, error) {
	var post database.PostRecord
	err := r.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewNotFoundError("Post", id)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) AddComment(ctx context.Context, comment *database.CommentRecord) error {
	if _, err := r.GetByID(ctx, comment.PostID); err != nil {
		return err
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *postRepository) Save(ctx context.Context, userID, postID string) error {
	if _, err := r.GetByID(ctx, postID); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&database.SavedPostRecord{UserID: userID, PostID: postID}).Error
}

func (r *postRepository) Unsave(ctx context.Context, userID, postID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&database.SavedPostRecord{}).Error
}

func (r *postRepository) IsSaved(ctx context.Context, userID, postID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&database.SavedPostRecord{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error
	return count > 0, err
}

// ToCreatedPost converts a stored post to its API shape.
func ToCreatedPost(p *database.PostRecord) models.CreatedPost {
	out := models.CreatedPost{
		ID:         p.ID,
		PostType:   p.PostType,
		User:       models.PostUser{ID: p.UserID, Name: p.UserName, Role: "User"},
		Title:      p.Title,
		Content:    p.Content,
		Media:      p.Media,
		Article:    p.Article,
		Event:      p.Event,
		Likes:      []string{},
		Comments:   make([]string, 0, len(p.Comments)),
		Shares:     []string{},
		CreatedAt:  p.CreatedAt.UTC(),
		Visibility: p.Visibility,
		Tags:       p.Tags,
		Location:   p.Location,
	}
	for _, c := range p.Comments {
		out.Comments = append(out.Comments, c.ID)
	}
	return out
}

// ToComment converts a stored comment to its API shape.
func ToComment(c *database.CommentRecord) models.Comment {
	return models.Comment{
		ID:        c.ID,
		PostID:    c.PostID,
		User:      models.PostUser{ID: c.UserID, Name: c.UserName, Role: "User"},
		Content:   c.Content,
		CreatedAt: c.CreatedAt.UTC(),
	}
}
