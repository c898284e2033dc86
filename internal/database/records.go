package database

import (
	"time"

	"adda/internal/models"
)

// PostRecord is a stored post.
type PostRecord struct {
	ID         string            `gorm:"primaryKey;size:36"`
	UserID     string            `gorm:"index;size:64;not null"`
	UserName   string            `gorm:"size:255"`
	PostType   models.PostType   `gorm:"size:16;not null"`
	Title      string            `gorm:"size:300"`
	Content    string            `gorm:"type:text"`
	Location   string            `gorm:"size:255"`
	Visibility models.Visibility `gorm:"size:16;not null;default:public"`
	Tags       []string          `gorm:"serializer:json"`
	Media      []models.Media    `gorm:"serializer:json"`
	Article    *models.Article   `gorm:"serializer:json"`
	Event      *models.Event     `gorm:"serializer:json"`
	Comments   []CommentRecord   `gorm:"foreignKey:PostID"`
	CreatedAt  time.Time
}

func (PostRecord) TableName() string { return "posts" }

// CommentRecord is a stored comment.
type CommentRecord struct {
	ID        string `gorm:"primaryKey;size:36"`
	PostID    string `gorm:"index;size:36;not null"`
	UserID    string `gorm:"size:64;not null"`
	UserName  string `gorm:"size:255"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (CommentRecord) TableName() string { return "comments" }

// SavedPostRecord marks a post saved by a user.
type SavedPostRecord struct {
	UserID    string `gorm:"primaryKey;size:64"`
	PostID    string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
}

func (SavedPostRecord) TableName() string { return "saved_posts" }

// Records lists every migrated record type.
func Records() []interface{} {
	return []interface{}{
		&PostRecord{},
		&CommentRecord{},
		&SavedPostRecord{},
	}
}
