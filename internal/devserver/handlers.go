package devserver

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"adda/internal/api"
	"adda/internal/database"
	"adda/internal/featureflags"
	"adda/internal/models"
	"adda/internal/observability"
	"adda/internal/repository"
	"adda/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func respondError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err)
	}
	status := fiber.StatusInternalServerError
	switch appErr.Code {
	case models.CodeValidation:
		status = fiber.StatusBadRequest
	case models.CodeUnauthorized:
		status = fiber.StatusUnauthorized
	case models.CodeNotFound:
		status = fiber.StatusNotFound
	}
	return c.Status(status).JSON(models.ErrorResponse{
		Success: false,
		Message: appErr.Message,
		Code:    appErr.Code,
	})
}

func respondData(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

type fileDetails struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// UploadFile handles POST /upload/file
func (s *Server) UploadFile(c *fiber.Ctx) error {
	userID, _ := userFrom(c)
	if s.flags.Enabled(featureflags.RejectUploads, userID) {
		return respondError(c, models.NewInternalError(errors.New("uploads disabled by feature flag")))
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return respondError(c, models.NewValidationError("No file provided"))
	}
	if fh.Size > maxUploadBytes {
		return respondError(c, models.NewValidationError("File too large (max 25MB)"))
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	if err := c.SaveFile(fh, filepath.Join(s.config.DevUploadDir, name)); err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	observability.GlobalLogger.InfoContext(c.UserContext(), "file uploaded",
		slog.String("user_id", userID),
		slog.String("name", name),
		slog.Int64("size", fh.Size),
	)
	return respondData(c, fiber.StatusCreated, "File uploaded successfully", fiber.Map{
		"fileDetails": fileDetails{
			URL:         s.publicURL(name),
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
		},
	})
}

// CreatePost handles POST /posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID, userName := userFrom(c)

	var in models.PostPayload
	if err := c.BodyParser(&in); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	if !in.PostType.Valid() && in.PostType != models.PostTypeMixed {
		return respondError(c, models.NewValidationError("Invalid post type"))
	}
	if in.Visibility == "" {
		in.Visibility = models.VisibilityPublic
	}
	if err := validation.CheckPayload(&in); err != nil {
		return respondError(c, err)
	}
	if in.PostType == models.PostTypeText && strings.TrimSpace(in.Content) == "" {
		return respondError(c, models.NewValidationError("Content is required"))
	}

	record := &database.PostRecord{
		UserID:     userID,
		UserName:   userName,
		PostType:   in.PostType,
		Title:      in.Title,
		Content:    in.Content,
		Location:   in.Location,
		Visibility: in.Visibility,
		Tags:       in.Tags,
		Media:      in.Media,
		Article:    in.Article,
		Event:      in.Event,
	}
	if err := s.posts.Create(c.UserContext(), record); err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	post := repository.ToCreatedPost(record)
	switch {
	case s.flags.Enabled(featureflags.BareCreateResponse, userID):
		return respondData(c, fiber.StatusCreated, "Post created successfully", fiber.Map{})
	case s.flags.Enabled(featureflags.FlatCreateResponse, userID):
		return respondData(c, fiber.StatusCreated, "Post created successfully", post)
	case s.flags.Enabled(featureflags.UnpopulatedCreateResponse, userID):
		return respondData(c, fiber.StatusCreated, "Post created successfully", fiber.Map{"post": unpopulated(post)})
	default:
		return respondData(c, fiber.StatusCreated, "Post created successfully", fiber.Map{"post": post})
	}
}

// unpopulated renders post the way a document store does before refs are
// expanded: user is its id, createdAt is a date and comments are documents.
func unpopulated(post models.CreatedPost) fiber.Map {
	comments := make([]fiber.Map, 0, len(post.Comments))
	for _, id := range post.Comments {
		comments = append(comments, fiber.Map{"_id": id})
	}
	return fiber.Map{
		"_id":        post.ID,
		"postType":   post.PostType,
		"user":       post.User.ID,
		"title":      post.Title,
		"content":    post.Content,
		"media":      post.Media,
		"article":    post.Article,
		"event":      post.Event,
		"likes":      post.Likes,
		"comments":   comments,
		"shares":     post.Shares,
		"createdAt":  post.CreatedAt.Format(time.DateOnly),
		"visibility": post.Visibility,
		"tags":       post.Tags,
		"location":   post.Location,
	}
}

// GetPost handles GET /posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	record, err := s.posts.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	detail := api.PostDetail{
		CreatedPost: repository.ToCreatedPost(record),
		Comments:    make([]models.Comment, 0, len(record.Comments)),
	}
	for i := range record.Comments {
		detail.Comments = append(detail.Comments, repository.ToComment(&record.Comments[i]))
	}
	return respondData(c, fiber.StatusOK, "", detail)
}

type createCommentRequest struct {
	PostID  string `json:"postId"`
	Content string `json:"content"`
}

// CreateComment handles POST /comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	userID, userName := userFrom(c)

	var in createCommentRequest
	if err := c.BodyParser(&in); err != nil {
		return respondError(c, models.NewValidationError("Invalid request body"))
	}
	if in.PostID == "" || strings.TrimSpace(in.Content) == "" {
		return respondError(c, models.NewValidationError("postId and content are required"))
	}

	record := &database.CommentRecord{
		PostID:   in.PostID,
		UserID:   userID,
		UserName: userName,
		Content:  in.Content,
	}
	if err := s.posts.AddComment(c.UserContext(), record); err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusCreated, "Comment added successfully", repository.ToComment(record))
}

// SavePost handles POST /feeds/posts/:id/save
func (s *Server) SavePost(c *fiber.Ctx) error {
	userID, _ := userFrom(c)
	if err := s.posts.Save(c.UserContext(), userID, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "Post saved successfully", true)
}

// UnsavePost handles POST /feeds/posts/:id/unsave
func (s *Server) UnsavePost(c *fiber.Ctx) error {
	userID, _ := userFrom(c)
	if err := s.posts.Unsave(c.UserContext(), userID, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return respondData(c, fiber.StatusOK, "Post unsaved successfully", false)
}

// CheckSaved handles GET /feeds/posts/:id/check-saved
func (s *Server) CheckSaved(c *fiber.Ctx) error {
	userID, _ := userFrom(c)
	saved, err := s.posts.IsSaved(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	return respondData(c, fiber.StatusOK, "", saved)
}
