package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"adda/internal/api"
	"adda/internal/auth"
	"adda/internal/composer"
	"adda/internal/models"
	"adda/internal/notify"
	"adda/internal/observability"
	"adda/internal/rewards"
)

const maxCommentLen = 10000

// FeedAPI is the subset of the backend client the feed screens use.
type FeedAPI interface {
	CreatePost(ctx context.Context, token string, payload *models.PostPayload) (*api.Envelope, error)
	GetPost(ctx context.Context, token, postID string) (*api.PostDetail, error)
	AddComment(ctx context.Context, token, postID, content string) (*models.Comment, error)
	SetSaved(ctx context.Context, token, postID string, saved bool) error
	IsSaved(ctx context.Context, token, postID string) (bool, error)
}

// FeedService backs the inline text box and the post details view.
type FeedService struct {
	api      FeedAPI
	tokens   auth.TokenProvider
	notifier notify.Notifier
	rewards  rewards.Actions
	now      func() time.Time
}

// NewFeedService creates a FeedService. A nil notifier discards
// notifications; nil actions resolve to the installed reward capability.
func NewFeedService(client FeedAPI, tokens auth.TokenProvider, notifier notify.Notifier, actions rewards.Actions) *FeedService {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &FeedService{
		api:      client,
		tokens:   tokens,
		notifier: notifier,
		rewards:  actions,
		now:      time.Now,
	}
}

func (s *FeedService) token(ctx context.Context) (string, error) {
	if s.tokens == nil {
		return "", models.NewUnauthorizedError("Authentication failed. Please log in again.")
	}
	token, err := s.tokens.Token(ctx)
	if err != nil || token == "" {
		return "", models.NewUnauthorizedError("Authentication failed. Please log in again.")
	}
	return token, nil
}

// ShareText posts a public text-only post from the inline box.
func (s *FeedService) ShareText(ctx context.Context, content string) (*composer.Result, error) {
	if strings.TrimSpace(content) == "" {
		s.notifier.Notify(notify.LevelError, "Please enter some text to post")
		return nil, models.NewValidationError("Please enter some text to post")
	}
	token, err := s.token(ctx)
	if err != nil {
		s.notifier.Notify(notify.LevelError, err.Error())
		return nil, err
	}

	payload := &models.PostPayload{
		Content:    content,
		PostType:   models.PostTypeText,
		Tags:       []string{},
		Visibility: models.VisibilityPublic,
		Media:      []models.Media{},
	}
	env, err := s.api.CreatePost(ctx, token, payload)
	if err != nil {
		msg := api.ServerMessage(err)
		if msg == "" {
			msg = err.Error()
		}
		observability.ComposerSubmissions.WithLabelValues(string(models.PostTypeText), "error").Inc()
		observability.GlobalLogger.ErrorContext(ctx, "text post request failed", slog.String("error", err.Error()))
		s.notifier.Notify(notify.LevelError, "Failed to create text post: "+msg)
		return nil, models.NewSubmissionError(api.ServerMessage(err), err)
	}

	res, err := composer.ResolveCreatedPost(env, payload, s.now())
	if err == nil {
		observability.ComposerSubmissions.WithLabelValues(string(models.PostTypeText), "ok").Inc()
		s.notifier.Notify(notify.LevelSuccess, "Text post created successfully!")
		return res, nil
	}

	observability.ComposerSubmissions.WithLabelValues(string(models.PostTypeText), "rejected").Inc()
	observability.GlobalLogger.ErrorContext(ctx, "text post rejected", slog.String("error", err.Error()))
	s.notifier.Notify(notify.LevelError, "Failed to create post: "+models.UserMessage(err))
	return nil, err
}

// GetPost loads a post with its comments.
func (s *FeedService) GetPost(ctx context.Context, postID string) (*api.PostDetail, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	post, err := s.api.GetPost(ctx, token, postID)
	if err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "failed to fetch post details",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
		if api.ServerMessage(err) == "" {
			return nil, models.NewInternalError(err)
		}
		return nil, err
	}
	if post.ID == "" {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}
	return post, nil
}

// AddComment comments on postID and triggers the comment reward.
func (s *FeedService) AddComment(ctx context.Context, postID, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	comment, err := s.api.AddComment(ctx, token, postID, content)
	if err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "failed to add comment",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if comment.ID == "" {
		comment.ID = composer.TempID(s.now())
	}
	if comment.PostID == "" {
		comment.PostID = postID
	}
	s.notifier.Notify(notify.LevelSuccess, "Comment added successfully")
	rewards.Trigger(ctx, s.rewards, rewards.CommentPost, postID, 0)
	return comment, nil
}

// ToggleSave flips the saved state of postID and returns the new state.
func (s *FeedService) ToggleSave(ctx context.Context, postID string, currentlySaved bool) (bool, error) {
	token, err := s.token(ctx)
	if err != nil {
		return currentlySaved, err
	}
	want := !currentlySaved
	if err := s.api.SetSaved(ctx, token, postID, want); err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "failed to toggle save status",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
		return currentlySaved, err
	}
	if want {
		s.notifier.Notify(notify.LevelSuccess, "Post saved successfully")
	} else {
		s.notifier.Notify(notify.LevelSuccess, "Post unsaved successfully")
	}
	return want, nil
}

// IsSaved reports whether postID is saved. Signed-out users get false.
func (s *FeedService) IsSaved(ctx context.Context, postID string) (bool, error) {
	token, err := s.token(ctx)
	if err != nil {
		return false, nil
	}
	saved, err := s.api.IsSaved(ctx, token, postID)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "failed to check saved post",
			slog.String("post_id", postID),
			slog.String("error", err.Error()),
		)
		return false, err
	}
	return saved, nil
}
