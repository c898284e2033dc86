package composer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"adda/internal/api"
	"adda/internal/models"
)

// Result is the outcome of a successful submission.
type Result struct {
	Post *models.CreatedPost
	// Synthesized is set when the server reported success without a
	// usable post and Post was built locally from the draft.
	Synthesized bool
}

// ResolveCreatedPost extracts the created post from a success response,
// preferring data.post, then data itself. When neither carries an _id the
// post is synthesized from payload with a temp-<millis> identifier.
func ResolveCreatedPost(env *api.Envelope, payload *models.PostPayload, now time.Time) (*Result, error) {
	if !env.Success {
		return nil, models.NewSubmissionError(env.Message, nil)
	}

	if data := env.Data; isObject(data) {
		var nested struct {
			Post json.RawMessage `json:"post"`
		}
		if err := json.Unmarshal(data, &nested); err == nil && isObject(nested.Post) {
			if post, ok := decodePost(nested.Post); ok {
				return &Result{Post: post}, nil
			}
		}
		if post, ok := decodePost(data); ok {
			return &Result{Post: post}, nil
		}
	}

	return &Result{Post: fallbackPost(payload, now), Synthesized: true}, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func decodePost(raw json.RawMessage) (*models.CreatedPost, bool) {
	var ref struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil || ref.ID == "" {
		return nil, false
	}
	var post models.CreatedPost
	if err := json.Unmarshal(raw, &post); err != nil {
		return nil, false
	}
	post.ID = ref.ID
	if post.Likes == nil {
		post.Likes = []string{}
	}
	if post.Comments == nil {
		post.Comments = []string{}
	}
	if post.Shares == nil {
		post.Shares = []string{}
	}
	return &post, true
}

// TempID returns the identifier used for locally synthesized entities.
func TempID(now time.Time) string {
	return fmt.Sprintf("temp-%d", now.UnixMilli())
}

func fallbackPost(p *models.PostPayload, now time.Time) *models.CreatedPost {
	post := &models.CreatedPost{
		ID:       TempID(now),
		PostType: p.PostType,
		User: models.PostUser{
			ID:   "unknown",
			Name: "User",
			Role: "User",
		},
		Title:      p.Title,
		Content:    p.Content,
		Media:      p.Media,
		Likes:      []string{},
		Comments:   []string{},
		Shares:     []string{},
		CreatedAt:  now.UTC(),
		Visibility: p.Visibility,
		Tags:       p.Tags,
		Location:   p.Location,
	}
	switch p.PostType {
	case models.PostTypeArticle:
		post.Article = p.Article
	case models.PostTypeEvent:
		post.Event = p.Event
	}
	return post
}
