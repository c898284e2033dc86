// Package api is the HTTP client for the Adda REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"adda/internal/models"
	"adda/internal/observability"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// Envelope is the response wrapper used by every backend endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api status %d", e.Status)
}

// Client talks to the backend rooted at BaseURL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. A nil httpClient gets one with
// the given timeout.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

type uploadData struct {
	FileDetails struct {
		URL string `json:"url"`
	} `json:"fileDetails"`
}

// UploadFile sends one file to POST /upload/file and returns its remote URL.
func (c *Client) UploadFile(ctx context.Context, token string, f models.MediaFile) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return "", fmt.Errorf("write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	env, err := c.do(ctx, "upload_file", http.MethodPost, "/upload/file", token, w.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}
	var data uploadData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return "", fmt.Errorf("decode upload response: %w", err)
		}
	}
	if data.FileDetails.URL == "" {
		return "", errors.New("upload response missing data.fileDetails.url")
	}
	return data.FileDetails.URL, nil
}

// CreatePost sends payload to POST /posts. A 2xx response is returned as
// is, including success=false bodies; the caller decides what they mean.
func (c *Client) CreatePost(ctx context.Context, token string, payload *models.PostPayload) (*Envelope, error) {
	return c.doJSON(ctx, "create_post", http.MethodPost, "/posts", token, payload)
}

// PostDetail is a post as returned by GET /posts/:id, with expanded comments.
type PostDetail struct {
	models.CreatedPost
	Comments []models.Comment `json:"comments"`
}

// UnmarshalJSON decodes the post fields leniently and the expanded comments
// separately, since the embedded post would otherwise claim the whole body.
func (d *PostDetail) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &d.CreatedPost); err != nil {
		return err
	}
	var expanded struct {
		Comments []json.RawMessage `json:"comments"`
	}
	if err := json.Unmarshal(data, &expanded); err != nil {
		return err
	}
	d.Comments = make([]models.Comment, 0, len(expanded.Comments))
	for _, raw := range expanded.Comments {
		var cm models.Comment
		if json.Unmarshal(raw, &cm) == nil && cm.ID != "" {
			d.Comments = append(d.Comments, cm)
		}
	}
	return nil
}

// GetPost fetches one post.
func (c *Client) GetPost(ctx context.Context, token, postID string) (*PostDetail, error) {
	env, err := c.doJSON(ctx, "get_post", http.MethodGet, "/posts/"+url.PathEscape(postID), token, nil)
	if err != nil {
		return nil, err
	}
	var post PostDetail
	if err := json.Unmarshal(env.Data, &post); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}
	return &post, nil
}

type commentRequest struct {
	PostID  string `json:"postId"`
	Content string `json:"content"`
}

// AddComment posts a comment on postID.
func (c *Client) AddComment(ctx context.Context, token, postID, content string) (*models.Comment, error) {
	env, err := c.doJSON(ctx, "add_comment", http.MethodPost, "/comments", token, commentRequest{PostID: postID, Content: content})
	if err != nil {
		return nil, err
	}
	var comment models.Comment
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &comment); err != nil {
			return nil, fmt.Errorf("decode comment: %w", err)
		}
	}
	return &comment, nil
}

// SetSaved saves or unsaves postID for the current user.
func (c *Client) SetSaved(ctx context.Context, token, postID string, saved bool) error {
	action := "unsave"
	if saved {
		action = "save"
	}
	_, err := c.doJSON(ctx, "set_saved", http.MethodPost, "/feeds/posts/"+url.PathEscape(postID)+"/"+action, token, struct{}{})
	return err
}

// IsSaved reports whether postID is saved by the current user.
func (c *Client) IsSaved(ctx context.Context, token, postID string) (bool, error) {
	env, err := c.doJSON(ctx, "check_saved", http.MethodGet, "/feeds/posts/"+url.PathEscape(postID)+"/check-saved", token, nil)
	if err != nil {
		return false, err
	}
	var saved bool
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &saved); err != nil {
			return false, fmt.Errorf("decode saved flag: %w", err)
		}
	}
	return saved, nil
}

func (c *Client) doJSON(ctx context.Context, endpoint, method, path, token string, in interface{}) (*Envelope, error) {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, endpoint, method, path, token, contentType, body)
}

func (c *Client) do(ctx context.Context, endpoint, method, path, token, contentType string, body io.Reader) (env *Envelope, err error) {
	defer observability.TrackRequest(endpoint)()

	header := make(http.Header)
	span, ctx := observability.StartClientSpan(ctx, endpoint, method, header)
	defer func() {
		span.SetError(err, "")
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = header
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := observability.ExtractCorrelationID(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetHTTPStatus(resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out Envelope
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = out.Message
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	return &out, nil
}

// ServerMessage returns the message the backend attached to err, if any.
func ServerMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
