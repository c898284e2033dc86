// Package testutil provides shared test doubles and fixtures for composer tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"sync"
	"sync/atomic"

	"adda/internal/api"
	"adda/internal/models"
	"adda/internal/notify"
)

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// Notification is one recorded Notify call.
type Notification struct {
	Level   notify.Level
	Message string
}

// RecordingNotifier keeps every notification it receives.
type RecordingNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (n *RecordingNotifier) Notify(level notify.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, Notification{Level: level, Message: message})
}

// All returns a copy of the recorded notifications in order.
func (n *RecordingNotifier) All() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.items...)
}

// Messages returns the recorded messages at level.
func (n *RecordingNotifier) Messages(level notify.Level) []string {
	var out []string
	for _, item := range n.All() {
		if item.Level == level {
			out = append(out, item.Message)
		}
	}
	return out
}

// UploaderStub counts uploads and delegates to UploadFn when set. By
// default it returns https://cdn.test/<name>.
type UploaderStub struct {
	UploadFn func(ctx context.Context, token string, f models.MediaFile) (string, error)
	calls    atomic.Int32
}

func (s *UploaderStub) UploadFile(ctx context.Context, token string, f models.MediaFile) (string, error) {
	s.calls.Add(1)
	if s.UploadFn != nil {
		return s.UploadFn(ctx, token, f)
	}
	return "https://cdn.test/" + f.Name, nil
}

// Calls returns the number of UploadFile calls.
func (s *UploaderStub) Calls() int { return int(s.calls.Load()) }

// CreatorStub records submitted payloads and delegates to CreateFn when
// set. By default it echoes the payload back as a created post with _id "p1".
type CreatorStub struct {
	CreateFn func(ctx context.Context, token string, p *models.PostPayload) (*api.Envelope, error)

	mu       sync.Mutex
	payloads []*models.PostPayload
	tokens   []string
}

func (s *CreatorStub) CreatePost(ctx context.Context, token string, p *models.PostPayload) (*api.Envelope, error) {
	s.mu.Lock()
	s.payloads = append(s.payloads, p)
	s.tokens = append(s.tokens, token)
	s.mu.Unlock()
	if s.CreateFn != nil {
		return s.CreateFn(ctx, token, p)
	}
	return PostEnvelope(models.CreatedPost{
		ID:       "p1",
		PostType: p.PostType,
		Title:    p.Title,
		Content:  p.Content,
	}), nil
}

// Payloads returns the payloads submitted so far.
func (s *CreatorStub) Payloads() []*models.PostPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.PostPayload(nil), s.payloads...)
}

// Tokens returns the bearer tokens the submissions carried.
func (s *CreatorStub) Tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

// PostEnvelope wraps post as {success: true, data: {post: ...}}.
func PostEnvelope(post models.CreatedPost) *api.Envelope {
	return RawEnvelope(true, "", map[string]any{"post": post})
}

// RawEnvelope builds an envelope whose data is the JSON encoding of data.
func RawEnvelope(success bool, message string, data any) *api.Envelope {
	env := &api.Envelope{Success: success, Message: message}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			panic(fmt.Sprintf("marshal envelope data: %v", err))
		}
		env.Data = raw
	}
	return env
}
