package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"adda/internal/api"
	"adda/internal/auth"
	"adda/internal/composer"
	"adda/internal/config"
	"adda/internal/database"
	"adda/internal/models"
	"adda/internal/testutil"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

func newTestServer(t *testing.T, flags string) *Server {
	t.Helper()
	db, err := database.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())))
	require.NoError(t, err)
	cfg := &config.Config{
		DevPort:      "0",
		DevJWTSecret: testSecret,
		DevUploadDir: t.TempDir(),
		DevPublicURL: "http://dev.test",
		FeatureFlags: flags,
	}
	s, err := NewServer(cfg, db, nil)
	require.NoError(t, err)
	return s
}

func devToken(t *testing.T, subject string) string {
	t.Helper()
	tok, err := auth.NewDevIssuer(testSecret, subject, gofakeit.Name(), time.Hour).Token(context.Background())
	require.NoError(t, err)
	return tok
}

func doJSON(t *testing.T, s *Server, method, path, token string, body interface{}) (int, api.Envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env api.Envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t, "")

	status, env := doJSON(t, s, http.MethodPost, "/api/v1/posts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
	assert.Equal(t, "Authorization header required", env.Message)

	status, _ = doJSON(t, s, http.MethodPost, "/api/v1/posts", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAndGetPost(t *testing.T) {
	s := newTestServer(t, "")
	tok := devToken(t, "u1")

	status, env := doJSON(t, s, http.MethodPost, "/api/v1/posts", tok, models.PostPayload{
		PostType:   models.PostTypeArticle,
		Title:      "Hello",
		Tags:       []string{},
		Visibility: models.VisibilityPublic,
		Media:      []models.Media{},
		Article:    &models.Article{Body: "Body"},
	})
	require.Equal(t, http.StatusCreated, status)
	require.True(t, env.Success)

	var data struct {
		Post models.CreatedPost `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Post.ID)
	assert.Equal(t, "u1", data.Post.User.ID)
	assert.Equal(t, "Body", data.Post.Article.Body)

	status, env = doJSON(t, s, http.MethodPost, "/api/v1/comments", tok, map[string]string{"postId": data.Post.ID, "content": "first"})
	require.Equal(t, http.StatusCreated, status)

	status, env = doJSON(t, s, http.MethodGet, "/api/v1/posts/"+data.Post.ID, tok, nil)
	require.Equal(t, http.StatusOK, status)
	var detail api.PostDetail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "first", detail.Comments[0].Content)

	status, env = doJSON(t, s, http.MethodGet, "/api/v1/posts/nope", tok, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
}

func TestCreatePost_Validation(t *testing.T) {
	s := newTestServer(t, "")
	tok := devToken(t, "u1")

	tests := []struct {
		name    string
		payload models.PostPayload
	}{
		{name: "unknown type", payload: models.PostPayload{PostType: "poll", Content: "x"}},
		{name: "empty text", payload: models.PostPayload{PostType: models.PostTypeText, Content: "  "}},
		{name: "bad visibility", payload: models.PostPayload{PostType: models.PostTypeText, Content: "x", Visibility: "everyone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := doJSON(t, s, http.MethodPost, "/api/v1/posts", tok, tt.payload)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestCreatePost_ResponseShapeFlags(t *testing.T) {
	tok := devToken(t, "u1")
	payload := models.PostPayload{PostType: models.PostTypeText, Content: "hi", Tags: []string{}, Media: []models.Media{}}

	bare := newTestServer(t, "bare_create_response=on")
	_, env := doJSON(t, bare, http.MethodPost, "/api/v1/posts", tok, payload)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{}`, string(env.Data))

	flat := newTestServer(t, "flat_create_response=on")
	_, env = doJSON(t, flat, http.MethodPost, "/api/v1/posts", tok, payload)
	var post models.CreatedPost
	require.NoError(t, json.Unmarshal(env.Data, &post))
	assert.NotEmpty(t, post.ID)
}

func TestSavedPosts(t *testing.T) {
	s := newTestServer(t, "")
	tok := devToken(t, "u1")
	_, env := doJSON(t, s, http.MethodPost, "/api/v1/posts", tok, models.PostPayload{PostType: models.PostTypeText, Content: "hi"})
	var data struct {
		Post models.CreatedPost `json:"post"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	base := "/api/v1/feeds/posts/" + data.Post.ID

	checkSaved := func() bool {
		_, env := doJSON(t, s, http.MethodGet, base+"/check-saved", tok, nil)
		var saved bool
		require.NoError(t, json.Unmarshal(env.Data, &saved))
		return saved
	}

	assert.False(t, checkSaved())
	status, _ := doJSON(t, s, http.MethodPost, base+"/save", tok, struct{}{})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, checkSaved())
	status, _ = doJSON(t, s, http.MethodPost, base+"/unsave", tok, struct{}{})
	require.Equal(t, http.StatusOK, status)
	assert.False(t, checkSaved())
}

func TestUploadFile(t *testing.T) {
	s := newTestServer(t, "")
	tok := devToken(t, "u1")

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "pic.PNG")
	require.NoError(t, err)
	_, _ = part.Write(testutil.TinyPNG(t, 4, 4))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload/file", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var env api.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	var data struct {
		FileDetails fileDetails `json:"fileDetails"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Regexp(t, `^http://dev\.test/uploads/[0-9a-f-]{36}\.png$`, data.FileDetails.URL)

	status, env := doJSON(t, s, http.MethodPost, "/api/v1/upload/file", tok, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No file provided", env.Message)
}

// TestComposerEndToEnd drives the composer through the real HTTP client
// against a listening dev server.
func TestComposerEndToEnd(t *testing.T) {
	s := newTestServer(t, "")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.App().Listener(ln) }()
	t.Cleanup(func() { _ = s.App().Shutdown() })

	client := api.NewClient("http://"+ln.Addr().String()+"/api/v1", nil, 5*time.Second)
	var created *models.CreatedPost
	c := composer.New(composer.Deps{
		Tokens:    auth.NewDevIssuer(testSecret, "u1", "Ada", time.Hour),
		Uploader:  client,
		Posts:     client,
		OnCreated: func(p *models.CreatedPost) { created = p },
	})

	require.NoError(t, c.Open(models.PostTypePhoto))
	require.NoError(t, c.StageMedia(&models.MediaFile{Name: "a.png", ContentType: "image/png", Data: testutil.TinyPNG(t, 8, 8)}, 0))
	_, err = c.Next(context.Background())
	require.NoError(t, err)
	require.True(t, c.CanSubmit())

	res, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Synthesized)
	require.NotNil(t, created)
	assert.Equal(t, res.Post.ID, created.ID)
	require.Len(t, created.Media, 1)
	assert.Contains(t, created.Media[0].URL, "http://dev.test/uploads/")
	assert.False(t, c.IsOpen())
}

func TestComposerEndToEnd_UnpopulatedResponse(t *testing.T) {
	s := newTestServer(t, "unpopulated_create_response=on")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = s.App().Listener(ln) }()
	t.Cleanup(func() { _ = s.App().Shutdown() })

	client := api.NewClient("http://"+ln.Addr().String()+"/api/v1", nil, 5*time.Second)
	c := composer.New(composer.Deps{
		Tokens:   auth.NewDevIssuer(testSecret, "u7", "Ada", time.Hour),
		Uploader: client,
		Posts:    client,
	})
	require.NoError(t, c.Open(models.PostTypeText))
	require.NoError(t, c.Update(func(d *models.Draft) { d.Content = "hello" }))

	res, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Synthesized)
	assert.Regexp(t, `^[0-9a-f-]{36}$`, res.Post.ID)
	assert.Equal(t, "u7", res.Post.User.ID)
	assert.False(t, res.Post.CreatedAt.IsZero())
}
