package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatedPost_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		want func(t *testing.T, p CreatedPost)
	}{
		{
			name: "populated user",
			body: `{"_id":"p1","user":{"_id":"u1","name":"Ada"},"createdAt":"2024-05-01T10:00:00Z"}`,
			want: func(t *testing.T, p CreatedPost) {
				assert.Equal(t, PostUser{ID: "u1", Name: "Ada"}, p.User)
				assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), p.CreatedAt.UTC())
			},
		},
		{
			name: "user id only",
			body: `{"_id":"p1","user":"u1"}`,
			want: func(t *testing.T, p CreatedPost) {
				assert.Equal(t, PostUser{ID: "u1"}, p.User)
			},
		},
		{
			name: "mixed refs",
			body: `{"_id":"p1","comments":[{"_id":"c1","content":"x"},"c2",7],"likes":"none"}`,
			want: func(t *testing.T, p CreatedPost) {
				assert.Equal(t, []string{"c1", "c2"}, p.Comments)
				assert.Nil(t, p.Likes)
			},
		},
		{
			name: "bad field leaves the rest",
			body: `{"_id":"p1","media":"nope","title":"T","createdAt":"yesterday"}`,
			want: func(t *testing.T, p CreatedPost) {
				assert.Nil(t, p.Media)
				assert.Equal(t, "T", p.Title)
				assert.True(t, p.CreatedAt.IsZero())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p CreatedPost
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Equal(t, "p1", p.ID)
			tt.want(t, p)
		})
	}

	var p CreatedPost
	assert.Error(t, json.Unmarshal([]byte(`"p1"`), &p))
}

func TestComment_UnmarshalJSON(t *testing.T) {
	var c Comment
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"c1","postId":"p1","user":"u1","content":"hi","createdAt":"2024-05-01"}`), &c))
	assert.Equal(t, "u1", c.User.ID)
	assert.Equal(t, "hi", c.Content)
	assert.Equal(t, 2024, c.CreatedAt.Year())
}
