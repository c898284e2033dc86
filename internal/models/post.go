// Package models contains data structures for the composer's domain models.
package models

import (
	"strings"
	"time"
)

// PostType identifies which post variant a composer session authors.
type PostType string

const (
	PostTypeText    PostType = "text"
	PostTypePhoto   PostType = "photo"
	PostTypeVideo   PostType = "video"
	PostTypeArticle PostType = "article"
	PostTypeEvent   PostType = "event"
	PostTypeMixed   PostType = "mixed"
)

// ComposerPostTypes lists the types a composer can be opened for.
var ComposerPostTypes = []PostType{PostTypeText, PostTypePhoto, PostTypeVideo, PostTypeArticle, PostTypeEvent}

// Valid reports whether t is a post type a composer can author.
func (t PostType) Valid() bool {
	for _, c := range ComposerPostTypes {
		if c == t {
			return true
		}
	}
	return false
}

// ParsePostType normalizes s and checks it against the composer types.
func ParsePostType(s string) (PostType, error) {
	t := PostType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", NewValidationError("Invalid post type: " + s)
	}
	return t, nil
}

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// MediaTypeFor infers the slot type from a MIME type.
func MediaTypeFor(contentType string) MediaType {
	if strings.HasPrefix(contentType, "image/") {
		return MediaTypeImage
	}
	return MediaTypeVideo
}

// MediaFile is a local file staged for upload.
type MediaFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// MediaSlot is one entry in a draft's media list. File is set when staged,
// URL only after that slot uploaded successfully.
type MediaSlot struct {
	File    *MediaFile
	URL     string
	Type    MediaType
	Caption string
}

// Staged reports whether the slot holds a local file.
func (s MediaSlot) Staged() bool { return s.File != nil }

// Uploaded reports whether the slot has a remote URL.
func (s MediaSlot) Uploaded() bool { return s.URL != "" }

// Pending reports whether the slot still needs an upload.
func (s MediaSlot) Pending() bool { return s.Staged() && !s.Uploaded() }

// Draft is the mutable, client-local post being assembled by a composer.
type Draft struct {
	PostType       PostType
	Title          string
	Content        string
	Location       string
	Tags           []string
	Visibility     Visibility
	Media          []MediaSlot
	ArticleBody    string
	EventStartDate string
	EventEndDate   string
	Venue          string
	Description    string
}

// NewDraft returns an empty draft for t with one empty media slot, the
// same initial shape the form starts with.
func NewDraft(t PostType) *Draft {
	return &Draft{
		PostType:   t,
		Tags:       []string{},
		Visibility: VisibilityPublic,
		Media:      []MediaSlot{{Type: MediaTypeImage}},
	}
}

// Clone returns a copy whose slices can be mutated independently.
func (d *Draft) Clone() *Draft {
	c := *d
	c.Tags = append([]string(nil), d.Tags...)
	c.Media = append([]MediaSlot(nil), d.Media...)
	return &c
}

// HasStagedMedia reports whether any slot holds a local file.
func (d *Draft) HasStagedMedia() bool {
	for _, m := range d.Media {
		if m.Staged() {
			return true
		}
	}
	return false
}

// PendingUploads returns the indices of slots that still need an upload.
func (d *Draft) PendingUploads() []int {
	var out []int
	for i, m := range d.Media {
		if m.Pending() {
			out = append(out, i)
		}
	}
	return out
}

// Fields exposes the draft's form fields by name for schema validation.
func (d *Draft) Fields() map[string]interface{} {
	staged := 0
	for _, m := range d.Media {
		if m.Staged() {
			staged++
		}
	}
	return map[string]interface{}{
		"title":          d.Title,
		"content":        d.Content,
		"location":       d.Location,
		"visibility":     string(d.Visibility),
		"articleBody":    d.ArticleBody,
		"eventStartDate": d.EventStartDate,
		"eventEndDate":   d.EventEndDate,
		"venue":          d.Venue,
		"description":    d.Description,
		"stagedMedia":    staged,
	}
}

// PostUser is the author summary embedded in a post.
type PostUser struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	ProfilePicture string `json:"profilePicture"`
}

// Media is an uploaded media entry as sent to and returned by the API.
type Media struct {
	Type    MediaType `json:"type"`
	Caption string    `json:"caption"`
	URL     string    `json:"url"`
}

type Article struct {
	Body       string `json:"body"`
	CoverImage string `json:"coverImage"`
}

type Event struct {
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Venue       string `json:"venue"`
	Description string `json:"description"`
	CoverImage  string `json:"coverImage,omitempty"`
}

// PostPayload is the JSON body of POST /posts.
type PostPayload struct {
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	PostType   PostType   `json:"postType"`
	Location   string     `json:"location"`
	Tags       []string   `json:"tags"`
	Visibility Visibility `json:"visibility" validate:"oneof=public friends private"`
	Media      []Media    `json:"media"`
	Article    *Article   `json:"article,omitempty"`
	Event      *Event     `json:"event,omitempty"`
}

// CreatedPost is a post confirmed by the server or synthesized locally
// when the server's success response carries no usable post.
type CreatedPost struct {
	ID         string     `json:"_id"`
	PostType   PostType   `json:"postType"`
	User       PostUser   `json:"user"`
	Title      string     `json:"title,omitempty"`
	Content    string     `json:"content,omitempty"`
	Media      []Media    `json:"media,omitempty"`
	Article    *Article   `json:"article,omitempty"`
	Event      *Event     `json:"event,omitempty"`
	Likes      []string   `json:"likes"`
	Comments   []string   `json:"comments"`
	Shares     []string   `json:"shares"`
	CreatedAt  time.Time  `json:"createdAt"`
	Visibility Visibility `json:"visibility"`
	Tags       []string   `json:"tags,omitempty"`
	Location   string     `json:"location,omitempty"`
}

// Comment is a comment on a post.
type Comment struct {
	ID        string    `json:"_id"`
	PostID    string    `json:"postId"`
	User      PostUser  `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
