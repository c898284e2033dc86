package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// UnmarshalJSON accepts either a populated user object or a bare user id.
func (u *PostUser) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*u = PostUser{}
		return json.Unmarshal(data, &u.ID)
	}
	type plain PostUser
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*u = PostUser(v)
	return nil
}

// UnmarshalJSON decodes a server post field by field. A field in a shape
// the client does not expect is left empty rather than failing the post.
func (p *CreatedPost) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = CreatedPost{
		ID:         decodeField[string](raw["_id"]),
		PostType:   decodeField[PostType](raw["postType"]),
		User:       decodeField[PostUser](raw["user"]),
		Title:      decodeField[string](raw["title"]),
		Content:    decodeField[string](raw["content"]),
		Media:      decodeField[[]Media](raw["media"]),
		Article:    decodeField[*Article](raw["article"]),
		Event:      decodeField[*Event](raw["event"]),
		Likes:      decodeRefs(raw["likes"]),
		Comments:   decodeRefs(raw["comments"]),
		Shares:     decodeRefs(raw["shares"]),
		CreatedAt:  decodeTime(raw["createdAt"]),
		Visibility: decodeField[Visibility](raw["visibility"]),
		Tags:       decodeField[[]string](raw["tags"]),
		Location:   decodeField[string](raw["location"]),
	}
	return nil
}

// UnmarshalJSON tolerates a bare user id and non RFC 3339 timestamps.
func (c *Comment) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Comment{
		ID:        decodeField[string](raw["_id"]),
		PostID:    decodeField[string](raw["postId"]),
		User:      decodeField[PostUser](raw["user"]),
		Content:   decodeField[string](raw["content"]),
		CreatedAt: decodeTime(raw["createdAt"]),
	}
	return nil
}

func decodeField[T any](raw json.RawMessage) T {
	var v T
	if len(raw) == 0 {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

// decodeRefs reads a list of ids where each entry is either an id string
// or a populated document carrying an _id.
func decodeRefs(raw json.RawMessage) []string {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	refs := make([]string, 0, len(items))
	for _, item := range items {
		var id string
		if json.Unmarshal(item, &id) != nil {
			var doc struct {
				ID string `json:"_id"`
			}
			if json.Unmarshal(item, &doc) != nil {
				continue
			}
			id = doc.ID
		}
		if id != "" {
			refs = append(refs, id)
		}
	}
	return refs
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// decodeTime accepts the common string layouts and unix milliseconds.
func decodeTime(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 {
		return time.Time{}
	}
	if json.Unmarshal(raw, &s) != nil {
		ms, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
		if err != nil {
			return time.Time{}
		}
		return time.UnixMilli(ms).UTC()
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
