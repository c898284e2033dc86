package composer

import (
	"adda/internal/models"
)

// BuildPayload assembles the POST /posts body for d. Media must already
// be uploaded; slots without a URL are left out.
func BuildPayload(d *models.Draft) *models.PostPayload {
	p := &models.PostPayload{
		Title:      d.Title,
		Content:    d.Content,
		PostType:   d.PostType,
		Location:   d.Location,
		Tags:       d.Tags,
		Visibility: d.Visibility,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Visibility == "" {
		p.Visibility = models.VisibilityPublic
	}

	switch d.PostType {
	case models.PostTypeArticle:
		var cover models.MediaSlot
		if len(d.Media) > 0 {
			cover = d.Media[0]
		}
		p.Article = &models.Article{
			Body:       d.ArticleBody,
			CoverImage: cover.URL,
		}
		p.Media = []models.Media{}
		if cover.URL != "" {
			p.Media = append(p.Media, models.Media{
				Type:    models.MediaTypeImage,
				Caption: cover.Caption,
				URL:     cover.URL,
			})
		}
	case models.PostTypeEvent:
		end := d.EventEndDate
		if end == "" {
			end = d.EventStartDate
		}
		p.Event = &models.Event{
			StartDate:   d.EventStartDate,
			EndDate:     end,
			Venue:       d.Venue,
			Description: d.Description,
		}
		p.Media = uploadedMedia(d.Media)
	default:
		p.Media = uploadedMedia(d.Media)
	}
	return p
}

// uploadedMedia keeps slots that have both a local file and a URL.
func uploadedMedia(slots []models.MediaSlot) []models.Media {
	out := make([]models.Media, 0, len(slots))
	for _, s := range slots {
		if !s.Staged() || !s.Uploaded() {
			continue
		}
		out = append(out, models.Media{Type: s.Type, Caption: s.Caption, URL: s.URL})
	}
	return out
}
