package validation

import (
	"testing"

	"adda/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	t.Parallel()

	staged := []models.MediaSlot{{File: &models.MediaFile{Name: "a.jpg"}, Type: models.MediaTypeImage}}

	tests := []struct {
		name   string
		draft  func() *models.Draft
		tab    int
		failed []string
	}{
		{
			name:   "text needs content",
			draft:  func() *models.Draft { d := models.NewDraft(models.PostTypeText); d.Content = "  "; return d },
			tab:    3,
			failed: []string{"content"},
		},
		{
			name:  "text with content",
			draft: func() *models.Draft { d := models.NewDraft(models.PostTypeText); d.Content = "hi"; return d },
			tab:   1,
		},
		{
			name:   "photo without media",
			draft:  func() *models.Draft { return models.NewDraft(models.PostTypePhoto) },
			tab:    1,
			failed: []string{"stagedMedia"},
		},
		{
			name:  "photo with media",
			draft: func() *models.Draft { d := models.NewDraft(models.PostTypePhoto); d.Media = staged; return d },
			tab:   2,
		},
		{
			name:   "article missing body",
			draft:  func() *models.Draft { d := models.NewDraft(models.PostTypeArticle); d.Title = "T"; return d },
			tab:    1,
			failed: []string{"articleBody"},
		},
		{
			name:  "article has no tab zero rules",
			draft: func() *models.Draft { return models.NewDraft(models.PostTypeArticle) },
			tab:   0,
		},
		{
			name: "event bad dates",
			draft: func() *models.Draft {
				d := models.NewDraft(models.PostTypeEvent)
				d.Title = "Meetup"
				d.EventStartDate = "05/01/2024"
				d.EventEndDate = "tomorrow"
				d.Venue = "Hall"
				d.Description = "Talks"
				return d
			},
			tab:    1,
			failed: []string{"eventEndDate", "eventStartDate"},
		},
		{
			name: "event valid without end date",
			draft: func() *models.Draft {
				d := models.NewDraft(models.PostTypeEvent)
				d.Title = "Meetup"
				d.EventStartDate = "2024-05-01"
				d.Venue = "Hall"
				d.Description = "Talks"
				return d
			},
			tab: 3,
		},
		{
			name:   "event empty at submit tab checks earlier tabs",
			draft:  func() *models.Draft { return models.NewDraft(models.PostTypeEvent) },
			tab:    3,
			failed: []string{"description", "eventStartDate", "title", "venue"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Check(tc.draft(), tc.tab)
			if len(tc.failed) == 0 {
				assert.True(t, res.Valid(), "unexpected failures: %v", res.Errors)
				return
			}
			assert.Equal(t, tc.failed, res.Fields())
		})
	}
}

func TestFor_UnknownType(t *testing.T) {
	assert.Empty(t, For(models.PostTypeMixed, 1))
}

func TestCheckPayload(t *testing.T) {
	assert.NoError(t, CheckPayload(&models.PostPayload{Visibility: models.VisibilityFriends}))

	err := CheckPayload(&models.PostPayload{Visibility: "everyone"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
}
