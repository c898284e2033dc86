package composer

import (
	"context"
	"testing"

	"adda/internal/auth"
	"adda/internal/models"
	"adda/internal/notify"
	"adda/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestComposer(t *testing.T, postType models.PostType) (*Composer, *testutil.RecordingNotifier) {
	t.Helper()
	n := &testutil.RecordingNotifier{}
	c := New(Deps{
		Tokens:   auth.Static("tok"),
		Uploader: &testutil.UploaderStub{},
		Posts:    &testutil.CreatorStub{},
		Notifier: n,
	})
	require.NoError(t, c.Open(postType))
	return c, n
}

func jpeg(name string) *models.MediaFile {
	return &models.MediaFile{Name: name, ContentType: "image/jpeg", Data: []byte{0xff, 0xd8}}
}

func TestOpen_RejectsUnknownType(t *testing.T) {
	c := New(Deps{})
	err := c.Open(models.PostTypeMixed)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	assert.False(t, c.IsOpen())
}

func TestOpen_InitialState(t *testing.T) {
	c, _ := newTestComposer(t, models.PostTypeEvent)
	assert.True(t, c.IsOpen())
	assert.Equal(t, 1, c.Tab())
	d := c.Draft()
	require.NotNil(t, d)
	assert.Equal(t, models.PostTypeEvent, d.PostType)
	assert.Len(t, d.Media, 1)
	assert.Equal(t, []string{}, d.Tags)
	assert.Equal(t, models.VisibilityPublic, d.Visibility)
}

func TestNext_TextJumpsToLastTab(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestComposer(t, models.PostTypeText)

	tr, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, Transition{From: 1, To: 3}, tr)

	tr, err = c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, tr.To)

	tr, err = c.Prev(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.To)
}

func TestNext_ArticleGate(t *testing.T) {
	ctx := context.Background()
	c, n := newTestComposer(t, models.PostTypeArticle)

	tr, err := c.Next(ctx)
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	assert.Equal(t, 1, tr.To)
	assert.Equal(t, 1, c.Tab())
	assert.Equal(t, []string{"Please fill in the article title and body"}, n.Messages(notify.LevelError))

	require.NoError(t, c.Update(func(d *models.Draft) { d.Title = "Title" }))
	_, err = c.Next(ctx)
	require.Error(t, err, "title alone is not enough")

	require.NoError(t, c.Update(func(d *models.Draft) { d.ArticleBody = "Body" }))
	for _, want := range []int{2, 3, 3} {
		tr, err = c.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, tr.To)
	}
}

func TestNext_EventWarnsButAdvances(t *testing.T) {
	ctx := context.Background()
	c, n := newTestComposer(t, models.PostTypeEvent)

	tr, err := c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, tr.To)
	assert.Equal(t, "Some fields may need your attention", tr.Warning)
	assert.Equal(t, []string{tr.Warning}, n.Messages(notify.LevelWarning))

	tr, err = c.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, tr.To)
}

func TestNext_EventValidFieldsNoWarning(t *testing.T) {
	c, n := newTestComposer(t, models.PostTypeEvent)
	require.NoError(t, c.Update(func(d *models.Draft) {
		d.Title = "Meetup"
		d.EventStartDate = "2024-05-01"
		d.Venue = "Hall"
		d.Description = "Talks"
	}))

	tr, err := c.Next(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tr.Warning)
	assert.Empty(t, n.Messages(notify.LevelWarning))
}

func TestNext_MediaGate(t *testing.T) {
	for _, pt := range []models.PostType{models.PostTypePhoto, models.PostTypeVideo} {
		t.Run(string(pt), func(t *testing.T) {
			ctx := context.Background()
			c, n := newTestComposer(t, pt)

			_, err := c.Next(ctx)
			require.Error(t, err)
			assert.Equal(t, 1, c.Tab())
			assert.Equal(t, []string{"Please upload a " + string(pt) + " first"}, n.Messages(notify.LevelError))
			assert.False(t, c.CanSubmit())

			require.NoError(t, c.StageMedia(jpeg("a.jpg"), 0))
			for i := 0; i < 3; i++ {
				tr, err := c.Next(ctx)
				require.NoError(t, err)
				assert.Equal(t, 2, tr.To, "never beyond tab 2")
			}
			assert.True(t, c.CanSubmit())

			tr, err := c.Prev(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, tr.To)
			tr, err = c.Prev(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, tr.To, "floored at the first tab")
		})
	}
}

func TestUpdate_KeepsPostType(t *testing.T) {
	c, _ := newTestComposer(t, models.PostTypeArticle)
	require.NoError(t, c.Update(func(d *models.Draft) {
		d.PostType = models.PostTypeText
		d.Title = "x"
	}))
	assert.Equal(t, models.PostTypeArticle, c.Draft().PostType)
	assert.Equal(t, "x", c.Draft().Title)
}

func TestClosedComposer(t *testing.T) {
	ctx := context.Background()
	c := New(Deps{})
	_, err := c.Next(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.Submit(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Update(func(*models.Draft) {}), ErrClosed)
	assert.ErrorIs(t, c.StageMedia(jpeg("a.jpg"), 0), ErrClosed)
	assert.Nil(t, c.Draft())
}

func TestCloseAndPointerOutside(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestComposer(t, models.PostTypeText)
	_, err := c.Next(ctx)
	require.NoError(t, err)

	c.PointerOutside()
	assert.False(t, c.IsOpen())
	assert.Equal(t, 1, c.Tab())
	assert.Nil(t, c.Draft())

	c.PointerOutside()
	assert.False(t, c.IsOpen())

	require.NoError(t, c.Open(models.PostTypeText))
	assert.Equal(t, "", c.Draft().Content)
	c.Close()
	assert.False(t, c.IsOpen())
}

type previewStub struct {
	released []string
}

func (p *previewStub) Preview(f models.MediaFile) (string, error) { return "preview://" + f.Name, nil }
func (p *previewStub) Release(ref string)                        { p.released = append(p.released, ref) }

func TestStageMedia(t *testing.T) {
	previews := &previewStub{}
	c := New(Deps{Previews: previews})
	require.NoError(t, c.Open(models.PostTypePhoto))

	require.NoError(t, c.StageMedia(nil, 0))
	assert.False(t, c.Draft().HasStagedMedia())

	require.NoError(t, c.StageMedia(&models.MediaFile{Name: "clip.mp4", ContentType: "video/mp4"}, 2))
	d := c.Draft()
	require.Len(t, d.Media, 3)
	assert.Equal(t, models.MediaTypeVideo, d.Media[2].Type)
	assert.Equal(t, []string{"", "", "preview://clip.mp4"}, c.Previews())

	require.NoError(t, c.StageMedia(jpeg("a.jpg"), 0))
	assert.Equal(t, models.MediaTypeImage, c.Draft().Media[0].Type)

	err := c.StageMedia(jpeg("b.jpg"), -1)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	require.NoError(t, c.RemoveMediaSlot(2))
	assert.Len(t, c.Draft().Media, 2)
	assert.Equal(t, []string{"preview://a.jpg", ""}, c.Previews())
	assert.Equal(t, []string{"preview://clip.mp4"}, previews.released)

	require.NoError(t, c.RemoveMediaSlot(9))
	assert.Len(t, c.Draft().Media, 2)

	i, err := c.AddMediaSlot()
	require.NoError(t, err)
	assert.Equal(t, 2, i)
	require.NoError(t, c.SetCaption(2, "sunset"))
	assert.Equal(t, "sunset", c.Draft().Media[2].Caption)
	assert.Error(t, c.SetCaption(5, "x"))

	c.Close()
	assert.Equal(t, []string{"preview://clip.mp4", "preview://a.jpg"}, previews.released)
}

func TestStageMedia_RestageClearsURL(t *testing.T) {
	c, _ := newTestComposer(t, models.PostTypePhoto)
	require.NoError(t, c.Update(func(d *models.Draft) {
		d.Media[0] = models.MediaSlot{File: jpeg("old.jpg"), URL: "https://cdn.test/old.jpg", Type: models.MediaTypeImage}
	}))
	require.NoError(t, c.StageMedia(jpeg("new.jpg"), 0))
	d := c.Draft()
	assert.Empty(t, d.Media[0].URL)
	assert.Equal(t, "new.jpg", d.Media[0].File.Name)
}
