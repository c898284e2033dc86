// Package composer implements the post composer: a per-type tab state
// machine over a client-local draft, with deferred media upload and
// submission to the backend.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"adda/internal/api"
	"adda/internal/auth"
	"adda/internal/models"
	"adda/internal/notify"
	"adda/internal/observability"
	"adda/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrClosed is returned by operations on a composer that is not open.
	ErrClosed = errors.New("composer is closed")
	// ErrSubmitInFlight is returned when Submit is called while another
	// submission of the same composer has not finished.
	ErrSubmitInFlight = errors.New("submission already in progress")
)

// DefaultUploadConcurrency bounds parallel slot uploads when Deps leaves it unset.
const DefaultUploadConcurrency = 4

// MediaUploader uploads one file and returns its remote URL.
type MediaUploader interface {
	UploadFile(ctx context.Context, token string, f models.MediaFile) (string, error)
}

// PostCreator submits an assembled post.
type PostCreator interface {
	CreatePost(ctx context.Context, token string, payload *models.PostPayload) (*api.Envelope, error)
}

// PreviewGenerator returns a local preview reference for a staged file.
type PreviewGenerator interface {
	Preview(f models.MediaFile) (string, error)
}

// Deps are the composer's collaborators.
type Deps struct {
	Tokens   auth.TokenProvider
	Uploader MediaUploader
	Posts    PostCreator
	Notifier notify.Notifier
	Previews PreviewGenerator
	// OnCreated receives the created post after a successful submit.
	OnCreated func(*models.CreatedPost)
	// UploadConcurrency bounds parallel uploads within one submit.
	UploadConcurrency int
	Now               func() time.Time
}

// Transition describes the result of a Next or Prev.
type Transition struct {
	From    int
	To      int
	Warning string
}

// Composer owns one draft at a time. It is safe for concurrent use; the
// only work it runs in parallel is the upload fan-out.
type Composer struct {
	deps Deps

	mu         sync.Mutex
	open       bool
	session    uint64
	postType   models.PostType
	tab        int
	draft      *models.Draft
	previews   []string
	submitting bool
	uploading  bool
	log        *observability.ComposerLogger
}

// New creates a closed composer. Call Open to start a draft.
func New(deps Deps) *Composer {
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard
	}
	if deps.UploadConcurrency < 1 {
		deps.UploadConcurrency = DefaultUploadConcurrency
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Composer{deps: deps, tab: firstTab}
}

// Open starts a fresh draft for postType, replacing any existing one.
func (c *Composer) Open(postType models.PostType) error {
	if _, ok := flowFor(postType); !ok {
		return models.NewValidationError("Invalid post type: " + string(postType))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session++
	c.open = true
	c.postType = postType
	c.tab = firstTab
	c.draft = models.NewDraft(postType)
	c.previews = make([]string, len(c.draft.Media))
	c.log = observability.NewComposerLogger(string(postType))
	return nil
}

// Close discards the draft and resets to the first tab. An in-flight
// submission keeps running but can no longer touch this composer's state.
func (c *Composer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// PointerOutside handles a pointer interaction outside the composer's
// bounds; it closes the composer when open.
func (c *Composer) PointerOutside() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		c.resetLocked()
	}
}

func (c *Composer) resetLocked() {
	if r, ok := c.deps.Previews.(interface{ Release(string) }); ok {
		for _, ref := range c.previews {
			if ref != "" {
				r.Release(ref)
			}
		}
	}
	c.session++
	c.open = false
	c.tab = firstTab
	c.draft = nil
	c.previews = nil
}

// IsOpen reports whether a draft is being composed.
func (c *Composer) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Tab returns the current tab.
func (c *Composer) Tab() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab
}

// PostType returns the type of the open draft.
func (c *Composer) PostType() models.PostType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.postType
}

// Draft returns a copy of the current draft, or nil when closed.
func (c *Composer) Draft() *models.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return nil
	}
	return c.draft.Clone()
}

// Previews returns the preview references, index-aligned with the draft's media.
func (c *Composer) Previews() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.previews...)
}

// IsSubmitting reports whether a submission is in flight.
func (c *Composer) IsSubmitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// IsUploading reports whether media uploads are in flight.
func (c *Composer) IsUploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploading
}

// CanSubmit reports whether the submit action is enabled: the composer is
// on its submit tab with no submission or upload in flight.
func (c *Composer) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open && c.tab == submitTab(c.postType) && !c.submitting && !c.uploading
}

// Update applies fn to the live draft. The post type cannot be changed.
func (c *Composer) Update(fn func(d *models.Draft)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrClosed
	}
	fn(c.draft)
	c.draft.PostType = c.postType
	c.alignPreviewsLocked()
	return nil
}

func (c *Composer) alignPreviewsLocked() {
	for len(c.previews) < len(c.draft.Media) {
		c.previews = append(c.previews, "")
	}
	c.previews = c.previews[:len(c.draft.Media)]
}

// Next advances according to the post type's transition rules. A blocked
// advance returns a validation error, notifies it, and leaves the tab as is.
func (c *Composer) Next(ctx context.Context) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return Transition{}, ErrClosed
	}
	f, _ := flowFor(c.postType)
	from := c.tab

	if g, ok := f.gates[from]; ok && !g.ok(c.draft) {
		msg := g.message(c.postType)
		c.record(ctx, "next", from, from, "blocked")
		c.deps.Notifier.Notify(notify.LevelError, msg)
		return Transition{From: from, To: from}, models.NewValidationError(msg)
	}

	to := f.next(from)
	t := Transition{From: from, To: to}
	if to == from {
		c.record(ctx, "next", from, to, "unchanged")
		return t, nil
	}
	if f.warnOnInvalid && !validation.Check(c.draft, from).Valid() {
		t.Warning = "Some fields may need your attention"
		c.deps.Notifier.Notify(notify.LevelWarning, t.Warning)
	}
	c.tab = to
	outcome := "advanced"
	if t.Warning != "" {
		outcome = "warned"
	}
	c.record(ctx, "next", from, to, outcome)
	return t, nil
}

// Prev steps back one tab, floored at the first; text drafts jump to the first tab.
func (c *Composer) Prev(ctx context.Context) (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return Transition{}, ErrClosed
	}
	f, _ := flowFor(c.postType)
	from := c.tab
	c.tab = f.prev(from)
	c.record(ctx, "prev", from, c.tab, "moved")
	return Transition{From: from, To: c.tab}, nil
}

func (c *Composer) record(ctx context.Context, action string, from, to int, outcome string) {
	observability.ComposerTransitions.WithLabelValues(string(c.postType), outcome).Inc()
	c.log.LogTransition(ctx, action, from, to, outcome)
}

// StageMedia records file in slot, inferring its type from the MIME type
// and generating a preview reference. Nothing is uploaded. A nil file is
// a no-op. Restaging a slot clears any URL it had.
func (c *Composer) StageMedia(file *models.MediaFile, slot int) error {
	if file == nil {
		return nil
	}
	if slot < 0 {
		return models.NewValidationError(fmt.Sprintf("invalid media slot %d", slot))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrClosed
	}

	for len(c.draft.Media) <= slot {
		c.draft.Media = append(c.draft.Media, models.MediaSlot{Type: models.MediaTypeImage})
	}
	c.alignPreviewsLocked()

	staged := *file
	s := c.draft.Media[slot]
	s.File = &staged
	s.Type = models.MediaTypeFor(file.ContentType)
	s.URL = ""
	c.draft.Media[slot] = s

	ref := ""
	if c.deps.Previews != nil {
		if r, err := c.deps.Previews.Preview(staged); err == nil {
			ref = r
		}
	}
	c.previews[slot] = ref
	return nil
}

// SetCaption sets the caption of slot.
func (c *Composer) SetCaption(slot int, caption string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrClosed
	}
	if slot < 0 || slot >= len(c.draft.Media) {
		return models.NewValidationError(fmt.Sprintf("invalid media slot %d", slot))
	}
	c.draft.Media[slot].Caption = caption
	return nil
}

// AddMediaSlot appends an empty slot and returns its index.
func (c *Composer) AddMediaSlot() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return 0, ErrClosed
	}
	c.draft.Media = append(c.draft.Media, models.MediaSlot{Type: models.MediaTypeImage})
	c.previews = append(c.previews, "")
	return len(c.draft.Media) - 1, nil
}

// RemoveMediaSlot removes slot i and its preview. Out-of-range indices are ignored.
func (c *Composer) RemoveMediaSlot(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrClosed
	}
	if i < 0 || i >= len(c.draft.Media) {
		return nil
	}
	if r, ok := c.deps.Previews.(interface{ Release(string) }); ok && c.previews[i] != "" {
		r.Release(c.previews[i])
	}
	c.draft.Media = append(c.draft.Media[:i], c.draft.Media[i+1:]...)
	c.previews = append(c.previews[:i], c.previews[i+1:]...)
	return nil
}

// UploadAllPending uploads every slot of draft that has a file but no URL
// and returns a copy with the URLs filled in at their original indices.
// Slots that already have a URL are never uploaded again. Any failed
// upload fails the whole call.
func (c *Composer) UploadAllPending(ctx context.Context, draft *models.Draft) (*models.Draft, error) {
	if len(draft.PendingUploads()) == 0 {
		return draft.Clone(), nil
	}
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	return c.uploadAll(ctx, token, draft)
}

func (c *Composer) uploadAll(ctx context.Context, token string, draft *models.Draft) (*models.Draft, error) {
	out := draft.Clone()
	pending := out.PendingUploads()
	if len(pending) == 0 {
		return out, nil
	}

	c.setUploading(true)
	defer c.setUploading(false)
	c.deps.Notifier.Notify(notify.LevelInfo, "Uploading media files...")

	span, ctx := observability.StartComposerSpan(ctx, "upload", string(out.PostType),
		attribute.Int("composer.pending_uploads", len(pending)),
	)
	defer span.End()
	observability.LogAsyncOperationStart(ctx, "composer.upload", map[string]interface{}{"pending": len(pending)})

	urls := make([]string, len(out.Media))
	var g errgroup.Group
	g.SetLimit(c.deps.UploadConcurrency)
	for _, i := range pending {
		file := *out.Media[i].File
		g.Go(func() error {
			url, err := c.deps.Uploader.UploadFile(ctx, token, file)
			c.logger().LogUpload(ctx, i, file.Name, err)
			if err != nil {
				observability.ComposerUploads.WithLabelValues("error").Inc()
				return fmt.Errorf("upload slot %d (%s): %w", i, file.Name, err)
			}
			observability.ComposerUploads.WithLabelValues("ok").Inc()
			urls[i] = url
			return nil
		})
	}
	err := g.Wait()

	for _, i := range pending {
		if urls[i] != "" {
			out.Media[i].URL = urls[i]
		}
	}
	c.keepUploaded(out)

	if err != nil {
		span.SetError(err, models.CodeUploadFailed)
		observability.LogAsyncOperationError(ctx, "composer.upload", err, nil)
		uploadErr := models.NewUploadError(err)
		c.deps.Notifier.Notify(notify.LevelError, uploadErr.Message)
		return nil, uploadErr
	}
	observability.LogAsyncOperationEnd(ctx, "composer.upload", map[string]interface{}{"uploaded": len(pending)})
	return out, nil
}

// keepUploaded copies URLs from uploaded back into the live draft for
// slots still holding the same file, so a retry does not re-upload them.
func (c *Composer) keepUploaded(uploaded *models.Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.draft == nil {
		return
	}
	for i := range c.draft.Media {
		if i >= len(uploaded.Media) {
			break
		}
		live, done := c.draft.Media[i], uploaded.Media[i]
		if live.File != nil && live.File == done.File && live.URL == "" && done.URL != "" {
			c.draft.Media[i].URL = done.URL
		}
	}
}

func (c *Composer) setUploading(v bool) {
	c.mu.Lock()
	c.uploading = v
	c.mu.Unlock()
}

func (c *Composer) logger() *observability.ComposerLogger {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.log == nil {
		c.log = observability.NewComposerLogger(string(c.postType))
	}
	return c.log
}

func (c *Composer) token(ctx context.Context) (string, error) {
	var token string
	var err error
	if c.deps.Tokens != nil {
		token, err = c.deps.Tokens.Token(ctx)
	}
	if err != nil || token == "" {
		c.deps.Notifier.Notify(notify.LevelError, "Authentication failed. Please log in again.")
		return "", models.NewUnauthorizedError("Authentication failed. Please log in again.")
	}
	return token, nil
}

// Submit uploads pending media, assembles the payload and creates the
// post. A second call while one is in flight returns ErrSubmitInFlight
// without side effects. On success the composer closes and OnCreated
// receives the post; on failure the draft is kept for a retry.
func (c *Composer) Submit(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	c.submitting = true
	session := c.session
	postType := c.postType
	draft := c.draft.Clone()
	log := c.log
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	ctx = observability.EnsureCorrelationID(ctx)
	span, ctx := observability.StartComposerSpan(ctx, "submit", string(postType))
	defer span.End()

	res, err := c.submit(ctx, draft)
	if err != nil {
		span.SetError(err, models.ErrorCode(err))
		log.LogSubmit(ctx, "", false, err)
		observability.ComposerSubmissions.WithLabelValues(string(postType), submitResult(err)).Inc()
		if models.ErrorCode(err) != models.CodeUnauthorized {
			c.deps.Notifier.Notify(notify.LevelError, "Failed to create post: "+failureMessage(err))
		}
		return nil, err
	}

	observability.ComposerSubmissions.WithLabelValues(string(postType), "ok").Inc()
	if res.Synthesized {
		observability.ComposerFallbackPosts.Inc()
		malformed := models.NewMalformedResponseError("success response carried no post")
		span.AddAttributes(
			attribute.Bool("composer.synthesized", true),
			attribute.String("error.code", malformed.Code),
		)
		observability.GlobalLogger.WarnContext(ctx, malformed.Message,
			slog.String("code", malformed.Code),
			slog.String("temp_id", res.Post.ID),
		)
	}
	log.LogSubmit(ctx, res.Post.ID, res.Synthesized, nil)
	c.deps.Notifier.Notify(notify.LevelSuccess, "Post created successfully!")

	c.mu.Lock()
	if c.session == session {
		c.resetLocked()
	}
	c.mu.Unlock()

	if c.deps.OnCreated != nil {
		c.deps.OnCreated(res.Post)
	}
	return res, nil
}

func (c *Composer) submit(ctx context.Context, draft *models.Draft) (*Result, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	uploaded, err := c.uploadAll(ctx, token, draft)
	if err != nil {
		return nil, err
	}

	c.deps.Notifier.Notify(notify.LevelInfo, "Processing your post...")
	payload := BuildPayload(uploaded)
	if err := validation.CheckPayload(payload); err != nil {
		return nil, err
	}

	env, err := c.deps.Posts.CreatePost(ctx, token, payload)
	if err != nil {
		return nil, models.NewSubmissionError(api.ServerMessage(err), err)
	}
	return ResolveCreatedPost(env, payload, c.deps.Now())
}

func submitResult(err error) string {
	switch models.ErrorCode(err) {
	case models.CodeUnauthorized:
		return "unauthorized"
	case models.CodeUploadFailed:
		return "upload_failed"
	case models.CodeSubmissionFailed:
		return "rejected"
	default:
		return "error"
	}
}

// failureMessage prefers the server's message, then the AppError's
// user-facing text.
func failureMessage(err error) string {
	if msg := api.ServerMessage(err); msg != "" {
		return msg
	}
	return models.UserMessage(err)
}
