// Command compose authors one post through the composer and submits it
// to the configured backend. It prints the created post as JSON and exits
// non-zero on any failure.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adda/internal/api"
	"adda/internal/auth"
	"adda/internal/composer"
	"adda/internal/config"
	"adda/internal/models"
	"adda/internal/notify"
	"adda/internal/observability"
	"adda/internal/preview"
	"adda/internal/rewards"
	"adda/internal/service"
)

type fileList []string

func (f *fileList) String() string     { return strings.Join(*f, ",") }
func (f *fileList) Set(v string) error { *f = append(*f, v); return nil }

type options struct {
	postType    string
	title       string
	content     string
	location    string
	tags        string
	visibility  string
	media       fileList
	captions    string
	articleBody string
	startDate   string
	endDate     string
	venue       string
	description string
	quick       bool
	devUser     string
}

func main() {
	var opts options
	flag.StringVar(&opts.postType, "type", "text", "Post type: text, photo, video, article, event")
	flag.StringVar(&opts.title, "title", "", "Post title")
	flag.StringVar(&opts.content, "content", "", "Post text content")
	flag.StringVar(&opts.location, "location", "", "Location")
	flag.StringVar(&opts.tags, "tags", "", "Comma-separated tags")
	flag.StringVar(&opts.visibility, "visibility", "public", "Visibility: public, friends, private")
	flag.Var(&opts.media, "media", "Media file to attach (repeatable)")
	flag.StringVar(&opts.captions, "captions", "", "Comma-separated captions, one per -media file")
	flag.StringVar(&opts.articleBody, "article-body", "", "Article body")
	flag.StringVar(&opts.startDate, "start", "", "Event start date (YYYY-MM-DD)")
	flag.StringVar(&opts.endDate, "end", "", "Event end date (YYYY-MM-DD), defaults to -start")
	flag.StringVar(&opts.venue, "venue", "", "Event venue")
	flag.StringVar(&opts.description, "description", "", "Event description")
	flag.BoolVar(&opts.quick, "quick", false, "Share -content as a quick text post")
	flag.StringVar(&opts.devUser, "dev-user", "", "Mint a dev-server token for this user when API_TOKEN is unset")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "compose:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return err
	}
	observability.SetupLogging(cfg.LogLevel)

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "adda-compose",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}()

	rewards.Install(rewards.ActionsFunc(func(ctx context.Context, event rewards.EventType, ref string, points int) {
		observability.GlobalLogger.InfoContext(ctx, "reward triggered",
			slog.String("event", string(event)),
			slog.String("reference_id", ref),
			slog.Int("points", points),
		)
	}))

	var tokens auth.TokenProvider = auth.Static(cfg.APIToken)
	if cfg.APIToken == "" && opts.devUser != "" {
		tokens = auth.NewDevIssuer(cfg.DevJWTSecret, opts.devUser, opts.devUser, time.Hour)
	}
	client := api.NewClient(cfg.APIBaseURL, nil, cfg.RequestTimeout())
	notifier := notify.NewWriterNotifier(os.Stderr)
	ctx := observability.EnsureCorrelationID(context.Background())

	var post *models.CreatedPost
	if opts.quick {
		res, err := service.NewFeedService(client, tokens, notifier, nil).ShareText(ctx, opts.content)
		if err != nil {
			return err
		}
		post = res.Post
	} else {
		post, err = compose(ctx, cfg, opts, tokens, client, notifier)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(post)
}

func compose(ctx context.Context, cfg *config.Config, opts options, tokens auth.TokenProvider, client *api.Client, notifier notify.Notifier) (*models.CreatedPost, error) {
	postType, err := models.ParsePostType(opts.postType)
	if err != nil {
		return nil, err
	}

	previews := preview.NewStore()
	c := composer.New(composer.Deps{
		Tokens:            tokens,
		Uploader:          client,
		Posts:             client,
		Notifier:          notifier,
		Previews:          previews,
		UploadConcurrency: cfg.UploadConcurrency,
	})
	if err := c.Open(postType); err != nil {
		return nil, err
	}
	defer c.Close()

	if err := c.Update(func(d *models.Draft) {
		d.Title = opts.title
		d.Content = opts.content
		d.Location = opts.location
		d.Tags = splitList(opts.tags)
		d.Visibility = models.Visibility(opts.visibility)
		d.ArticleBody = opts.articleBody
		d.EventStartDate = opts.startDate
		d.EventEndDate = opts.endDate
		d.Venue = opts.venue
		d.Description = opts.description
	}); err != nil {
		return nil, err
	}

	captions := strings.Split(opts.captions, ",")
	for i, path := range opts.media {
		f, err := readMedia(path)
		if err != nil {
			return nil, err
		}
		if err := c.StageMedia(f, i); err != nil {
			return nil, err
		}
		if i < len(captions) {
			if err := c.SetCaption(i, strings.TrimSpace(captions[i])); err != nil {
				return nil, err
			}
		}
	}

	for !c.CanSubmit() {
		before := c.Tab()
		if _, err := c.Next(ctx); err != nil {
			return nil, err
		}
		if c.Tab() == before {
			return nil, errors.New("composer cannot reach its submit tab")
		}
	}

	res, err := c.Submit(ctx)
	if err != nil {
		return nil, err
	}
	if res.Synthesized {
		observability.GlobalLogger.WarnContext(ctx, "backend returned no post; printed post is a local placeholder",
			slog.String("post_id", res.Post.ID),
		)
	}
	return res.Post, nil
}

func readMedia(path string) (*models.MediaFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read media %s: %w", path, err)
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &models.MediaFile{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
