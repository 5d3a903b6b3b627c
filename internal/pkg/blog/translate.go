package blog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/env"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/jobqueue"
)

const defaultDeepLURL = "https://api-free.deepl.com/v2/translate"

var ErrTranslationDisabled = errors.New("blog: translation is not configured")

// TranslateConfig controls the localization fan-out.
type TranslateConfig struct {
	APIKey  string
	APIURL  string
	Locales []string
	Timeout time.Duration
}

func TranslateConfigFromEnv() TranslateConfig {
	return TranslateConfig{
		APIKey:  env.GetEnv("DEEPL_API_KEY", ""),
		APIURL:  env.GetEnv("DEEPL_API_URL", defaultDeepLURL),
		Locales: env.GetList("BLOG_LOCALES"),
		Timeout: env.GetDuration("DEEPL_TIMEOUT", 15*time.Second),
	}
}

func (c TranslateConfig) Enabled() bool {
	return c.APIKey != "" && len(c.Locales) > 0
}

// Translator turns texts from one language into another, order preserved.
type Translator interface {
	Translate(ctx context.Context, texts []string, source, target string) ([]string, error)
}

// DeepL talks to the DeepL v2 HTTP API.
type DeepL struct {
	apiKey string
	url    string
	client *http.Client
}

func NewDeepL(cfg TranslateConfig) *DeepL {
	url := cfg.APIURL
	if url == "" {
		url = defaultDeepLURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DeepL{apiKey: cfg.APIKey, url: url, client: &http.Client{Timeout: timeout}}
}

type deeplRequest struct {
	Text        []string `json:"text"`
	SourceLang  string   `json:"source_lang,omitempty"`
	TargetLang  string   `json:"target_lang"`
	TagHandling string   `json:"tag_handling"`
}

type deeplResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

func (d *DeepL) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	if d.apiKey == "" {
		return nil, ErrTranslationDisabled
	}
	body, err := json.Marshal(deeplRequest{
		Text:        texts,
		SourceLang:  strings.ToUpper(source),
		TargetLang:  strings.ToUpper(target),
		TagHandling: "html",
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepl request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("deepl returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var out deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode deepl response: %w", err)
	}
	if len(out.Translations) != len(texts) {
		return nil, fmt.Errorf("deepl returned %d translations for %d texts", len(out.Translations), len(texts))
	}
	res := make([]string, len(out.Translations))
	for i, t := range out.Translations {
		res[i] = t.Text
	}
	return res, nil
}

// Localizer enqueues one translation job per configured locale.
type Localizer struct {
	queue   jobqueue.Enqueuer
	locales []string
	enabled bool
}

func NewLocalizer(cfg TranslateConfig, queue jobqueue.Enqueuer) *Localizer {
	return &Localizer{queue: queue, locales: cfg.Locales, enabled: cfg.Enabled()}
}

// Enqueue fans out translation jobs for a published post and returns how many
// were queued.
func (l *Localizer) Enqueue(ctx context.Context, post *models.BlogPost) (int, error) {
	if l == nil || !l.enabled || post == nil || !post.IsPublished {
		return 0, nil
	}
	n := 0
	for _, locale := range l.locales {
		if strings.EqualFold(locale, post.Locale) {
			continue
		}
		p := jobqueue.BlogTranslateJobPayload{PostID: post.ID, Locale: strings.ToLower(locale)}
		if _, err := l.queue.EnqueueJob(ctx, jobqueue.JobTypeBlogTranslate, p.ToMap()); err != nil {
			return n, fmt.Errorf("enqueue translation %s: %w", locale, err)
		}
		n++
	}
	return n, nil
}

// PostStore is what the translation job needs from the blog repository.
type PostStore interface {
	GetByID(id uint64) (*models.BlogPost, error)
	UpsertTranslation(tr *models.BlogPostTranslation) error
}

// TranslateHandler executes blog_translate jobs.
func TranslateHandler(posts PostStore, tr Translator) jobqueue.Handler {
	return func(ctx context.Context, job *jobqueue.Job) error {
		p, err := jobqueue.BlogTranslateJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("decode translate payload: %w", err)
		}
		post, err := posts.GetByID(p.PostID)
		if err != nil {
			return fmt.Errorf("load post %d: %w", p.PostID, err)
		}

		texts := []string{post.Title, post.Excerpt, post.Content}
		out, err := tr.Translate(ctx, texts, post.Locale, p.Locale)
		if err != nil {
			return err
		}
		if err := posts.UpsertTranslation(&models.BlogPostTranslation{
			PostID:  post.ID,
			Locale:  p.Locale,
			Title:   out[0],
			Excerpt: out[1],
			Content: out[2],
		}); err != nil {
			return fmt.Errorf("store translation: %w", err)
		}
		log.Infof("[Blog] translated post %d into %s", post.ID, p.Locale)
		return nil
	}
}
