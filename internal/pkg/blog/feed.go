package blog

import (
	"context"
	"encoding/xml"
	"strings"
	"time"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/cache"
)

const (
	FeedSize        = 20
	rssCacheKey     = "feed:rss"
	sitemapCacheKey = "feed:sitemap"
)

// StaticPages are listed in the sitemap ahead of the posts.
var StaticPages = []string{"/", "/pricing", "/blog", "/contact", "/login"}

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	AtomLink      atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	GUID        rssGUID `xml:"guid"`
	Description string  `xml:"description"`
	PubDate     string  `xml:"pubDate,omitempty"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

// Site describes the public site the feeds link to.
type Site struct {
	BaseURL     string
	Title       string
	Description string
	Language    string
}

func (s Site) url(path string) string {
	return strings.TrimRight(s.BaseURL, "/") + path
}

// PostURL is the canonical address of a post.
func (s Site) PostURL(p models.BlogPost) string {
	return s.url("/blog/" + p.Slug)
}

// BuildRSS renders an RSS 2.0 document for posts, newest first.
func BuildRSS(site Site, posts []models.BlogPost) ([]byte, error) {
	ch := rssChannel{
		Title:       site.Title,
		Link:        site.url("/blog"),
		Description: site.Description,
		Language:    site.Language,
		AtomLink:    atomLink{Href: site.url("/blog/rss.xml"), Rel: "self", Type: "application/rss+xml"},
		Items:       make([]rssItem, 0, len(posts)),
	}
	var latest time.Time
	for _, p := range posts {
		item := rssItem{
			Title:       p.Title,
			Link:        site.PostURL(p),
			GUID:        rssGUID{Value: site.PostURL(p), IsPermaLink: true},
			Description: Excerpt(p.Excerpt, p.Content, 280),
		}
		if p.PublishedAt != nil {
			item.PubDate = p.PublishedAt.UTC().Format(time.RFC1123Z)
			if p.PublishedAt.After(latest) {
				latest = *p.PublishedAt
			}
		}
		ch.Items = append(ch.Items, item)
	}
	if !latest.IsZero() {
		ch.LastBuildDate = latest.UTC().Format(time.RFC1123Z)
	}
	return marshal(rss{Version: "2.0", Atom: "http://www.w3.org/2005/Atom", Channel: ch})
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
}

// BuildSitemap lists the static pages followed by every published post.
func BuildSitemap(site Site, posts []models.BlogPost) ([]byte, error) {
	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, path := range StaticPages {
		set.URLs = append(set.URLs, sitemapURL{Loc: site.url(path), ChangeFreq: "weekly"})
	}
	for _, p := range posts {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        site.PostURL(p),
			LastMod:    p.UpdatedAt.UTC().Format("2006-01-02"),
			ChangeFreq: "monthly",
		})
	}
	return marshal(set)
}

func marshal(v interface{}) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// PostSource lists published posts for the feeds.
type PostSource interface {
	GetPublished(offset, limit int) ([]models.BlogPost, error)
	CountPublished() (int64, error)
}

// Feeds builds and caches the RSS feed and the sitemap.
type Feeds struct {
	site  Site
	posts PostSource
	cache *cache.Cache
	ttl   time.Duration
}

func NewFeeds(site Site, posts PostSource, c *cache.Cache, ttl time.Duration) *Feeds {
	return &Feeds{site: site, posts: posts, cache: c, ttl: ttl}
}

func (f *Feeds) RSS(ctx context.Context) (string, error) {
	return f.remember(ctx, rssCacheKey, func() ([]byte, error) {
		posts, err := f.posts.GetPublished(0, FeedSize)
		if err != nil {
			return nil, err
		}
		return BuildRSS(f.site, posts)
	})
}

func (f *Feeds) Sitemap(ctx context.Context) (string, error) {
	return f.remember(ctx, sitemapCacheKey, func() ([]byte, error) {
		total, err := f.posts.CountPublished()
		if err != nil {
			return nil, err
		}
		posts, err := f.posts.GetPublished(0, int(total))
		if err != nil {
			return nil, err
		}
		return BuildSitemap(f.site, posts)
	})
}

// Invalidate drops both cached documents after a blog write.
func (f *Feeds) Invalidate(ctx context.Context) error {
	if f.cache == nil {
		return nil
	}
	return f.cache.Delete(ctx, rssCacheKey, sitemapCacheKey)
}

func (f *Feeds) remember(ctx context.Context, key string, build func() ([]byte, error)) (string, error) {
	if f.cache == nil {
		b, err := build()
		return string(b), err
	}
	return f.cache.Remember(ctx, key, f.ttl, func() (string, error) {
		b, err := build()
		return string(b), err
	})
}
