package controllers

import (
	"context"
	"errors"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/IdleArchive/cashduezy-sub000/app/models"
	"github.com/IdleArchive/cashduezy-sub000/app/repository"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/blog"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/storage"
	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/usercontext"
)

const blogPageSize = 10

// ViewCounter buffers blog view counts.
type ViewCounter interface {
	AddBlogView(ctx context.Context, postID uint64) error
}

// BlogController serves the public blog and the admin JSON API behind it.
type BlogController struct {
	posts     repository.BlogPostRepository
	feeds     *blog.Feeds
	localizer *blog.Localizer
	covers    *storage.CoverUploader
	views     ViewCounter
	validate  *validator.Validate
	now       func() time.Time
}

func NewBlogController(posts repository.BlogPostRepository, feeds *blog.Feeds, localizer *blog.Localizer, covers *storage.CoverUploader, views ViewCounter) *BlogController {
	return &BlogController{
		posts:     posts,
		feeds:     feeds,
		localizer: localizer,
		covers:    covers,
		views:     views,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// blogPostInput is the JSON body of the admin endpoints. Nil fields are not
// touched on update.
type blogPostInput struct {
	Title         *string `json:"title"`
	Slug          *string `json:"slug"`
	Excerpt       *string `json:"excerpt"`
	Content       *string `json:"content"`
	CoverImageURL *string `json:"cover_image_url"`
	IsPublished   *bool   `json:"is_published"`
	Locale        *string `json:"locale"`
}

func (in blogPostInput) empty() bool {
	return in.Title == nil && in.Slug == nil && in.Excerpt == nil && in.Content == nil &&
		in.CoverImageURL == nil && in.IsPublished == nil && in.Locale == nil
}

func jsonError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// HandleCreatePost answers POST /api/blog.
func (bc *BlogController) HandleCreatePost(c *fiber.Ctx) error {
	var in blogPostInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" || in.Content == nil || strings.TrimSpace(*in.Content) == "" {
		return jsonError(c, fiber.StatusBadRequest, "title and content are required")
	}

	base := *in.Title
	if in.Slug != nil && strings.TrimSpace(*in.Slug) != "" {
		base = *in.Slug
	}
	slug, err := blog.UniqueSlug(base, bc.posts.SlugExists)
	if err != nil {
		return bc.slugError(c, err)
	}

	post := &models.BlogPost{Slug: slug, Locale: "en", AuthorID: usercontext.GetUserID(c)}
	bc.applyInput(post, in)
	if err := bc.validate.Struct(post); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid post: "+err.Error())
	}
	if err := bc.posts.Create(post); err != nil {
		log.Errorf("[Blog] create post: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to create post")
	}

	bc.afterWrite(c, post)
	return c.JSON(fiber.Map{"success": true, "post": post})
}

// HandleUpdatePost answers PUT /api/blog/:id.
func (bc *BlogController) HandleUpdatePost(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return jsonError(c, fiber.StatusBadRequest, "Invalid post id")
	}
	var in blogPostInput
	if err := c.BodyParser(&in); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if in.empty() {
		return jsonError(c, fiber.StatusBadRequest, "Nothing to update")
	}

	post, err := bc.posts.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "Post not found")
	}
	if err != nil {
		log.Errorf("[Blog] load post %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load post")
	}

	if in.Slug != nil && blog.NormalizeSlug(*in.Slug) != post.Slug {
		slug, err := blog.UniqueSlug(*in.Slug, func(s string) (bool, error) {
			return bc.posts.SlugExistsExceptID(s, id)
		})
		if err != nil {
			return bc.slugError(c, err)
		}
		post.Slug = slug
	}
	bc.applyInput(post, in)
	if err := bc.validate.Struct(post); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid post: "+err.Error())
	}
	if err := bc.posts.Update(post); err != nil {
		log.Errorf("[Blog] update post %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to update post")
	}

	bc.afterWrite(c, post)
	return c.JSON(fiber.Map{"success": true, "post": post})
}

// HandleDeletePost answers DELETE /api/blog/:id with the removed post.
func (bc *BlogController) HandleDeletePost(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return jsonError(c, fiber.StatusBadRequest, "Invalid post id")
	}
	post, err := bc.posts.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return jsonError(c, fiber.StatusNotFound, "Post not found")
	}
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load post")
	}
	if err := bc.posts.Delete(id); err != nil {
		log.Errorf("[Blog] delete post %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to delete post")
	}
	bc.invalidateFeeds(c)
	return c.JSON(fiber.Map{"success": true, "post": post})
}

// HandleUploadCover answers POST /api/blog/cover with the public image URL.
func (bc *BlogController) HandleUploadCover(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "file could not be read")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "file could not be read")
	}

	url, err := bc.covers.Upload(c.UserContext(), data)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"success": true, "url": url})
	case errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrTooLarge):
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotConfigured):
		return jsonError(c, fiber.StatusInternalServerError, "Image storage is not configured")
	default:
		log.Errorf("[Blog] cover upload: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to store image")
	}
}

func (bc *BlogController) applyInput(post *models.BlogPost, in blogPostInput) {
	if in.Title != nil {
		post.Title = strings.TrimSpace(*in.Title)
	}
	if in.Excerpt != nil {
		post.Excerpt = strings.TrimSpace(*in.Excerpt)
	}
	if in.Content != nil {
		post.Content = *in.Content
	}
	if in.CoverImageURL != nil {
		post.CoverImageURL = strings.TrimSpace(*in.CoverImageURL)
	}
	if in.Locale != nil && strings.TrimSpace(*in.Locale) != "" {
		post.Locale = strings.ToLower(strings.TrimSpace(*in.Locale))
	}
	if in.IsPublished != nil {
		if *in.IsPublished {
			post.Publish(bc.now())
		} else {
			post.IsPublished = false
		}
	}
}

func (bc *BlogController) slugError(c *fiber.Ctx, err error) error {
	if errors.Is(err, blog.ErrInvalidSlug) {
		return jsonError(c, fiber.StatusBadRequest, "slug must contain letters or digits")
	}
	log.Errorf("[Blog] slug: %v", err)
	return jsonError(c, fiber.StatusInternalServerError, "Failed to generate slug")
}

// afterWrite runs the side effects of a create or update. Failures are logged.
func (bc *BlogController) afterWrite(c *fiber.Ctx, post *models.BlogPost) {
	bc.invalidateFeeds(c)
	if n, err := bc.localizer.Enqueue(c.UserContext(), post); err != nil {
		log.Errorf("[Blog] translation fan-out for post %d: %v", post.ID, err)
	} else if n > 0 {
		log.Infof("[Blog] queued %d translations for post %d", n, post.ID)
	}
}

func (bc *BlogController) invalidateFeeds(c *fiber.Ctx) {
	if bc.feeds == nil {
		return
	}
	if err := bc.feeds.Invalidate(c.UserContext()); err != nil {
		log.Warnf("[Blog] feed cache invalidation: %v", err)
	}
}

// HandleIndex renders GET /blog?page=&lang=.
func (bc *BlogController) HandleIndex(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	lang := strings.ToLower(c.Query("lang"))

	posts, err := bc.posts.GetPublished((page-1)*blogPageSize, blogPageSize)
	if err != nil {
		log.Errorf("[Blog] list posts: %v", err)
		return renderError(c, fiber.StatusInternalServerError, "The blog is unavailable right now")
	}
	total, err := bc.posts.CountPublished()
	if err != nil {
		total = 0
	}

	list := make([]models.BlogPost, 0, len(posts))
	for _, p := range posts {
		lp := p.Localized(lang)
		lp.Excerpt = blog.Excerpt(lp.Excerpt, lp.Content, 240)
		list = append(list, lp)
	}
	return render(c, "blog/index", "Blog", fiber.Map{
		"Posts":    list,
		"Lang":     lang,
		"Page":     page,
		"PrevPage": page - 1,
		"NextPage": page + 1,
		"HasNext":  int64(page*blogPageSize) < total,
	})
}

// HandleShow renders GET /blog/:slug?lang=, falling back to the source language.
func (bc *BlogController) HandleShow(c *fiber.Ctx) error {
	post, err := bc.posts.GetBySlug(c.Params("slug"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return renderError(c, fiber.StatusNotFound, "Post not found")
	}
	if err != nil {
		log.Errorf("[Blog] load post %q: %v", c.Params("slug"), err)
		return renderError(c, fiber.StatusInternalServerError, "The blog is unavailable right now")
	}

	if bc.views != nil {
		if err := bc.views.AddBlogView(c.UserContext(), post.ID); err != nil {
			log.Warnf("[Blog] count view of post %d: %v", post.ID, err)
		}
	}

	locales := []string{post.Locale}
	for _, tr := range post.Translations {
		locales = append(locales, tr.Locale)
	}
	lang := strings.ToLower(c.Query("lang"))
	shown := post.Localized(lang)
	return render(c, "blog/show", shown.Title, fiber.Map{
		"Post":    shown,
		"Content": template.HTML(blog.RenderContent(shown.Content)),
		"Lang":    shown.Locale,
		"Locales": locales,
	})
}

func (bc *BlogController) HandleRSS(c *fiber.Ctx) error {
	body, err := bc.feeds.RSS(c.UserContext())
	if err != nil {
		log.Errorf("[Blog] rss: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("feed unavailable")
	}
	c.Set(fiber.HeaderContentType, "application/rss+xml; charset=utf-8")
	return c.SendString(body)
}

func (bc *BlogController) HandleSitemap(c *fiber.Ctx) error {
	body, err := bc.feeds.Sitemap(c.UserContext())
	if err != nil {
		log.Errorf("[Blog] sitemap: %v", err)
		return c.Status(fiber.StatusInternalServerError).SendString("sitemap unavailable")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	return c.SendString(body)
}
