package blog

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// tagClasses decorates bare article markup for the site stylesheet.
var tagClasses = []struct {
	re    *regexp.Regexp
	class string
}{
	{regexp.MustCompile(`<h2(\s[^>]*)?>`), "text-3xl font-bold mb-3 mt-5"},
	{regexp.MustCompile(`<h3(\s[^>]*)?>`), "text-2xl font-bold mb-2 mt-4"},
	{regexp.MustCompile(`<p(\s[^>]*)?>`), "mb-4 leading-relaxed"},
	{regexp.MustCompile(`<ul(\s[^>]*)?>`), "list-disc list-inside mb-4 ml-4"},
	{regexp.MustCompile(`<ol(\s[^>]*)?>`), "list-decimal list-inside mb-4 ml-4"},
	{regexp.MustCompile(`<blockquote(\s[^>]*)?>`), "border-l-4 border-primary pl-4 italic mb-4"},
	{regexp.MustCompile(`<a(\s[^>]*)?>`), "link link-primary"},
}

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style|iframe)[^>]*>.*?</(script|style|iframe)>`)
	eventRe  = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	jsHrefRe = regexp.MustCompile(`(?i)(href|src)\s*=\s*("|')\s*javascript:[^"']*("|')`)
	tagRe    = regexp.MustCompile(`<[^>]*>`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// RenderContent strips active content from stored HTML and adds the display
// classes to elements that carry none.
func RenderContent(content string) string {
	out := scriptRe.ReplaceAllString(content, "")
	out = eventRe.ReplaceAllString(out, "")
	out = jsHrefRe.ReplaceAllString(out, `$1="#"`)

	for _, tc := range tagClasses {
		out = tc.re.ReplaceAllStringFunc(out, func(tag string) string {
			if strings.Contains(tag, "class=") {
				return tag
			}
			return strings.Replace(tag, ">", ` class="`+tc.class+`">`, 1)
		})
	}
	return out
}

// PlainText reduces HTML to collapsed text.
func PlainText(content string) string {
	text := tagRe.ReplaceAllString(scriptRe.ReplaceAllString(content, ""), " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(html.UnescapeString(text), " "))
}

// Excerpt returns the explicit excerpt or the first max runes of the content,
// cut at a word boundary.
func Excerpt(explicit, content string, max int) string {
	if e := strings.TrimSpace(explicit); e != "" {
		return e
	}
	text := PlainText(content)
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)[:max]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
