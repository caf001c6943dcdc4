package views

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// DateLayout is the publication date layout ("15 mar 2021").
const DateLayout = "02 Jan 2006"

// FormatDate formats t for locale, or returns "" for a post without a
// publication date.
func FormatDate(t *time.Time, locale string) string {
	if t == nil {
		return ""
	}
	return monday.Format(*t, DateLayout, monday.Locale(locale))
}

// BuildURL joins path segments onto a base URL, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PostPath is the site-relative URL of a post page.
func PostPath(slug string) string {
	return "/post/" + url.PathEscape(slug) + "/"
}

type labels struct {
	LoadMore    string
	Retry       string
	LoadFailed  string
	Minutes     string // appended to the reading time
	NotFound    string
	ServerError string
	Back        string
	Posts       string
}

var localeLabels = map[string]labels{
	"pt_BR": {
		LoadMore:    "Carregar mais posts",
		Retry:       "Tentar novamente",
		LoadFailed:  "Não foi possível carregar mais posts.",
		Minutes:     "min",
		NotFound:    "Página não encontrada",
		ServerError: "Algo deu errado. Tente novamente mais tarde.",
		Back:        "Voltar para o início",
		Posts:       "Posts",
	},
	"en_US": {
		LoadMore:    "Load more posts",
		Retry:       "Try again",
		LoadFailed:  "Could not load more posts.",
		Minutes:     "min",
		NotFound:    "Page not found",
		ServerError: "Something went wrong. Please try again later.",
		Back:        "Back to home",
		Posts:       "Posts",
	},
}

func labelsFor(locale string) labels {
	if l, ok := localeLabels[locale]; ok {
		return l
	}
	return localeLabels["pt_BR"]
}

// htmlLang maps a monday locale to an HTML lang attribute.
func htmlLang(locale string) string {
	if locale == "" {
		return "pt-BR"
	}
	return strings.ReplaceAll(locale, "_", "-")
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block for the listing.
func WebsiteJsonLD(site Site) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     site.Name,
		"url":      BuildURL(site.URL),
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	if site.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  site.Author,
		}
	}
	return marshalJsonLD(data)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
func BlogPostingJsonLD(site Site, page PostPage) string {
	p := page.Post
	postURL := BuildURL(site.URL, "post", p.Slug)
	data := map[string]interface{}{
		"@context":     "https://schema.org",
		"@type":        "BlogPosting",
		"headline":     p.Title,
		"description":  p.Subtitle,
		"url":          postURL,
		"wordCount":    page.WordCount,
		"timeRequired": fmt.Sprintf("PT%dM", page.ReadingMinutes),
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  site.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if p.PublishedAt != nil {
		data["datePublished"] = p.PublishedAt.UTC().Format(time.RFC3339)
	}
	if p.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  p.Author,
		}
	}
	if p.Banner != "" {
		data["image"] = p.Banner
	}
	return marshalJsonLD(data)
}

// marshalJsonLD encodes data for embedding in a <script> element; "<" is
// escaped by encoding/json so the script cannot be closed early.
func marshalJsonLD(data map[string]interface{}) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
