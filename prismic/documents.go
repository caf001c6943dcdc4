package prismic

import (
	"time"

	"github.com/samber/lo"

	"github.com/eringen/spacetraveling/feed"
	"github.com/eringen/spacetraveling/richtext"
)

// prismicTime is the timestamp layout of first_publication_date.
const prismicTime = "2006-01-02T15:04:05-0700"

// document is the subset of a Prismic "posts" document we read.
type document struct {
	ID                   string  `json:"id"`
	UID                  string  `json:"uid"`
	FirstPublicationDate *string `json:"first_publication_date"`
	Data                 struct {
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
		Author   string `json:"author"`
		Banner   struct {
			URL string `json:"url"`
		} `json:"banner"`
		Content []contentGroup `json:"content"`
	} `json:"data"`
}

// contentGroup is one entry of the "content" group field.
type contentGroup struct {
	Heading string           `json:"heading"`
	Body    []richtext.Block `json:"body"`
}

func (d document) publishedAt() *time.Time {
	if d.FirstPublicationDate == nil {
		return nil
	}
	return parseTime(*d.FirstPublicationDate)
}

func parseTime(s string) *time.Time {
	for _, layout := range []string{prismicTime, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func (d document) summary() feed.PostSummary {
	return feed.PostSummary{
		ID:          d.UID,
		PublishedAt: d.publishedAt(),
		Title:       d.Data.Title,
		Subtitle:    d.Data.Subtitle,
		Author:      d.Data.Author,
	}
}

func (d document) body() feed.PostBody {
	sections := lo.Map(d.Data.Content, func(c contentGroup, _ int) feed.Section {
		return feed.Section{
			Heading:    c.Heading,
			Paragraphs: richtext.Paragraphs(c.Body),
			Blocks:     c.Body,
		}
	})
	return feed.PostBody{
		Slug:        d.UID,
		Title:       d.Data.Title,
		Subtitle:    d.Data.Subtitle,
		Author:      d.Data.Author,
		PublishedAt: d.publishedAt(),
		Banner:      d.Data.Banner.URL,
		Sections:    sections,
	}
}

func slugs(items []feed.PostSummary) []string {
	return lo.Map(items, func(p feed.PostSummary, _ int) string {
		return p.ID
	})
}
