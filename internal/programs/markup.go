package programs

import (
	stdErrors "errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/document"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/frontmatter"
)

// DefaultMarkupTemplate wraps rendered markup documents.
const DefaultMarkupTemplate = "markup_display.html"

// Front matter keys with special meaning.
const (
	KeyDestinationFilename = "destination_filename"
	KeyTitle               = "title"
	KeyPubDate             = "pub_date"
	KeySummary             = "summary"
)

var pubDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Markup renders a markup document with front matter into a template.
//
// The rendered fragments are computed at most once per program and shared
// by the template body, the template context and the summary fallback.
type Markup struct {
	Templated
	fragments *document.Fragments
}

// NewMarkup creates a Markup program.
func NewMarkup(doc *document.Context) *Markup {
	m := &Markup{Templated: Templated{Base: NewBase(doc), defaultTemplate: DefaultMarkupTemplate}}
	m.contents = m.renderContents
	m.extra = m.templateExtra
	return m
}

// Prepare reads the front matter block and the title block that follows it.
// Front matter is layered onto the document config; the recognized keys
// override the destination, title, publication date and summary.
func (p *Markup) Prepare() error {
	doc, err := p.Document()
	if err != nil {
		return err
	}
	parts, err := p.split(doc)
	if err != nil {
		return err
	}

	title := ""
	if titleBlock, _ := frontmatter.LeadingBlock(frontmatter.TrimLeadingBlankLines(parts.Body)); len(titleBlock) > 0 {
		frags, err := doc.RenderMarkup(string(titleBlock))
		if err != nil {
			return err
		}
		title = frags.Title
	}

	value, err := frontmatter.ParseYAML(parts.Header)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid front matter").
			WithSource(doc.SourceFilename).
			Build()
	}
	if value != nil {
		cfg, err := doc.Config.AddFromMapping(value, doc.SourceFilename)
		if err != nil {
			return err
		}
		doc.Config = cfg

		header, err := config.Empty().AddFromMapping(value, doc.SourceFilename)
		if err != nil {
			return err
		}
		if err := applyHeader(doc, header, &title); err != nil {
			return err
		}
	}

	if title != "" {
		doc.Title = title
	}
	return nil
}

func applyHeader(doc *document.Context, header *config.Config, title *string) error {
	if header.Has(KeyDestinationFilename) {
		doc.DestinationFilename = strings.TrimPrefix(header.String(KeyDestinationFilename, ""), "/")
	}
	if header.Has(KeyTitle) && header.Get(KeyTitle, nil) != nil {
		*title = header.String(KeyTitle, "")
	}
	if raw := header.Get(KeyPubDate, nil); raw != nil {
		pub, err := ParsePubDate(raw)
		if err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid pub_date").
				WithSource(doc.SourceFilename).
				Build()
		}
		doc.PubDate = pub
	}
	if header.Has(KeySummary) && header.Get(KeySummary, nil) != nil {
		doc.Summary = header.String(KeySummary, "")
	}
	return nil
}

// ParsePubDate accepts a timestamp or a date. A date without a time of day
// becomes midnight UTC.
func ParsePubDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if d, err := time.Parse(time.DateOnly, s); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		for _, layout := range pubDateLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %v", v)
	}
}

// Fragments renders the document body once and returns the cached result
// on every later call.
func (p *Markup) Fragments() (*document.Fragments, error) {
	if p.fragments != nil {
		return p.fragments, nil
	}
	doc, err := p.Document()
	if err != nil {
		return nil, err
	}
	parts, err := p.split(doc)
	if err != nil {
		return nil, err
	}
	frags, err := doc.RenderMarkup(string(parts.Body))
	if err != nil {
		return nil, err
	}
	p.fragments = frags
	return frags, nil
}

func (p *Markup) renderContents() (template.HTML, error) {
	frags, err := p.Fragments()
	if err != nil {
		return "", err
	}
	return frags.HTML, nil
}

func (p *Markup) templateExtra() (map[string]any, error) {
	frags, err := p.Fragments()
	if err != nil {
		return nil, err
	}
	if doc := p.doc; doc.Summary == "" && frags.Summary != "" {
		doc.Summary = frags.Summary
	}
	return map[string]any{"markup": frags}, nil
}

func (p *Markup) split(doc *document.Context) (frontmatter.Parts, error) {
	data, err := doc.ReadSource()
	if err != nil {
		return frontmatter.Parts{}, err
	}
	parts, err := frontmatter.Split(data)
	if err != nil {
		category := errors.CategoryInternal
		if stdErrors.Is(err, frontmatter.ErrMissingClosingDelimiter) {
			category = errors.CategoryConfig
		}
		return frontmatter.Parts{}, errors.WrapError(err, category, "cannot read front matter").
			WithSource(doc.SourceFilename).
			Build()
	}
	return parts, nil
}
