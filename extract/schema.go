// Package extract converts rendered page fragments into structured
// records. Each record variant is a declarative schema (container
// selector, ordered field rules, identity rule) interpreted by one
// engine, so platform UI churn is a schema edit rather than new code.
package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/leadscout/leadscout/models"
)

// PostRule normalizes a raw field value after selection.
type PostRule func(string) string

// FieldRule selects and post-processes one named field.
type FieldRule struct {
	Name     string
	Selector string
	Attr     string // empty = text content
	Default  string
	Post     PostRule
}

// Schema describes one record variant.
type Schema struct {
	Kind models.RecordKind

	// Container selects each record root. Empty means the whole document
	// yields a single record.
	Container string

	// Key locates the record's primary link. An empty selector means the
	// page URL itself is the identity (detail pages).
	Key FieldRule

	Fields []FieldRule

	// Finalize derives additional fields from the selected ones.
	Finalize func(fields map[string]string)
}

// compiledField pairs a rule with its pre-compiled matcher.
type compiledField struct {
	rule    FieldRule
	matcher cascadia.Selector
}

// Engine interprets one compiled schema over rendered HTML.
type Engine struct {
	schema    Schema
	container cascadia.Selector
	key       cascadia.Selector
	fields    []compiledField
}

// NewEngine compiles the schema's selectors. Selector syntax errors are
// programming mistakes and surface immediately.
func NewEngine(schema Schema) (*Engine, error) {
	e := &Engine{schema: schema}

	var err error
	if schema.Container != "" {
		if e.container, err = cascadia.Compile(schema.Container); err != nil {
			return nil, models.NewCrawlError(models.ErrCodeInternal,
				"invalid container selector "+schema.Container, err)
		}
	}
	if schema.Key.Selector != "" {
		if e.key, err = cascadia.Compile(schema.Key.Selector); err != nil {
			return nil, models.NewCrawlError(models.ErrCodeInternal,
				"invalid key selector "+schema.Key.Selector, err)
		}
	}
	for _, rule := range schema.Fields {
		m, err := cascadia.Compile(rule.Selector)
		if err != nil {
			return nil, models.NewCrawlError(models.ErrCodeInternal,
				"invalid selector for field "+rule.Name, err)
		}
		e.fields = append(e.fields, compiledField{rule: rule, matcher: m})
	}
	return e, nil
}

// MustEngine compiles a schema and panics on selector errors. The
// built-in schemas are compiled once at startup.
func MustEngine(schema Schema) *Engine {
	e, err := NewEngine(schema)
	if err != nil {
		panic(err)
	}
	return e
}

// Kind reports the record variant this engine produces.
func (e *Engine) Kind() models.RecordKind {
	return e.schema.Kind
}

// ContainerSelector exposes the record root selector so callers can wait
// for it before extracting.
func (e *Engine) ContainerSelector() string {
	return e.schema.Container
}

// Extract parses the rendered HTML and yields zero or more records.
// Records without a resolvable identity key are dropped and counted in
// skipped so extraction completeness stays observable. Missing optional
// fields fall back to their rule's default rather than failing the
// record.
func (e *Engine) Extract(html, pageURL, query string) (records []models.Record, skipped int, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, 0, models.NewCrawlError(models.ErrCodeMalformed,
			"failed to parse rendered page", err)
	}

	roots := []*goquery.Selection{doc.Selection}
	if e.container != nil {
		roots = roots[:0]
		doc.FindMatcher(e.container).Each(func(_ int, s *goquery.Selection) {
			roots = append(roots, s)
		})
	}

	for _, root := range roots {
		key := e.resolveKey(root, pageURL)
		if key == "" {
			skipped++
			continue
		}

		fields := make(map[string]string, len(e.fields)+2)
		for _, cf := range e.fields {
			fields[cf.rule.Name] = e.fieldValue(root, cf, pageURL)
		}
		fields[models.FieldURL] = key
		if query != "" {
			fields[models.FieldQuery] = query
		}
		if e.schema.Finalize != nil {
			e.schema.Finalize(fields)
		}

		records = append(records, models.Record{
			Kind:   e.schema.Kind,
			Key:    key,
			Fields: fields,
		})
	}
	return records, skipped, nil
}

// resolveKey canonicalizes the record's primary link.
func (e *Engine) resolveKey(root *goquery.Selection, pageURL string) string {
	if e.key == nil {
		return models.CanonicalKey(pageURL)
	}
	sel := root.FindMatcher(e.key).First()
	raw, ok := sel.Attr(e.schema.Key.Attr)
	if !ok {
		return ""
	}
	return models.CanonicalKey(absoluteURL(pageURL, raw))
}

// fieldValue applies one field rule to a record root.
func (e *Engine) fieldValue(root *goquery.Selection, cf compiledField, pageURL string) string {
	sel := root.FindMatcher(cf.matcher).First()

	var raw string
	if cf.rule.Attr != "" {
		if v, ok := sel.Attr(cf.rule.Attr); ok {
			raw = absoluteURL(pageURL, v)
		}
	} else {
		raw = sel.Text()
	}

	raw = cleanText(raw)
	if cf.rule.Post != nil {
		raw = cf.rule.Post(raw)
	}
	if raw == "" {
		return cf.rule.Default
	}
	return raw
}

// absoluteURL resolves ref against base, returning ref unchanged when
// either side does not parse.
func absoluteURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil || base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// cleanText collapses whitespace runs and non-breaking spaces.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}
