package models

import (
	"net/url"
	"strings"
)

// RecordKind selects the extraction schema applied to a rendered page.
type RecordKind string

const (
	KindSearchProfile   RecordKind = "search_profile"
	KindJobListing      RecordKind = "job_listing"
	KindDetailedProfile RecordKind = "detailed_profile"
)

// Field names shared by the extraction schemas and the CSV sink.
const (
	FieldName        = "name"
	FieldDesignation = "designation"
	FieldCompany     = "company"
	FieldConnections = "connections"
	FieldURL         = "url"
	FieldDescription = "description"
	FieldLocation    = "location"
	FieldInsight     = "insight"
	FieldEasyApply   = "easy_apply"
	FieldQuery       = "search_query"
)

// NotSpecified is the documented default for optional fields that the
// source page does not carry.
const NotSpecified = "Not specified"

// Record is one extracted entity. Key is the canonicalized primary link
// used for deduplication; it is deterministic for a given source element.
// Records are never mutated after creation.
type Record struct {
	Kind   RecordKind
	Key    string
	Fields map[string]string
}

// Get returns the named field or NotSpecified when absent.
func (r Record) Get(name string) string {
	if v, ok := r.Fields[name]; ok && v != "" {
		return v
	}
	return NotSpecified
}

// CanonicalKey strips the query string and fragment from a record link so
// the same profile reached via different tracking parameters collapses to
// one identity. Returns "" when the link cannot be parsed or is empty.
func CanonicalKey(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		// Unparseable links still dedup on the raw prefix before any query.
		if i := strings.IndexByte(link, '?'); i >= 0 {
			return link[:i]
		}
		return link
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
