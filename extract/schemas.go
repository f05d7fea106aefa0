package extract

import (
	"regexp"
	"strings"

	"github.com/leadscout/leadscout/models"
)

var connectionsPattern = regexp.MustCompile(`(?i)(\d+)\+?\s*connections`)

// SearchProfileSchema matches one person card on a people-search results
// surface. The identity key is the profile link on the card.
func SearchProfileSchema() Schema {
	return Schema{
		Kind:      models.KindSearchProfile,
		Container: `li.reusable-search__result-container, li[data-chameleon-result-urn]`,
		Key: FieldRule{
			Selector: `a.app-aware-link[href*="/in/"], .entity-result__title-text a[href*="/in/"]`,
			Attr:     "href",
		},
		Fields: []FieldRule{
			{
				Name:     models.FieldName,
				Selector: `.entity-result__title-text a span[aria-hidden="true"]`,
				Default:  models.NotSpecified,
				Post:     stripDecorations,
			},
			{
				Name:     models.FieldDesignation,
				Selector: `.entity-result__primary-subtitle`,
				Default:  models.NotSpecified,
			},
			{
				Name:     models.FieldLocation,
				Selector: `.entity-result__secondary-subtitle`,
				Default:  models.NotSpecified,
			},
			{
				Name:     models.FieldDescription,
				Selector: `p.entity-result__summary`,
				Default:  "",
			},
		},
		Finalize: deriveProfileFields,
	}
}

// JobListingSchema matches one job card on a jobs-search results surface.
func JobListingSchema() Schema {
	return Schema{
		Kind:      models.KindJobListing,
		Container: `.job-card-list__entity-lockup`,
		Key: FieldRule{
			Selector: `a.job-card-list__title--link`,
			Attr:     "href",
		},
		Fields: []FieldRule{
			{
				Name:     models.FieldName,
				Selector: `a.job-card-list__title--link strong`,
				Default:  models.NotSpecified,
			},
			{
				Name:     models.FieldCompany,
				Selector: `.artdeco-entity-lockup__subtitle`,
				Default:  models.NotSpecified,
			},
			{
				Name:     models.FieldLocation,
				Selector: `.job-card-container__metadata-wrapper li`,
				Default:  models.NotSpecified,
			},
			{
				Name:     models.FieldInsight,
				Selector: `.job-card-container__job-insight-text`,
				Default:  "",
			},
			{
				Name:     models.FieldEasyApply,
				Selector: `.job-card-list__footer-wrapper`,
				Default:  "false",
				Post:     easyApplyFlag,
			},
		},
	}
}

// DetailedProfileSchema treats the whole document as a single record; the
// page URL is the identity.
func DetailedProfileSchema() Schema {
	return Schema{
		Kind: models.KindDetailedProfile,
		Fields: []FieldRule{
			{
				Name:     models.FieldName,
				Selector: `h1`,
				Default:  models.NotSpecified,
			},
			{
				Name:     models.FieldDesignation,
				Selector: `.text-body-medium`,
				Default:  models.NotSpecified,
			},
			{
				Name:     models.FieldLocation,
				Selector: `.text-body-small.inline.t-black--light.break-words`,
				Default:  models.NotSpecified,
			},
			{
				Name:     models.FieldDescription,
				Selector: `.display-flex.ph5.pv3 .pv-shared-text-with-see-more span[aria-hidden="true"]`,
				Default:  "",
			},
		},
		Finalize: deriveProfileFields,
	}
}

// deriveProfileFields fills the fields that are computed rather than
// selected: company parsed out of the designation and the connection
// count pulled from the free-text description.
func deriveProfileFields(fields map[string]string) {
	if _, ok := fields[models.FieldCompany]; !ok || fields[models.FieldCompany] == "" {
		fields[models.FieldCompany] = CompanyFromDesignation(fields[models.FieldDesignation])
	}
	if fields[models.FieldConnections] == "" {
		fields[models.FieldConnections] = ConnectionsFromText(fields[models.FieldDescription])
	}
}

// CompanyFromDesignation splits a headline like "HR Manager at Acme" or
// "Recruiter @ Initech" into the company part.
func CompanyFromDesignation(designation string) string {
	if designation == "" || designation == models.NotSpecified {
		return models.NotSpecified
	}
	for _, sep := range []string{" at ", " @ "} {
		if _, after, ok := strings.Cut(designation, sep); ok {
			if company := strings.TrimSpace(after); company != "" {
				return company
			}
		}
	}
	return models.NotSpecified
}

// ConnectionsFromText finds a "500+ connections" style mention and
// normalizes it to "500+".
func ConnectionsFromText(text string) string {
	m := connectionsPattern.FindStringSubmatch(text)
	if m == nil {
		return models.NotSpecified
	}
	return m[1] + "+"
}

// stripDecorations removes markdown-style emphasis markers that leak
// into card titles.
func stripDecorations(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "*", ""))
}

// easyApplyFlag turns the card footer text into a boolean string.
func easyApplyFlag(footer string) string {
	if strings.Contains(footer, "Easy Apply") {
		return "true"
	}
	return "false"
}
