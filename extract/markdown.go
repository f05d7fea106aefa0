package extract

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"

	"github.com/leadscout/leadscout/models"
)

// profilePattern matches one search hit in converted markdown: a link
// whose href wraps the real target in angle brackets, followed by the
// hit's heading line.
//
//	[Jane Doe](https://r.example/<https://www.linkedin.com/in/jane>)
//	## [**Jane Doe** - **HR Manager at Acme**]
var profilePattern = regexp.MustCompile(`\[([^\]]+)\]\([^<)]*<(https?:/[^>]+)>\)\n## \[([^\]]+)\]`)

// profileLinkFragment identifies hits that point at a member profile.
const profileLinkFragment = "linkedin.com/in/"

// NewMarkdownConverter builds the HTML-to-markdown converter used by the
// login-free search path.
func NewMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
}

// HTMLToMarkdown converts a fetched results page to markdown. The domain
// resolves relative links so profilePattern sees absolute URLs.
func HTMLToMarkdown(conv *converter.Converter, html, domain string) (string, error) {
	md, err := conv.ConvertString(html, converter.WithDomain(domain))
	if err != nil {
		return "", models.NewCrawlError(models.ErrCodeMalformed,
			"failed to convert results page to markdown", err)
	}
	return md, nil
}

// ProfilesFromMarkdown extracts profile records from converted search
// markdown. Hits that do not link to a member profile are ignored;
// profile hits whose identity cannot be canonicalized count as skipped.
func ProfilesFromMarkdown(markdown, query string) (records []models.Record, skipped int) {
	matches := profilePattern.FindAllStringSubmatchIndex(markdown, -1)
	for _, m := range matches {
		link := markdown[m[4]:m[5]]
		title := markdown[m[6]:m[7]]

		if !strings.Contains(link, profileLinkFragment) {
			continue
		}
		key := models.CanonicalKey(link)
		if key == "" {
			skipped++
			continue
		}

		name := stripDecorations(title)
		designation := models.NotSpecified
		if before, after, ok := strings.Cut(title, " - "); ok {
			name = stripDecorations(before)
			designation = stripDecorations(after)
		}

		// Free text between this heading and the next link is the hit's
		// snippet; connection counts live there.
		desc := markdown[m[1]:]
		if next := strings.IndexByte(desc, '['); next >= 0 {
			desc = desc[:next]
		}
		desc = strings.TrimSpace(desc)

		fields := map[string]string{
			models.FieldName:        name,
			models.FieldDesignation: designation,
			models.FieldCompany:     CompanyFromDesignation(designation),
			models.FieldConnections: ConnectionsFromText(desc),
			models.FieldURL:         key,
			models.FieldDescription: desc,
		}
		if query != "" {
			fields[models.FieldQuery] = query
		}

		records = append(records, models.Record{
			Kind:   models.KindSearchProfile,
			Key:    key,
			Fields: fields,
		})
	}
	return records, skipped
}
