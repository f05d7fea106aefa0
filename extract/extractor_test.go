package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leadscout/leadscout/models"
)

const searchResultsHTML = `
<div class="search-results-container">
  <ul>
    <li class="reusable-search__result-container">
      <span class="entity-result__title-text">
        <a class="app-aware-link" href="/in/jane-doe?miniProfileUrn=urn%3Ali%3Afs">
          <span aria-hidden="true">Jane Doe</span>
        </a>
      </span>
      <div class="entity-result__primary-subtitle">HR Manager at Acme</div>
      <div class="entity-result__secondary-subtitle">Berlin, Germany</div>
      <p class="entity-result__summary">Hiring leader. 500+ connections.</p>
    </li>
    <li class="reusable-search__result-container">
      <span class="entity-result__title-text">
        <a class="app-aware-link" href="https://www.linkedin.com/in/john-roe">
          <span aria-hidden="true">John Roe</span>
        </a>
      </span>
    </li>
    <li class="reusable-search__result-container">
      <!-- promoted card without a profile link -->
      <span class="entity-result__title-text">Sponsored</span>
    </li>
  </ul>
</div>`

func TestSearchProfileExtraction(t *testing.T) {
	engine := MustEngine(SearchProfileSchema())

	records, skipped, err := engine.Extract(searchResultsHTML,
		"https://www.linkedin.com/search/results/people/?keywords=hr", "hr manager")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 1, skipped, "keyless card must be dropped but counted")

	jane := records[0]
	require.Equal(t, models.KindSearchProfile, jane.Kind)
	// Tracking parameters do not leak into the identity.
	require.Equal(t, "https://www.linkedin.com/in/jane-doe", jane.Key)
	require.Equal(t, "Jane Doe", jane.Get(models.FieldName))
	require.Equal(t, "HR Manager at Acme", jane.Get(models.FieldDesignation))
	require.Equal(t, "Acme", jane.Get(models.FieldCompany))
	require.Equal(t, "Berlin, Germany", jane.Get(models.FieldLocation))
	require.Equal(t, "500+", jane.Get(models.FieldConnections))
	require.Equal(t, "hr manager", jane.Get(models.FieldQuery))

	// Sparse card falls back to documented defaults instead of failing.
	john := records[1]
	require.Equal(t, "https://www.linkedin.com/in/john-roe", john.Key)
	require.Equal(t, models.NotSpecified, john.Get(models.FieldDesignation))
	require.Equal(t, models.NotSpecified, john.Get(models.FieldCompany))
	require.Equal(t, models.NotSpecified, john.Get(models.FieldConnections))
}

const jobResultsHTML = `
<ul>
  <li>
    <div class="job-card-list__entity-lockup">
      <a class="job-card-list__title--link" href="/jobs/view/4001?refId=abc">
        <strong>Senior Go Engineer</strong>
      </a>
      <div class="artdeco-entity-lockup__subtitle">Initech</div>
      <ul class="job-card-container__metadata-wrapper"><li>Remote, EU</li></ul>
      <div class="job-card-container__job-insight-text">Actively recruiting</div>
      <div class="job-card-list__footer-wrapper">Easy Apply · 2 days ago</div>
    </div>
  </li>
  <li>
    <div class="job-card-list__entity-lockup">
      <a class="job-card-list__title--link" href="/jobs/view/4002">
        <strong>Backend Engineer</strong>
      </a>
      <div class="artdeco-entity-lockup__subtitle">Hooli</div>
    </div>
  </li>
</ul>`

func TestJobListingExtraction(t *testing.T) {
	engine := MustEngine(JobListingSchema())

	records, skipped, err := engine.Extract(jobResultsHTML,
		"https://www.linkedin.com/jobs/search/?keywords=go", "go engineer")
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Len(t, records, 2)

	first := records[0]
	require.Equal(t, models.KindJobListing, first.Kind)
	require.Equal(t, "https://www.linkedin.com/jobs/view/4001", first.Key)
	require.Equal(t, "Senior Go Engineer", first.Get(models.FieldName))
	require.Equal(t, "Initech", first.Get(models.FieldCompany))
	require.Equal(t, "Remote, EU", first.Get(models.FieldLocation))
	require.Equal(t, "Actively recruiting", first.Get(models.FieldInsight))
	require.Equal(t, "true", first.Get(models.FieldEasyApply))

	second := records[1]
	require.Equal(t, "false", second.Get(models.FieldEasyApply))
	require.Equal(t, models.NotSpecified, second.Get(models.FieldLocation))
}

const profilePageHTML = `
<main>
  <h1>Jane Doe</h1>
  <div class="text-body-medium">HR Manager @ Acme</div>
  <span class="text-body-small inline t-black--light break-words">Berlin, Germany</span>
  <section class="display-flex ph5 pv3">
    <div class="pv-shared-text-with-see-more">
      <span aria-hidden="true">People leader. 500+ connections on the platform.</span>
    </div>
  </section>
</main>`

func TestDetailedProfileExtraction(t *testing.T) {
	engine := MustEngine(DetailedProfileSchema())

	records, skipped, err := engine.Extract(profilePageHTML,
		"https://www.linkedin.com/in/jane-doe?originalSubdomain=de", "")
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Len(t, records, 1)

	rec := records[0]
	require.Equal(t, models.KindDetailedProfile, rec.Kind)
	require.Equal(t, "https://www.linkedin.com/in/jane-doe", rec.Key)
	require.Equal(t, "Jane Doe", rec.Get(models.FieldName))
	require.Equal(t, "HR Manager @ Acme", rec.Get(models.FieldDesignation))
	require.Equal(t, "Acme", rec.Get(models.FieldCompany))
	require.Equal(t, "500+", rec.Get(models.FieldConnections))
}

func TestExtract_EmptyDocumentYieldsNothing(t *testing.T) {
	engine := MustEngine(SearchProfileSchema())

	records, skipped, err := engine.Extract("<html><body></body></html>",
		"https://www.linkedin.com/search/results/people/", "q")
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Empty(t, records)
}

func TestCompanyFromDesignation(t *testing.T) {
	tests := []struct {
		designation string
		want        string
	}{
		{"HR Manager at Acme", "Acme"},
		{"Recruiter @ Initech", "Initech"},
		{"Freelance Consultant", models.NotSpecified},
		{"", models.NotSpecified},
		{models.NotSpecified, models.NotSpecified},
	}
	for _, tt := range tests {
		if got := CompanyFromDesignation(tt.designation); got != tt.want {
			t.Errorf("CompanyFromDesignation(%q) = %q, want %q", tt.designation, got, tt.want)
		}
	}
}
