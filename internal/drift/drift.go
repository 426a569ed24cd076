// Package drift compares an observed organisation profile snapshot against
// the expected configuration and derives the intent digest that ties sealed
// evidence back to the configuration that produced it.
package drift

import (
	"sort"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/digest"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/observe"
	pstrings "github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/pkg/platform/strings"
)

// Expectation is the profile state the organisation is expected to present.
type Expectation struct {
	Org                  string   `yaml:"org" json:"org"`
	Pins                 []string `yaml:"pins" json:"pins"`
	RequireProfileReadme bool     `yaml:"require_profile_readme" json:"require_profile_readme"`
}

// Report describes every difference between expected and observed state.
// An empty report (Clean=true) maps to exit code 0; any drift maps to 1.
type Report struct {
	Clean          bool     `json:"clean"`
	MissingPins    []string `json:"missing_pins"`
	UnexpectedPins []string `json:"unexpected_pins"`
	ReadmeMissing  bool     `json:"readme_missing"`
}

// Evaluate diffs the snapshot against the expectation. Pin comparison is
// set-based: pin ordering on the profile page is presentation, not policy.
func Evaluate(exp Expectation, snap observe.Snapshot) Report {
	expected := make(map[string]bool, len(exp.Pins))
	for _, pin := range exp.Pins {
		expected[pin] = true
	}
	observed := make(map[string]bool, len(snap.PinnedRepos))
	for _, pin := range snap.PinnedRepos {
		observed[pin] = true
	}

	report := Report{MissingPins: []string{}, UnexpectedPins: []string{}}
	for pin := range expected {
		if !observed[pin] {
			report.MissingPins = append(report.MissingPins, pin)
		}
	}
	for pin := range observed {
		if !expected[pin] {
			report.UnexpectedPins = append(report.UnexpectedPins, pin)
		}
	}
	sort.Strings(report.MissingPins)
	sort.Strings(report.UnexpectedPins)

	report.ReadmeMissing = exp.RequireProfileReadme && !snap.ProfileReadmeExists
	report.Clean = len(report.MissingPins) == 0 && len(report.UnexpectedPins) == 0 && !report.ReadmeMissing
	return report
}

// InputDigest hashes the normalized intent: the organisation, the expected
// pin set (sorted and deduplicated, so configuration order is irrelevant),
// and the README requirement. Timestamps and filesystem paths are excluded
// on purpose: two runs with identical intent must produce identical input
// digests no matter when or where they run.
func InputDigest(eng digest.Engine, exp Expectation) (string, error) {
	intent := map[string]any{
		"org":                    exp.Org,
		"expected_pins":          pstrings.Canonical(exp.Pins),
		"require_profile_readme": exp.RequireProfileReadme,
	}
	return eng.Value(intent)
}
