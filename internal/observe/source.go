// Package observe supplies the organisation profile observations the guard
// records as evidence. The source is interface-driven so the pipeline and
// its tests never depend on the GitHub API being reachable.
package observe

import "context"

// Snapshot is one observation of an organisation's public profile state.
type Snapshot struct {
	Org                 string   `json:"org"`
	PinnedRepos         []string `json:"pinned_repos"`
	ProfileReadmeExists bool     `json:"profile_readme_exists"`
}

// Source produces profile snapshots. Implementations must be side-effect
// free: a snapshot observes remote state, it never changes it.
type Source interface {
	Snapshot(ctx context.Context, org string) (Snapshot, error)
}
