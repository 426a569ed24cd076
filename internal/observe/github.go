package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/pkg/platform/sentinel"
)

// DefaultEndpoint is the public GitHub GraphQL endpoint.
const DefaultEndpoint = "https://api.github.com/graphql"

// pinnedQuery fetches the pinned repositories and checks for the org profile
// README (the profile/README.md blob of the organisation's .github repo) in
// a single round trip.
const pinnedQuery = `query($org: String!) {
  organization(login: $org) {
    pinnedItems(first: 6, types: [REPOSITORY]) {
      nodes { ... on Repository { name } }
    }
    repository(name: ".github") {
      object(expression: "HEAD:profile/README.md") { __typename }
    }
  }
}`

// GitHub observes organisation profile state through the GraphQL API.
type GitHub struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
}

// GitHubOption adjusts a GitHub source.
type GitHubOption func(*GitHub)

// WithEndpoint points the source at a non-default API endpoint, used by
// tests and GitHub Enterprise installs.
func WithEndpoint(endpoint string) GitHubOption {
	return func(g *GitHub) {
		g.endpoint = endpoint
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) GitHubOption {
	return func(g *GitHub) {
		g.client = c
	}
}

// NewGitHub builds a GraphQL-backed source. token must carry read access to
// the organisation's public profile.
func NewGitHub(token string, logger *slog.Logger, opts ...GitHubOption) *GitHub {
	g := &GitHub{
		endpoint: DefaultEndpoint,
		token:    token,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		Organization *struct {
			PinnedItems struct {
				Nodes []struct {
					Name string `json:"name"`
				} `json:"nodes"`
			} `json:"pinnedItems"`
			Repository *struct {
				Object *struct {
					TypeName string `json:"__typename"`
				} `json:"object"`
			} `json:"repository"`
		} `json:"organization"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Snapshot observes the organisation's pinned repositories and profile
// README presence. Pin order is returned as GitHub reports it; callers that
// need order independence normalize before hashing.
func (g *GitHub) Snapshot(ctx context.Context, org string) (Snapshot, error) {
	body, err := json.Marshal(graphQLRequest{
		Query:     pinnedQuery,
		Variables: map[string]any{"org": org},
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("observe: marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return Snapshot{}, fmt.Errorf("observe: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("observe: github api: %v: %w", err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Snapshot{}, fmt.Errorf("observe: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("github api returned non-200", "status", resp.StatusCode, "org", org)
		return Snapshot{}, fmt.Errorf("observe: github api status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var parsed graphQLResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Snapshot{}, fmt.Errorf("observe: parse response: %v: %w", err, sentinel.ErrMalformed)
	}
	if len(parsed.Errors) > 0 {
		return Snapshot{}, fmt.Errorf("observe: graphql error: %s: %w", parsed.Errors[0].Message, sentinel.ErrUnavailable)
	}
	if parsed.Data.Organization == nil {
		return Snapshot{}, fmt.Errorf("observe: organization %q: %w", org, sentinel.ErrNotFound)
	}

	snap := Snapshot{Org: org, PinnedRepos: []string{}}
	for _, node := range parsed.Data.Organization.PinnedItems.Nodes {
		if node.Name != "" {
			snap.PinnedRepos = append(snap.PinnedRepos, node.Name)
		}
	}
	repo := parsed.Data.Organization.Repository
	snap.ProfileReadmeExists = repo != nil && repo.Object != nil

	g.logger.Info("observed org profile",
		"org", org,
		"pinned", len(snap.PinnedRepos),
		"profile_readme", snap.ProfileReadmeExists,
	)
	return snap, nil
}
