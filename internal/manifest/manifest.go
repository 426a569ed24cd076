// Package manifest renders point-in-time snapshots tying together the raw
// file digests of the evidence chain artifacts. A manifest is a disposable
// audit convenience: it is never sealed or chained, and can be regenerated
// from current file contents at any moment.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/digest"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/witness"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/pkg/platform/sentinel"
)

// Version identifies the manifest document layout.
const Version = 2

// Witnesser supplies external time corroboration. The concrete prober lives
// in the witness package; manifests only need the reports.
type Witnesser interface {
	Probe(ctx context.Context) []witness.Report
}

// Artifact describes one file covered by a manifest.
type Artifact struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// Git carries caller-supplied repository metadata. Values are recorded
// verbatim; the builder does not shell out.
type Git struct {
	Repo   string `json:"repo"`
	Head   string `json:"head"`
	Branch string `json:"branch"`
}

// Document is the manifest file layout.
type Document struct {
	System          string              `json:"system"`
	ManifestVersion int                 `json:"manifest_version"`
	CreatedUTC      string              `json:"created_utc"`
	Git             Git                 `json:"git"`
	Artifacts       map[string]Artifact `json:"artifacts"`
	Bindings        map[string]string   `json:"bindings"`
	TimeWitness     *TimeWitness        `json:"external_time_witness,omitempty"`
}

// TimeWitness embeds witness reports bound to the anchor log digest, so the
// bundle cannot be silently swapped onto a different log state.
type TimeWitness struct {
	AnchorLogSHA256 string           `json:"anchor_log_sha256"`
	Witnesses       []witness.Report `json:"witnesses"`
}

// Params names the files a manifest covers and the metadata recorded in it.
type Params struct {
	System      string
	InputPath   string
	EmittedPath string
	LogPath     string
	OutPath     string
	Git         Git
	Witness     Witnesser // nil disables the witness bundle
}

// Build digests the three named artifacts, assembles the manifest document,
// and writes it as formatted JSON to Params.OutPath. Every covered file must
// exist: a manifest cannot describe files that are not there.
//
// The artifact and binding keys name sha256 literally, so Build refuses any
// other engine rather than record digests under a key that misstates them.
func Build(ctx context.Context, eng digest.Engine, p Params) (Document, error) {
	if eng.Algorithm() != digest.AlgorithmSHA256 {
		return Document{}, fmt.Errorf("manifest: algorithm %q: %w", eng.Algorithm(), sentinel.ErrUnsupported)
	}

	inputHash, err := eng.File(p.InputPath)
	if err != nil {
		return Document{}, err
	}
	emittedHash, err := eng.File(p.EmittedPath)
	if err != nil {
		return Document{}, err
	}
	logHash, err := eng.File(p.LogPath)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		System:          p.System,
		ManifestVersion: Version,
		CreatedUTC:      time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Git:             p.Git,
		Artifacts: map[string]Artifact{
			"input_evidence":   {Path: p.InputPath, SHA256: inputHash},
			"emitted_evidence": {Path: p.EmittedPath, SHA256: emittedHash},
			"anchor_log":       {Path: p.LogPath, SHA256: logHash},
		},
		Bindings: map[string]string{
			"anchor_log_sha256": logHash,
		},
	}

	if p.Witness != nil {
		doc.TimeWitness = &TimeWitness{
			AnchorLogSHA256: logHash,
			Witnesses:       p.Witness.Probe(ctx),
		}
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Document{}, fmt.Errorf("manifest: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.OutPath), 0o755); err != nil {
		return Document{}, fmt.Errorf("manifest: create output dir: %w", err)
	}
	if err := os.WriteFile(p.OutPath, append(raw, '\n'), 0o644); err != nil {
		return Document{}, fmt.Errorf("manifest: write %s: %w", p.OutPath, err)
	}
	return doc, nil
}
