package manifest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/digest"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/witness"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/pkg/platform/sentinel"
)

type stubWitnesser struct {
	reports []witness.Report
}

func (s *stubWitnesser) Probe(context.Context) []witness.Report {
	return s.reports
}

func writeArtifacts(t *testing.T) (dir, input, emitted, log string) {
	t.Helper()
	dir = t.TempDir()
	input = filepath.Join(dir, "input.json")
	emitted = filepath.Join(dir, "emitted.json")
	log = filepath.Join(dir, "anchors.log")
	require.NoError(t, os.WriteFile(input, []byte(`{"expected":true}`), 0o644))
	require.NoError(t, os.WriteFile(emitted, []byte(`{"sealed":true}`), 0o644))
	require.NoError(t, os.WriteFile(log, []byte("abc {...}\n"), 0o644))
	return dir, input, emitted, log
}

func TestBuildWritesManifest(t *testing.T) {
	eng := digest.MustNew(digest.AlgorithmSHA256)
	dir, input, emitted, logPath := writeArtifacts(t)
	out := filepath.Join(dir, "manifest.json")

	doc, err := Build(context.Background(), eng, Params{
		System:      "wfsl-org-profile-guard",
		InputPath:   input,
		EmittedPath: emitted,
		LogPath:     logPath,
		OutPath:     out,
		Git:         Git{Repo: "Wynergy-Fibre-Solutions/wfsl-org-profile-guard", Head: "abc123", Branch: "main"},
	})
	require.NoError(t, err)

	assert.Equal(t, Version, doc.ManifestVersion)
	assert.Equal(t, "wfsl-org-profile-guard", doc.System)
	assert.NotEmpty(t, doc.CreatedUTC)
	assert.Nil(t, doc.TimeWitness)

	// The binding must equal the anchor log artifact digest.
	wantLogHash, err := eng.File(logPath)
	require.NoError(t, err)
	assert.Equal(t, wantLogHash, doc.Artifacts["anchor_log"].SHA256)
	assert.Equal(t, wantLogHash, doc.Bindings["anchor_log_sha256"])

	// The written file round-trips to the same document.
	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var onDisk Document
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, doc.Artifacts, onDisk.Artifacts)
}

func TestBuildEmbedsWitnessBundle(t *testing.T) {
	eng := digest.MustNew(digest.AlgorithmSHA256)
	dir, input, emitted, logPath := writeArtifacts(t)
	out := filepath.Join(dir, "manifest.json")

	stub := &stubWitnesser{reports: []witness.Report{
		{URL: "https://example.com", OK: true, Status: 200, ReceivedUTC: "2026-08-29T00:00:00.000Z"},
		{URL: "https://down.example.com", OK: false, Note: "probe failed", ReceivedUTC: "2026-08-29T00:00:01.000Z"},
	}}

	doc, err := Build(context.Background(), eng, Params{
		System:      "wfsl-org-profile-guard",
		InputPath:   input,
		EmittedPath: emitted,
		LogPath:     logPath,
		OutPath:     out,
		Witness:     stub,
	})
	require.NoError(t, err)

	require.NotNil(t, doc.TimeWitness)
	assert.Equal(t, doc.Bindings["anchor_log_sha256"], doc.TimeWitness.AnchorLogSHA256)
	assert.Len(t, doc.TimeWitness.Witnesses, 2)
}

func TestBuildRejectsNonSHA256Engine(t *testing.T) {
	eng := digest.MustNew(digest.AlgorithmSHA3256)
	dir, input, emitted, logPath := writeArtifacts(t)
	out := filepath.Join(dir, "manifest.json")

	_, err := Build(context.Background(), eng, Params{
		System:      "wfsl-org-profile-guard",
		InputPath:   input,
		EmittedPath: emitted,
		LogPath:     logPath,
		OutPath:     out,
	})
	require.ErrorIs(t, err, sentinel.ErrUnsupported)

	// Nothing mislabeled lands on disk.
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuildFailsWhenArtifactMissing(t *testing.T) {
	eng := digest.MustNew(digest.AlgorithmSHA256)
	dir, input, emitted, _ := writeArtifacts(t)

	_, err := Build(context.Background(), eng, Params{
		System:      "wfsl-org-profile-guard",
		InputPath:   input,
		EmittedPath: emitted,
		LogPath:     filepath.Join(dir, "no-such.log"),
		OutPath:     filepath.Join(dir, "manifest.json"),
	})
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}
