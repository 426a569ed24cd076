// Package guard orchestrates the evidence pipeline: observe the organisation
// profile, evaluate drift, seal the observation as evidence, anchor it to
// the hash-chained ledger, and (on demand) cut a manifest over the result.
package guard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/anchor"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/digest"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/drift"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/manifest"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/observe"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/platform/config"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/platform/metrics"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/seal"
)

// System is the identity recorded in evidence and manifests.
const System = "wfsl-org-profile-guard"

// Service runs the evidence pipeline. One Service serves one configured
// organisation; the anchor log behind it enforces single-writer appends.
type Service struct {
	cfg     config.Config
	source  observe.Source
	eng     digest.Engine
	log     *anchor.Log
	witness manifest.Witnesser
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wires a Service. witness may be nil when manifests are cut without
// external corroboration.
func New(cfg config.Config, source observe.Source, eng digest.Engine, witness manifest.Witnesser, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		source:  source,
		eng:     eng,
		log:     anchor.NewLog(cfg.Paths.AnchorLog, eng),
		witness: witness,
		metrics: m,
		logger:  logger,
	}
}

// RunResult is the outcome of one pipeline run.
type RunResult struct {
	RunID        string         `json:"run_id"`
	Drift        drift.Report   `json:"drift"`
	EvidencePath string         `json:"evidence_path"`
	Anchor       anchor.Payload `json:"anchor"`
	ChainIndex   int            `json:"chain_index"`
}

// Run executes one observe-seal-anchor cycle. Drift is a finding, not a
// failure: the run records whatever it saw and returns the report; only
// operational problems (API, I/O) surface as errors.
func (s *Service) Run(ctx context.Context) (RunResult, error) {
	s.metrics.RunsTotal.Inc()

	snap, err := s.source.Snapshot(ctx, s.cfg.Expectation.Org)
	if err != nil {
		return RunResult{}, fmt.Errorf("guard: observe: %w", err)
	}

	report := drift.Evaluate(s.cfg.Expectation, snap)
	if !report.Clean {
		s.metrics.DriftDetectedTotal.Inc()
		s.logger.Warn("profile drift detected",
			"org", snap.Org,
			"missing_pins", report.MissingPins,
			"unexpected_pins", report.UnexpectedPins,
			"readme_missing", report.ReadmeMissing,
		)
	}

	if err := s.writeJSON(s.cfg.Paths.InputEvidence, map[string]any{
		"system":      System,
		"org":         snap.Org,
		"observation": snap,
		"fetched_utc": nowStamp(),
	}); err != nil {
		return RunResult{}, err
	}

	inputDigest, err := drift.InputDigest(s.eng, s.cfg.Expectation)
	if err != nil {
		return RunResult{}, fmt.Errorf("guard: input digest: %w", err)
	}

	runID := uuid.NewString()
	body := map[string]any{
		"system":        System,
		"run_id":        runID,
		"org":           snap.Org,
		"observation":   snap,
		"drift":         report,
		"generated_utc": nowStamp(),
	}

	opts := []seal.Option{}
	chainIndex := 1
	if prevDigest, prevIndex, ok := s.previousSeal(); ok {
		chainIndex = prevIndex + 1
		opts = append(opts, seal.WithPrevious(prevDigest), seal.WithChainIndex(chainIndex))
	}

	sealed, err := seal.Attach(s.eng, body, inputDigest, opts...)
	if err != nil {
		return RunResult{}, fmt.Errorf("guard: seal: %w", err)
	}
	s.metrics.SealsAttachedTotal.Inc()

	if err := s.writeJSON(s.cfg.Paths.EmittedEvidence, sealed); err != nil {
		return RunResult{}, err
	}

	payload, err := s.log.Append(s.cfg.Paths.EmittedEvidence, sealed)
	if err != nil {
		return RunResult{}, err
	}
	s.metrics.AnchorEntriesTotal.Inc()

	s.logger.Info("evidence anchored",
		"run_id", runID,
		"chain_index", chainIndex,
		"evidence_hash", payload.EvidenceHash,
		"clean", report.Clean,
	)

	return RunResult{
		RunID:        runID,
		Drift:        report,
		EvidencePath: s.cfg.Paths.EmittedEvidence,
		Anchor:       payload,
		ChainIndex:   chainIndex,
	}, nil
}

// VerifyEvidence checks the emitted evidence file's seal.
func (s *Service) VerifyEvidence() (seal.Result, error) {
	res, err := seal.VerifyFile(s.eng, s.cfg.Paths.EmittedEvidence)
	if err != nil {
		return seal.Result{}, err
	}
	s.countVerification(res.OK)
	return res, nil
}

// VerifyAnchor replays the whole anchor log.
func (s *Service) VerifyAnchor() (anchor.Report, error) {
	report, err := anchor.Verify(s.eng, s.cfg.Paths.AnchorLog)
	if err != nil {
		return anchor.Report{}, err
	}
	if !report.OK {
		s.metrics.AnchorVerifyBroken.Inc()
	}
	return report, nil
}

// Manifest cuts a fresh manifest over the current artifact files.
func (s *Service) Manifest(ctx context.Context, git manifest.Git, includeWitness bool) (manifest.Document, error) {
	var w manifest.Witnesser
	if includeWitness {
		w = s.witness
	}
	doc, err := manifest.Build(ctx, s.eng, manifest.Params{
		System:      System,
		InputPath:   s.cfg.Paths.InputEvidence,
		EmittedPath: s.cfg.Paths.EmittedEvidence,
		LogPath:     s.cfg.Paths.AnchorLog,
		OutPath:     s.cfg.Paths.Manifest,
		Git:         git,
		Witness:     w,
	})
	if err != nil {
		return manifest.Document{}, err
	}
	if doc.TimeWitness != nil {
		for _, rep := range doc.TimeWitness.Witnesses {
			outcome := "ok"
			if !rep.OK {
				outcome = "failed"
			}
			s.metrics.WitnessProbesTotal.WithLabelValues(outcome).Inc()
		}
	}
	return doc, nil
}

// AnchorStatus reports the chain tip and length without validating links.
func (s *Service) AnchorStatus() (tip string, entries int, err error) {
	tip, err = anchor.Tip(s.cfg.Paths.AnchorLog)
	if err != nil {
		return "", 0, err
	}
	entries, err = anchor.Len(s.cfg.Paths.AnchorLog)
	if err != nil {
		return "", 0, err
	}
	return tip, entries, nil
}

func (s *Service) countVerification(ok bool) {
	result := "ok"
	if !ok {
		result = "mismatch"
	}
	s.metrics.SealVerifications.WithLabelValues(result).Inc()
}

// previousSeal reads the current emitted evidence to continue its chain.
// A missing or unreadable previous file starts a fresh root seal.
func (s *Service) previousSeal() (prevDigest string, index int, ok bool) {
	raw, err := os.ReadFile(s.cfg.Paths.EmittedEvidence)
	if err != nil {
		return "", 0, false
	}
	var doc struct {
		Seal struct {
			EvidenceDigest string `json:"evidence_digest"`
			ChainIndex     int    `json:"chain_index"`
		} `json:"seal"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Seal.EvidenceDigest == "" {
		return "", 0, false
	}
	return doc.Seal.EvidenceDigest, doc.Seal.ChainIndex, true
}

func (s *Service) writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("guard: marshal %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("guard: create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("guard: write %s: %w", path, err)
	}
	return nil
}

func nowStamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}
