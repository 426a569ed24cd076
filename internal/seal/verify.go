package seal

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/digest"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/pkg/platform/sentinel"
)

// Result reports a single seal verification. A mismatch is a result, not an
// error: auditors scan many files and need every outcome, not the first one.
type Result struct {
	OK             bool   `json:"ok"`
	ExpectedDigest string `json:"expected_digest"`
	ActualDigest   string `json:"actual_digest"`
	Reason         string `json:"reason,omitempty"`
}

// FileResult pairs a Result with the file it came from, for batch scans.
type FileResult struct {
	Path   string `json:"path"`
	Result Result `json:"result"`
	Err    error  `json:"-"`
}

// Verify strips the seal field, recomputes the evidence digest over the
// remainder, and compares it with the stored claim. Missing or malformed
// seals report OK=false with a reason rather than failing.
func Verify(eng digest.Engine, doc map[string]any) Result {
	raw, ok := doc[Field]
	if !ok {
		return Result{Reason: "seal field missing"}
	}
	sealMap, ok := raw.(map[string]any)
	if !ok {
		return Result{Reason: "seal field is not an object"}
	}

	claimed, _ := sealMap["evidence_digest"].(string)
	if claimed == "" {
		return Result{Reason: "seal has no evidence_digest"}
	}
	if alg, _ := sealMap["algorithm"].(string); alg != eng.Algorithm() {
		return Result{ExpectedDigest: claimed, Reason: fmt.Sprintf("seal algorithm %q does not match engine %q", alg, eng.Algorithm())}
	}

	actual, err := eng.Value(withoutSeal(doc))
	if err != nil {
		return Result{ExpectedDigest: claimed, Reason: "evidence body not canonicalizable: " + err.Error()}
	}

	if actual != claimed {
		return Result{
			ExpectedDigest: claimed,
			ActualDigest:   actual,
			Reason:         "evidence digest mismatch",
		}
	}
	return Result{OK: true, ExpectedDigest: claimed, ActualDigest: actual}
}

// VerifyFile reads and parses a sealed evidence file, then delegates to
// Verify. I/O and parse failures are errors (the file could not be judged at
// all); integrity failures are carried in the Result.
func VerifyFile(eng digest.Engine, path string) (Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, fmt.Errorf("seal: evidence file %s: %w", path, sentinel.ErrNotFound)
		}
		return Result{}, fmt.Errorf("seal: read %s: %w", path, err)
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Result{}, fmt.Errorf("seal: parse %s: %v: %w", path, err, sentinel.ErrMalformed)
	}
	return Verify(eng, doc), nil
}

// VerifyFiles verifies many independent evidence files with bounded
// concurrency. Per-file errors are captured in the corresponding FileResult
// so one unreadable file never hides the outcome of the rest; results keep
// input order.
func VerifyFiles(eng digest.Engine, paths []string) []FileResult {
	results := make([]FileResult, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			res, err := VerifyFile(eng, path)
			results[i] = FileResult{Path: path, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
