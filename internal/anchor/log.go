// Package anchor maintains the append-only, hash-chained ledger that anchors
// every emitted evidence file. Each line is self-identified by a leading
// digest and chained to the previous line's digest, so any replay detects
// the first corrupted entry and its exact position.
package anchor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/canonical"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/digest"
)

// Genesis is the well-known previous-hash sentinel of the first entry. The
// chain anchors to this constant rather than to a computed value.
const Genesis = "GENESIS"

// Payload is the chained portion of one ledger line. Field names are part of
// the on-disk format and must not change.
type Payload struct {
	TS           string `json:"ts"`
	EvidencePath string `json:"evidence_path"`
	EvidenceHash string `json:"evidence_hash"`
	PrevHash     string `json:"prev_hash"`
}

// Log appends chained entries to a newline-delimited ledger file. A single
// Log value is safe for concurrent use within one process, and an exclusive
// file lock serializes appenders across processes; the read-last-line then
// append sequence is never interleaved.
type Log struct {
	path string
	eng  digest.Engine
	now  func() time.Time
}

// NewLog returns a Log writing to path with digests from eng. The file and
// its parent directories are created on first append.
func NewLog(path string, eng digest.Engine) *Log {
	return &Log{path: path, eng: eng, now: time.Now}
}

// Path returns the ledger file location.
func (l *Log) Path() string {
	return l.path
}

// timestampLayout matches ISO-8601 UTC with millisecond precision, the
// format other canonicalizer implementations emit for ledger timestamps.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Append chains a new entry to the ledger. The previous hash is the leading
// token of the current last line, or Genesis when the file does not exist
// yet. Prior lines are never rewritten.
func (l *Log) Append(evidencePath string, evidence any) (Payload, error) {
	evidenceHash, err := l.eng.Value(evidence)
	if err != nil {
		return Payload{}, fmt.Errorf("anchor: hash evidence: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return Payload{}, fmt.Errorf("anchor: create log dir: %w", err)
	}

	lock := flock.New(l.path + ".lock")
	if err := lock.Lock(); err != nil {
		return Payload{}, fmt.Errorf("anchor: lock ledger: %w", err)
	}
	defer lock.Unlock()

	prev, err := l.lastHash()
	if err != nil {
		return Payload{}, err
	}

	payload := Payload{
		TS:           l.now().UTC().Format(timestampLayout),
		EvidencePath: evidencePath,
		EvidenceHash: evidenceHash,
		PrevHash:     prev,
	}

	line, err := formatLine(l.eng, payload)
	if err != nil {
		return Payload{}, err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Payload{}, fmt.Errorf("anchor: open ledger: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return Payload{}, fmt.Errorf("anchor: append ledger: %w", err)
	}
	return payload, nil
}

// lastHash reads the leading hash token of the last non-empty line, or
// Genesis when the ledger does not exist or is empty.
func (l *Log) lastHash() (string, error) {
	raw, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return Genesis, nil
	}
	if err != nil {
		return "", fmt.Errorf("anchor: read ledger: %w", err)
	}

	lines := nonEmptyLines(string(raw))
	if len(lines) == 0 {
		return Genesis, nil
	}
	last := lines[len(lines)-1]
	hash, _, _ := strings.Cut(last, " ")
	return hash, nil
}

// formatLine renders "<hash> <payload json>" where hash covers the canonical
// payload bytes. The serialized payload on the line is plain JSON; the hash
// is always recomputed from canonical form during verification, so the
// stored representation only needs to parse back to the same values.
func formatLine(eng digest.Engine, p Payload) (string, error) {
	canon, err := canonical.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("anchor: canonicalize payload: %w", err)
	}
	hash := eng.Bytes(canon)

	serialized, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("anchor: serialize payload: %w", err)
	}
	return hash + " " + string(serialized), nil
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
