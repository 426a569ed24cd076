package anchor

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/canonical"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/digest"
)

// Report is the outcome of a full-ledger verification pass. A broken chain
// is a result, not an error; Err describes the first failing check and
// EntriesVerified is the 0-based index of the entry that failed it.
type Report struct {
	OK              bool   `json:"ok"`
	EntriesVerified int    `json:"entries_verified"`
	Err             string `json:"error,omitempty"`
}

// Verify replays the ledger at path from the Genesis sentinel, recomputing
// every entry hash and chain link in one fail-fast pass. An absent ledger is
// vacuously valid: nothing has been anchored, so nothing can be corrupt.
// No repair or resynchronization is attempted past the first break.
func Verify(eng digest.Engine, path string) (Report, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Report{OK: true, EntriesVerified: 0}, nil
	}
	if err != nil {
		return Report{}, fmt.Errorf("anchor: read ledger: %w", err)
	}

	prev := Genesis
	lines := nonEmptyLines(string(raw))
	for i, line := range lines {
		hash, rest, found := strings.Cut(line, " ")
		if !found || hash == "" {
			return Report{EntriesVerified: i, Err: fmt.Sprintf("entry %d: line has no hash token", i)}, nil
		}

		var payload Payload
		if err := json.Unmarshal([]byte(rest), &payload); err != nil {
			return Report{EntriesVerified: i, Err: fmt.Sprintf("entry %d: unparseable payload: %v", i, err)}, nil
		}

		if payload.PrevHash != prev {
			return Report{
				EntriesVerified: i,
				Err:             fmt.Sprintf("entry %d: chain link broken: prev_hash %s, want %s", i, payload.PrevHash, prev),
			}, nil
		}

		canon, err := canonical.Marshal(payload)
		if err != nil {
			return Report{EntriesVerified: i, Err: fmt.Sprintf("entry %d: canonicalize: %v", i, err)}, nil
		}
		if computed := eng.Bytes(canon); computed != hash {
			return Report{
				EntriesVerified: i,
				Err:             fmt.Sprintf("entry %d: entry hash mismatch: line says %s, computed %s", i, hash, computed),
			}, nil
		}

		prev = hash
	}

	return Report{OK: true, EntriesVerified: len(lines)}, nil
}

// Tip returns the hash of the most recent entry, or Genesis for an absent or
// empty ledger. It does not validate the chain.
func Tip(path string) (string, error) {
	raw, err := os.ReadFile(path)
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
	hash, _, _ := strings.Cut(lines[len(lines)-1], " ")
	return hash, nil
}

// Len returns the number of entries currently anchored.
func Len(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("anchor: read ledger: %w", err)
	}
	return len(nonEmptyLines(string(raw))), nil
}
