// Package digest wraps the cryptographic hashing used across the evidence
// chain. The algorithm is an injected configuration value rather than global
// state so call sites stay testable and an auditor can reproduce digests
// with a one-line config change.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"golang.org/x/crypto/sha3"

	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/canonical"
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/pkg/platform/sentinel"
)

// Supported algorithm names. These are the values accepted in config and
// recorded in seal headers.
const (
	AlgorithmSHA256  = "sha256"
	AlgorithmSHA3256 = "sha3-256"
)

// Engine computes fixed-length lowercase hex digests with one configured
// algorithm. The zero value is not usable; construct with New.
type Engine struct {
	algorithm string
	factory   func() hash.Hash
}

// New returns an Engine for the named algorithm, or ErrUnsupported when the
// name is not one this build can serve.
func New(algorithm string) (Engine, error) {
	switch algorithm {
	case AlgorithmSHA256:
		return Engine{algorithm: algorithm, factory: sha256.New}, nil
	case AlgorithmSHA3256:
		return Engine{algorithm: algorithm, factory: sha3.New256}, nil
	default:
		return Engine{}, fmt.Errorf("digest: algorithm %q: %w", algorithm, sentinel.ErrUnsupported)
	}
}

// MustNew is New for algorithm names known at compile time.
func MustNew(algorithm string) Engine {
	e, err := New(algorithm)
	if err != nil {
		panic(err)
	}
	return e
}

// Algorithm returns the configured algorithm name as recorded in seals.
func (e Engine) Algorithm() string {
	return e.algorithm
}

// Bytes returns the hex digest of raw bytes.
func (e Engine) Bytes(b []byte) string {
	h := e.factory()
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}

// Value canonicalizes v and digests the canonical bytes. This is the only
// way structured data enters the chain; hashing non-canonical JSON would
// make digests depend on key order.
func (e Engine) Value(v any) (string, error) {
	b, err := canonical.Marshal(v)
	if err != nil {
		return "", err
	}
	return e.Bytes(b), nil
}

// File streams the exact on-disk bytes of path through the hash. No
// canonicalization: file digests exist so an external auditor can reproduce
// them with standard tooling against the raw file.
func (e Engine) File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("digest: file %s: %w", path, sentinel.ErrNotFound)
		}
		return "", fmt.Errorf("digest: open %s: %w", path, err)
	}
	defer f.Close()

	h := e.factory()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("digest: read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
