// Package seal attaches and verifies chained integrity records on evidence
// documents. A seal binds the digest of the evidence body, the digest of the
// intent that produced it, and an optional link to a prior seal, so a third
// party can replay the chain and find the exact point of tampering.
package seal

import (
	"github.com/Wynergy-Fibre-Solutions/wfsl-org-profile-guard/internal/digest"
)

// Field is the key under which the seal is stored in a sealed evidence
// document. The seal is always excluded from its own digest.
const Field = "seal"

// Seal is the integrity record attached to an evidence document.
type Seal struct {
	Algorithm      string  `json:"algorithm"`
	InputDigest    string  `json:"input_digest"`
	EvidenceDigest string  `json:"evidence_digest"`
	PreviousDigest *string `json:"previous_digest"`
	ChainIndex     int     `json:"chain_index"`
}

// Option adjusts how a seal is attached.
type Option func(*Seal)

// WithPrevious links the new seal to a prior evidence digest. Without it the
// seal is a chain root (previous_digest null).
func WithPrevious(d string) Option {
	return func(s *Seal) {
		s.PreviousDigest = &d
	}
}

// WithChainIndex sets the caller-supplied chain position. The builder never
// auto-increments; chain ordering is run-controller responsibility.
func WithChainIndex(n int) Option {
	return func(s *Seal) {
		s.ChainIndex = n
	}
}

// Attach returns a new document consisting of body plus a seal field. The
// input map is never mutated. inputDigest must already be computed from the
// run's intent (configuration, not timestamps or paths) so identical intent
// yields identical input digests across runs.
func Attach(eng digest.Engine, body map[string]any, inputDigest string, opts ...Option) (map[string]any, error) {
	evidenceDigest, err := eng.Value(withoutSeal(body))
	if err != nil {
		return nil, err
	}

	s := Seal{
		Algorithm:      eng.Algorithm(),
		InputDigest:    inputDigest,
		EvidenceDigest: evidenceDigest,
		ChainIndex:     1,
	}
	for _, opt := range opts {
		opt(&s)
	}

	sealed := make(map[string]any, len(body)+1)
	for k, v := range body {
		sealed[k] = v
	}
	sealed[Field] = map[string]any{
		"algorithm":       s.Algorithm,
		"input_digest":    s.InputDigest,
		"evidence_digest": s.EvidenceDigest,
		"previous_digest": previousOrNil(s.PreviousDigest),
		"chain_index":     s.ChainIndex,
	}
	return sealed, nil
}

func previousOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// withoutSeal returns doc minus the seal field, copying only when the field
// is present so Attach on fresh bodies stays allocation-light.
func withoutSeal(doc map[string]any) map[string]any {
	if _, ok := doc[Field]; !ok {
		return doc
	}
	stripped := make(map[string]any, len(doc)-1)
	for k, v := range doc {
		if k == Field {
			continue
		}
		stripped[k] = v
	}
	return stripped
}
