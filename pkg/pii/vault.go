// Package pii implements scrub-before-send and rehydrate-after-receive
// helpers backed by a per-ticket token↔original binding store, with
// originals sealed at rest.
package pii

import (
	"fmt"
	"sort"
	"strings"

	"github.com/orbitdesk/ticketrouter/pkg/models"
)

// BindingStore persists PIIBindings. Implemented by pkg/database for
// production use; an in-memory implementation is provided in-package for
// tests and for batches that purge bindings at the end of their lifecycle.
type BindingStore interface {
	SaveBindings(ticketID string, bindings []models.PIIBinding) error
	LoadBindings(ticketID string) ([]models.PIIBinding, error)
	PurgeBindings(ticketID string) error
}

// Sealer seals and opens PIIBinding.Original values at rest. See
// pkg/pii.AESSealer for the production implementation (AES-GCM with a
// per-process symmetric key).
type Sealer interface {
	Seal(plaintext string) (sealed []byte, err error)
	Open(sealed []byte) (plaintext string, err error)
}

// Vault implements scrub/rehydrate for PII tokens of the shape
// "⟦KIND:N⟧" with N a per-ticket, per-kind monotone counter.
type Vault struct {
	store    BindingStore
	sealer   Sealer
	detector Detector
}

// Detector finds PII spans in free text and classifies their kind. This
// package consumes a detection implementation (regex, NER, or third-party
// service) through this narrow interface.
type Detector interface {
	// Detect returns non-overlapping matches found in text, in order of
	// appearance.
	Detect(text string) []Match
}

// Match is one PII occurrence found by a Detector.
type Match struct {
	Start, End int // byte offsets into the original text
	Kind       models.PIIKind
	Value      string
}

// NewVault constructs a Vault. detector may be a regex/NER implementation
// supplied by the caller; store and sealer back persistence and
// encryption-at-rest respectively.
func NewVault(store BindingStore, sealer Sealer, detector Detector) *Vault {
	return &Vault{store: store, sealer: sealer, detector: detector}
}

// token renders the bracketed token for a kind+ordinal pair. The bracket
// delimiters mean "⟦PHONE:1⟧" never collides with "⟦PHONE:10⟧" as a
// substring.
func token(kind models.PIIKind, ordinal int) string {
	return fmt.Sprintf("⟦%s:%d⟧", strings.ToUpper(string(kind)), ordinal)
}

// Scrub replaces every PII occurrence in text with a token, persists the
// bindings (with Original sealed at rest), and returns the scrubbed text.
// Not idempotent: ordinals restart at 1 on every call, so scrubbing the
// same ticket again saves its bindings a second time. The stage runner has
// no idempotency guard, so a replayed scrub stage calls this again.
func (v *Vault) Scrub(ticketID, text string) (string, []models.PIIBinding, error) {
	matches := v.detector.Detect(text)
	if len(matches) == 0 {
		return text, nil, nil
	}

	counters := make(map[models.PIIKind]int)
	bindings := make([]models.PIIBinding, 0, len(matches))

	var b strings.Builder
	cursor := 0
	for _, m := range matches {
		if m.Start < cursor || m.End > len(text) || m.Start > m.End {
			continue // overlapping or out-of-range match; skip defensively
		}
		b.WriteString(text[cursor:m.Start])

		counters[m.Kind]++
		ordinal := counters[m.Kind]
		tok := token(m.Kind, ordinal)
		b.WriteString(tok)

		bindings = append(bindings, models.PIIBinding{
			TicketID: ticketID,
			Token:    tok,
			Original: m.Value,
			Kind:     m.Kind,
			Ordinal:  ordinal,
		})
		cursor = m.End
	}
	b.WriteString(text[cursor:])

	if v.sealer != nil {
		for i := range bindings {
			sealed, err := v.sealer.Seal(bindings[i].Original)
			if err != nil {
				return "", nil, fmt.Errorf("pii: seal binding: %w", err)
			}
			// Original is overwritten with its sealed form before the slice
			// is returned or persisted; plaintext never leaves this loop.
			bindings[i].Original = string(sealed)
		}
	}

	if err := v.store.SaveBindings(ticketID, bindings); err != nil {
		return "", nil, fmt.Errorf("pii: save bindings: %w", err)
	}

	return b.String(), bindings, nil
}

// Rehydrate replaces every known token for ticketID back with its original
// value. Tokens are substituted in order of descending length. The closing
// delimiter already keeps "⟦PHONE:1⟧" from matching inside "⟦PHONE:10⟧", so
// the ordering is only a safeguard.
func (v *Vault) Rehydrate(ticketID, text string) (string, error) {
	bindings, err := v.store.LoadBindings(ticketID)
	if err != nil {
		return "", fmt.Errorf("pii: load bindings: %w", err)
	}
	if len(bindings) == 0 {
		return text, nil
	}

	sort.Slice(bindings, func(i, j int) bool {
		return len(bindings[i].Token) > len(bindings[j].Token)
	})

	out := text
	for _, binding := range bindings {
		original := binding.Original
		if v.sealer != nil {
			plain, err := v.sealer.Open([]byte(binding.Original))
			if err != nil {
				return "", fmt.Errorf("pii: open binding for token %s: %w", binding.Token, err)
			}
			original = plain
		}
		out = strings.ReplaceAll(out, binding.Token, original)
	}
	return out, nil
}

// Purge deletes all bindings for a ticket. Bindings are otherwise retained
// for the lifetime of the owning batch and destroyed only by this call.
func (v *Vault) Purge(ticketID string) error {
	return v.store.PurgeBindings(ticketID)
}
