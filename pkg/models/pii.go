package models

// PIIKind enumerates the categories of personally-identifying data the
// vault can tokenize.
type PIIKind string

const (
	PIIPhone      PIIKind = "phone"
	PIINationalID PIIKind = "national-id"
	PIICard       PIIKind = "card"
	PIIEmail      PIIKind = "email"
	PIIName       PIIKind = "name"
)

// PIIBinding is one token↔original mapping recorded for a ticket. Original
// holds the plaintext value when detected; when the vault has a Sealer,
// Vault.Scrub replaces it with the AES-GCM sealed bytes before the binding
// is returned or persisted (see pkg/pii.Vault). It is never logged or
// emitted on the event bus.
type PIIBinding struct {
	TicketID string
	Token    string
	Original string
	Kind     PIIKind
	// Ordinal is the per-ticket, per-kind monotone counter baked into Token
	// ("⟦PHONE:1⟧", "⟦PHONE:2⟧", ...). Kept alongside Token so rehydration
	// doesn't need to re-parse it.
	Ordinal int
}
