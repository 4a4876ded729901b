package pii

import (
	"strings"
	"testing"

	"github.com/orbitdesk/ticketrouter/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	sealer, err := NewAESSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return NewVault(NewMemStore(), sealer, NewRegexDetector())
}

func TestScrub_ReplacesAllMatchesWithTokens(t *testing.T) {
	v := newTestVault(t)

	text := "Contact me at jane.doe@example.com or +1 415 555 0101, thanks."
	scrubbed, bindings, err := v.Scrub("t1", text)
	require.NoError(t, err)

	assert.NotContains(t, scrubbed, "jane.doe@example.com")
	assert.NotContains(t, scrubbed, "415 555 0101")
	assert.Len(t, bindings, 2)
	assert.Contains(t, scrubbed, "⟦EMAIL:1⟧")
	assert.Contains(t, scrubbed, "⟦PHONE:1⟧")
}

func TestScrub_NoMatchesReturnsOriginalUnchanged(t *testing.T) {
	v := newTestVault(t)

	text := "Nothing sensitive here."
	scrubbed, bindings, err := v.Scrub("t1", text)
	require.NoError(t, err)
	assert.Equal(t, text, scrubbed)
	assert.Nil(t, bindings)
}

func TestScrubThenRehydrate_RoundTrips(t *testing.T) {
	v := newTestVault(t)

	text := "Reach jane.doe@example.com or john.smith@example.com about this."
	scrubbed, _, err := v.Scrub("t1", text)
	require.NoError(t, err)
	require.NotEqual(t, text, scrubbed)

	rehydrated, err := v.Rehydrate("t1", scrubbed)
	require.NoError(t, err)
	assert.Equal(t, text, rehydrated)
}

func TestRehydrate_OrdinalPrefixCollisionIsAvoided(t *testing.T) {
	v := newTestVault(t)

	// Ten distinct emails guarantees an ordinal sequence from 1 to 10, so
	// token "⟦EMAIL:10⟧" shares the "⟦EMAIL:1" prefix with "⟦EMAIL:1⟧".
	var addrs []string
	for i := 0; i < 10; i++ {
		addrs = append(addrs, string(rune('a'+i))+"@example.com")
	}
	text := strings.Join(addrs, ", ")

	scrubbed, bindings, err := v.Scrub("t1", text)
	require.NoError(t, err)
	require.Len(t, bindings, 10)

	rehydrated, err := v.Rehydrate("t1", scrubbed)
	require.NoError(t, err)
	assert.Equal(t, text, rehydrated)
}

func TestRehydrate_UnknownTicketReturnsTextUnchanged(t *testing.T) {
	v := newTestVault(t)
	out, err := v.Rehydrate("never-scrubbed", "nothing to see here")
	require.NoError(t, err)
	assert.Equal(t, "nothing to see here", out)
}

func TestPurge_RemovesBindingsSoRehydrateNoLongerSubstitutes(t *testing.T) {
	v := newTestVault(t)

	text := "ping jane.doe@example.com"
	scrubbed, _, err := v.Scrub("t1", text)
	require.NoError(t, err)

	require.NoError(t, v.Purge("t1"))

	out, err := v.Rehydrate("t1", scrubbed)
	require.NoError(t, err)
	assert.Equal(t, scrubbed, out) // tokens remain, since bindings are gone
}

func TestAESSealer_OpenRejectsTamperedCiphertext(t *testing.T) {
	sealer, err := NewAESSealer([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	sealed, err := sealer.Seal("+14155550101")
	require.NoError(t, err)

	tampered := append([]byte{}, sealed...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = sealer.Open(tampered)
	assert.Error(t, err)
}

func TestRegexDetector_RulesDoNotOverlap(t *testing.T) {
	d := NewRegexDetector()
	matches := d.Detect("call 415-555-0101 or email a@b.com")
	require.NotEmpty(t, matches)

	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i].Start, matches[i-1].End)
	}
}

func TestPIIBinding_KindConstantsAreDistinct(t *testing.T) {
	kinds := []models.PIIKind{models.PIIPhone, models.PIINationalID, models.PIICard, models.PIIEmail, models.PIIName}
	seen := make(map[models.PIIKind]bool)
	for _, k := range kinds {
		assert.False(t, seen[k])
		seen[k] = true
	}
}
