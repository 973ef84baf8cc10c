package nav

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultPutResolve(t *testing.T) {
	v := NewVault(time.Minute)
	ref := v.Put("long-value")
	assert.True(t, strings.HasPrefix(ref, vaultMarker))

	got, ok := v.Resolve(ref)
	require.True(t, ok)
	assert.Equal(t, "long-value", got)

	plain, ok := v.Resolve("q-1")
	require.True(t, ok)
	assert.Equal(t, "q-1", plain)
}

func TestVaultExpiry(t *testing.T) {
	clock := newClock()
	v := NewVault(time.Minute)
	v.now = clock.Now

	ref := v.Put("x")
	clock.Advance(2 * time.Minute)

	_, ok := v.Resolve(ref)
	assert.False(t, ok)

	v.Put("y")
	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, v.Sweep())
	assert.Equal(t, 0, v.Len())
}

func TestContextCustomIDOverflowUsesVault(t *testing.T) {
	v := NewVault(time.Minute)
	c := Deps{Vault: v}.Context("u1", "g1", "c1")

	long := strings.Repeat("p", 120)
	id := c.CustomID("saga.quests", "accept", long)
	require.LessOrEqual(t, len(id), MaxCustomIDLen)

	parsed, err := ParseCustomID(id)
	require.NoError(t, err)
	got, ok := v.Resolve(parsed.Payload)
	require.True(t, ok)
	assert.Equal(t, long, got)
}

func TestContextCustomIDMarkerPayload(t *testing.T) {
	v := NewVault(time.Minute)
	c := Deps{Vault: v}.Context("u1", "", "")

	id := c.CustomID("s", "a", "@literal")
	parsed, err := ParseCustomID(id)
	require.NoError(t, err)
	got, ok := v.Resolve(parsed.Payload)
	require.True(t, ok)
	assert.Equal(t, "@literal", got)
}
