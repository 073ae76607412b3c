package header

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaults(t *testing.T) {
	h := New(WithKind(KindInventoryStatus), WithMetadata(MetaDigest, "abc"))
	assert.Equal(t, KindInventoryStatus, h.Kind)
	assert.Equal(t, APIVersion, h.APIVersion)
	assert.Equal(t, "abc", h.Get(MetaDigest))

	h = New(WithAPIVersion("inventory.invsync.io/v2"))
	assert.Equal(t, "inventory.invsync.io/v2", h.APIVersion)
}

func TestInitAt(t *testing.T) {
	var h Header
	at := time.Date(2026, 3, 1, 10, 30, 0, 0, time.FixedZone("x", 3600))
	h.InitAt(KindInventorySnapshot, "v0.4.0", at)

	assert.Equal(t, KindInventorySnapshot, h.Kind)
	assert.Equal(t, "2026-03-01T09:30:00Z", h.Get(MetaTimestamp))
	assert.Equal(t, "v0.4.0", h.Get(MetaVersion))

	h.InitAt(KindInventoryUpdate, "", at)
	assert.Empty(t, h.Get(MetaVersion))
}

func TestKindIsValid(t *testing.T) {
	assert.True(t, KindInventorySnapshot.IsValid())
	assert.True(t, KindInventoryUpdate.IsValid())
	assert.False(t, Kind("Recipe").IsValid())
	assert.Equal(t, "InventoryStatus", KindInventoryStatus.String())
}

func TestGetOnNil(t *testing.T) {
	var h *Header
	assert.Empty(t, h.Get(MetaDigest))
}
