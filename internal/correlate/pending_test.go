package correlate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyStampsIDFromPendingEntry(t *testing.T) {
	p := NewPending()
	p.Record("m1", "r7")

	data := map[string]interface{}{"result": []interface{}{}}
	out := p.Apply("m1", data)

	assert.Equal(t, "r7", out["id"])
	assert.Equal(t, 0, p.Len())
}

func TestApplyLeavesExistingIDUntouched(t *testing.T) {
	p := NewPending()
	p.Record("m1", "r7")

	data := map[string]interface{}{"id": "already-set", "result": "ok"}
	out := p.Apply("m1", data)

	assert.Equal(t, "already-set", out["id"])
	assert.Equal(t, 0, p.Len())
}

func TestApplyWithNoPendingEntryLeavesDataUnchanged(t *testing.T) {
	p := NewPending()
	data := map[string]interface{}{"result": "ok"}
	out := p.Apply("unknown-msg-id", data)
	_, hasID := out["id"]
	assert.False(t, hasID)
	assert.Equal(t, 0, p.Len())
}

func TestResolveRemovesEntryExactlyOnce(t *testing.T) {
	p := NewPending()
	p.Record("m1", "r7")

	_, ok := p.Resolve("m1")
	assert.True(t, ok)

	_, ok = p.Resolve("m1")
	assert.False(t, ok)
}
