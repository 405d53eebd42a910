package sidecar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posit-dev/ark-sidecar-go/internal/mux"
	"github.com/posit-dev/ark-sidecar-go/internal/wire"
)

func TestHandleLspIOPubEventFindsPort(t *testing.T) {
	port, done, err := handleLspIOPubEvent(mux.Event{Content: wire.CommMsgContent{
		CommID: "c1",
		Data:   map[string]interface{}{"params": map[string]interface{}{"port": float64(8787)}},
	}}, "c1")
	require.NoError(t, err)
	assert.True(t, done)
	assert.EqualValues(t, 8787, port)
}

func TestHandleLspIOPubEventIgnoresOtherCommIDs(t *testing.T) {
	_, done, err := handleLspIOPubEvent(mux.Event{Content: wire.CommMsgContent{
		CommID: "other",
		Data:   map[string]interface{}{"params": map[string]interface{}{"port": float64(1234)}},
	}}, "c1")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestHandleLspIOPubEventCommCloseIsFatal(t *testing.T) {
	_, _, err := handleLspIOPubEvent(mux.Event{Content: wire.CommCloseContent{CommID: "c1"}}, "c1")
	require.Error(t, err)
	var closed *CommClosed
	assert.ErrorAs(t, err, &closed)
}

func TestHandleLspIOPubEventIgnoresUnrelatedContent(t *testing.T) {
	_, done, err := handleLspIOPubEvent(mux.Event{Content: wire.StatusContent{ExecutionState: "busy"}}, "c1")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestHandleLspIOPubEventNoPortYetKeepsWaiting(t *testing.T) {
	_, done, err := handleLspIOPubEvent(mux.Event{Content: wire.CommMsgContent{
		CommID: "c1",
		Data:   map[string]interface{}{"method": "not_ready"},
	}}, "c1")
	require.NoError(t, err)
	assert.False(t, done)
}
