package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeContentKnownTypes(t *testing.T) {
	status, err := DecodeContent("status", json.RawMessage(`{"execution_state":"busy"}`))
	require.NoError(t, err)
	assert.Equal(t, StatusContent{ExecutionState: "busy"}, status)

	open, err := DecodeContent("comm_open", json.RawMessage(`{"comm_id":"c1","target_name":"positron.lsp","data":{"ip_address":"127.0.0.1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "positron.lsp", open.(CommOpenContent).TargetName)
}

func TestDecodeContentUnknownTypeIsOpaque(t *testing.T) {
	raw := json.RawMessage(`{"whatever":true}`)
	content, err := DecodeContent("some_future_msg_type", raw)
	require.NoError(t, err)
	opaque, ok := content.(OpaqueContent)
	require.True(t, ok)
	assert.Equal(t, "some_future_msg_type", opaque.MsgType())
}

func TestDecodeCommCloseToleratesMissingData(t *testing.T) {
	content, err := DecodeContent("comm_close", json.RawMessage(`{"comm_id":"c1"}`))
	require.NoError(t, err)
	closed, ok := content.(CommCloseContent)
	require.True(t, ok)
	assert.Equal(t, "c1", closed.CommID)
	assert.NotNil(t, closed.Data)
	assert.Empty(t, closed.Data)
}

func TestDecodeCommCloseWithDataPassesThrough(t *testing.T) {
	content, err := DecodeContent("comm_close", json.RawMessage(`{"comm_id":"c1","data":{"reason":"bye"}}`))
	require.NoError(t, err)
	closed := content.(CommCloseContent)
	assert.Equal(t, "bye", closed.Data["reason"])
}

func TestDecodeContentMalformedJSONFails(t *testing.T) {
	_, err := DecodeContent("status", json.RawMessage(`not json`))
	require.Error(t, err)
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}
