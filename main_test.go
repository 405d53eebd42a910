package main

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCodePassesThroughWithoutBase64Flag(t *testing.T) {
	code, err := decodeCode("1+1", false)
	require.NoError(t, err)
	assert.Equal(t, "1+1", code)
}

func TestDecodeCodeDecodesBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("print('hi')"))
	code, err := decodeCode(encoded, true)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", code)
}

func TestDecodeCodeRejectsInvalidBase64(t *testing.T) {
	_, err := decodeCode("not-valid-base64!!", true)
	require.Error(t, err)
}
