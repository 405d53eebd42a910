package sidecar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimeoutErrorMessage(t *testing.T) {
	err := newTimeout("lsp comm port")
	assert.Equal(t, "timed out waiting for lsp comm port", err.Error())
}

func TestCommClosedErrorMessage(t *testing.T) {
	err := newCommClosed("c1")
	assert.Contains(t, err.Error(), "c1")
}
