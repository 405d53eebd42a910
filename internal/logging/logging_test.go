package logging

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadParsesExplicitLevel(t *testing.T) {
	handle := Setup(0)
	handle.Reload("3")
	require.NotNil(t, handle.vFlag)
	assert.Equal(t, "3", handle.vFlag.Value.String())
}

func TestReloadInheritsFromEnvWhenAbsent(t *testing.T) {
	handle := Setup(0)
	require.NoError(t, os.Setenv("KERNEL_LOG_LEVEL", "2"))
	defer os.Unsetenv("KERNEL_LOG_LEVEL")

	handle.Reload("inherit")
	assert.Equal(t, "2", handle.vFlag.Value.String())
}

func TestReloadDefaultsToZeroOnUnparsableEnv(t *testing.T) {
	handle := Setup(0)
	require.NoError(t, os.Setenv("KERNEL_LOG_LEVEL", "not-a-number"))
	defer os.Unsetenv("KERNEL_LOG_LEVEL")

	handle.Reload("")
	assert.Equal(t, "0", handle.vFlag.Value.String())
}
