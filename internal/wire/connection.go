// Package wire implements the Jupyter client wire protocol: connection-file
// parsing, the HMAC-signed multipart message codec, and the two client-side
// ZeroMQ sockets (shell dealer, iopub subscriber) the sidecar dials.
//
// Reference documentation:
// https://jupyter-client.readthedocs.io/en/latest/messaging.html
package wire

import (
	"encoding/json"
	"fmt"
	"os"
)

// SupportedSignatureScheme is the only signature scheme this sidecar accepts.
// Any other value in a connection file is a fatal ConfigError.
const SupportedSignatureScheme = "hmac-sha256"

// ConnectionInfo is the static configuration read once at startup from the
// JSON connection file the kernel (or its launcher) writes to disk.
type ConnectionInfo struct {
	Transport       string `json:"transport"`
	IP              string `json:"ip"`
	ShellPort       int    `json:"shell_port"`
	IOPubPort       int    `json:"iopub_port"`
	StdinPort       int    `json:"stdin_port"`
	ControlPort     int    `json:"control_port"`
	HBPort          int    `json:"hb_port"`
	Key             string `json:"key"`
	SignatureScheme string `json:"signature_scheme"`
	KernelName      string `json:"kernel_name,omitempty"`
}

// ConfigError reports a problem with CLI flags or the connection file. It is
// always fatal: reported on stderr and as an "error" event, exit code 1.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func newConfigError(format string, args ...interface{}) error {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// NewConfigError builds a ConfigError, for CLI-level validation (missing
// required flags) that happens before a ConnectionInfo even exists.
func NewConfigError(format string, args ...interface{}) error {
	return newConfigError(format, args...)
}

// ReadConnectionInfo parses the Jupyter connection file at path and
// validates its signature scheme.
func ReadConnectionInfo(path string) (ConnectionInfo, error) {
	var info ConnectionInfo
	data, err := os.ReadFile(path)
	if err != nil {
		return info, newConfigError("failed to open connection file %s: %v", path, err)
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return info, newConfigError("failed to parse connection file %s: %v", path, err)
	}
	if info.SignatureScheme != SupportedSignatureScheme {
		return info, newConfigError("unsupported signature scheme %q (only %q is supported)",
			info.SignatureScheme, SupportedSignatureScheme)
	}
	return info, nil
}

// addr formats a transport://ip:port endpoint for one of the connection's
// ports.
func (c ConnectionInfo) addr(port int) string {
	switch c.Transport {
	case "tcp":
		return fmt.Sprintf("tcp://%s:%d", c.IP, port)
	case "ipc":
		return fmt.Sprintf("ipc://%s-%d", c.IP, port)
	default:
		return fmt.Sprintf("%s://%s:%d", c.Transport, c.IP, port)
	}
}

// ShellAddr is the dealer-socket endpoint for shell requests/replies.
func (c ConnectionInfo) ShellAddr() string { return c.addr(c.ShellPort) }

// IOPubAddr is the subscriber-socket endpoint for kernel broadcasts.
func (c ConnectionInfo) IOPubAddr() string { return c.addr(c.IOPubPort) }

// SigningKey returns the HMAC key, or nil if the connection advertises no
// key (in which case signing and verification are both skipped).
func (c ConnectionInfo) SigningKey() []byte {
	if c.Key == "" {
		return nil
	}
	return []byte(c.Key)
}
