// Package mcpquic carries MCP JSON-RPC over a single bidirectional QUIC
// stream. Connections negotiate ALPN "framedex-mcp-v1"; the client then opens
// one stream, writes the magic "MCP1" and exchanges newline-delimited JSON.
package mcpquic

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quic-go/quic-go"
)

const (
	ALPNProtocolMCP    = "framedex-mcp-v1"
	MagicBytesMCP      = "MCP1"
	MaxMessageSize     = 1 << 20
	DefaultIdleTimeout = 5 * time.Minute
	DefaultKeepAlive   = 30 * time.Second
)

// Stream and connection error codes.
const (
	StreamErrorProtocolConfusion quic.StreamErrorCode = 0x02

	ConnErrorNoError           quic.ApplicationErrorCode = 0x00
	ConnErrorUnsupportedALPN   quic.ApplicationErrorCode = 0x01
	ConnErrorProtocolViolation quic.ApplicationErrorCode = 0x03
)

var (
	ErrInvalidMagicBytes = errors.New("invalid magic bytes: expected " + MagicBytesMCP)
	ErrUnsupportedALPN   = errors.New("ALPN negotiation failed: " + ALPNProtocolMCP + " not selected")
)

// QUICConfig is shared by the chassis listener and the client.
func QUICConfig() *quic.Config {
	return &quic.Config{
		MaxStreamReceiveWindow:     4 * 1024 * 1024,
		MaxConnectionReceiveWindow: 16 * 1024 * 1024,
		MaxIdleTimeout:             DefaultIdleTimeout,
		KeepAlivePeriod:            DefaultKeepAlive,
	}
}

// ValidateMagicBytes reads the stream preamble and checks it.
func ValidateMagicBytes(r io.Reader) error {
	magic := make([]byte, len(MagicBytesMCP))
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("read magic bytes: %w", err)
	}
	if !bytes.Equal(magic, []byte(MagicBytesMCP)) {
		return fmt.Errorf("%w: got %q", ErrInvalidMagicBytes, magic)
	}
	return nil
}

// SendMagicBytes writes the stream preamble. Clients send it first.
func SendMagicBytes(w io.Writer) error {
	if _, err := io.WriteString(w, MagicBytesMCP); err != nil {
		return fmt.Errorf("write magic bytes: %w", err)
	}
	return nil
}
