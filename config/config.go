// Package config holds the per-role configuration records of chunksend and
// the generic helpers that read and write them.
//
// Files are TOML unless their name ends in .yaml or .yml:
//
//	ip = "127.0.0.1:3000"
//	file_path = "test"
//	chunk_size = 1048576
//	protocol = "sized"
package config

import (
	"errors"
	"fmt"
	"net/netip"

	"github.com/opd-ai/chunksend/limits"
	"github.com/opd-ai/chunksend/transfer"
)

// Default file names used by the CLI when --config is not given.
const (
	DefaultServerFile = "server.toml"
	DefaultClientFile = "client.toml"
)

// DefaultAddress is the address both roles use when none is configured.
var DefaultAddress = netip.MustParseAddrPort("127.0.0.1:3000")

// ErrInvalid marks a configuration that decoded but holds unusable values.
var ErrInvalid = errors.New("invalid configuration")

// Validator is implemented by configuration records that can check their own
// values after decoding.
type Validator interface {
	Validate() error
}

// ServerConfig configures the sending role.
type ServerConfig struct {
	Address   netip.AddrPort    `toml:"ip" yaml:"ip"`
	FilePath  string            `toml:"file_path" yaml:"file_path"`
	ChunkSize uint64            `toml:"chunk_size" yaml:"chunk_size"`
	Protocol  transfer.Protocol `toml:"protocol" yaml:"protocol"`
}

// DefaultServer returns the configuration written when none exists.
func DefaultServer() *ServerConfig {
	return &ServerConfig{
		Address:   DefaultAddress,
		FilePath:  "test",
		ChunkSize: limits.DefaultChunkSize,
		Protocol:  transfer.ProtocolSizeDeclared,
	}
}

// Validate checks every field. Port 0 is accepted and binds an ephemeral port.
func (c *ServerConfig) Validate() error {
	var errs []error
	if !c.Address.IsValid() {
		errs = append(errs, errors.New("ip: missing listen address"))
	}
	if c.FilePath == "" {
		errs = append(errs, errors.New("file_path: empty"))
	}
	if err := limits.ValidateChunkSize(c.ChunkSize); err != nil {
		errs = append(errs, fmt.Errorf("chunk_size: %w", err))
	}
	if !c.Protocol.Valid() {
		errs = append(errs, fmt.Errorf("protocol: unknown value %d", uint8(c.Protocol)))
	}
	return invalid(errs)
}

// ClientConfig configures the receiving role. The chunk size is always taken
// from the stream.
type ClientConfig struct {
	Address  netip.AddrPort    `toml:"ip" yaml:"ip"`
	SavePath string            `toml:"save_path" yaml:"save_path"`
	Protocol transfer.Protocol `toml:"protocol" yaml:"protocol"`
}

// DefaultClient returns the configuration written when none exists.
func DefaultClient() *ClientConfig {
	return &ClientConfig{
		Address:  DefaultAddress,
		SavePath: "./receive",
		Protocol: transfer.ProtocolSizeDeclared,
	}
}

// Validate checks every field.
func (c *ClientConfig) Validate() error {
	var errs []error
	if !c.Address.IsValid() || c.Address.Port() == 0 {
		errs = append(errs, errors.New("ip: missing peer address or port"))
	}
	if c.SavePath == "" {
		errs = append(errs, errors.New("save_path: empty"))
	}
	if !c.Protocol.Valid() {
		errs = append(errs, fmt.Errorf("protocol: unknown value %d", uint8(c.Protocol)))
	}
	return invalid(errs)
}

func invalid(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
