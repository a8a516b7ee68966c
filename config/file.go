package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// filePerm is the mode of configuration files written by Save.
const filePerm = 0o600

// errEmpty is returned by Load for a file with no content.
var errEmpty = errors.New("config file is empty")

// Format is an on-disk encoding.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "toml"
}

// FormatFor picks the encoding from the file extension: .yaml and .yml are
// YAML, everything else is TOML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Load reads and decodes the file at path into a new T. If *T implements
// Validator the decoded values are checked and a failure wraps ErrInvalid.
func Load[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("config: %s: %w", path, errEmpty)
	}

	cfg := new(T)
	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if v, ok := any(cfg).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	return cfg, nil
}

// decode fills out from data. A document that does not parse is returned as
// a plain error; one that parses but whose values do not fit out (wrong
// types, bad addresses, unknown protocols) wraps ErrInvalid.
func decode(path string, data []byte, out any) error {
	if FormatFor(path) == FormatYAML {
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return err
		}
		if err := doc.Decode(out); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		return nil
	}

	var doc map[string]any
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return err
	}
	md, err := toml.Decode(string(data), out)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		logrus.WithFields(logrus.Fields{
			"function": "Load",
			"path":     path,
			"keys":     strings.Join(keys, ","),
		}).Warn("Ignoring unknown configuration keys")
	}
	return nil
}

// Save encodes cfg and writes it to path, replacing any existing content.
// Missing parent directories are created.
func Save[T any](path string, cfg *T) error {
	var buf bytes.Buffer
	switch FormatFor(path) {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("config: encode %s: %w", path, err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("config: encode %s: %w", path, err)
		}
	default:
		enc := toml.NewEncoder(&buf)
		enc.Indent = "  "
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("config: encode %s: %w", path, err)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create directory for %s: %w", path, err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// LoadOrInit loads the configuration at path. A missing, empty or
// unparsable file is replaced by defaults(), which is persisted and
// returned; failing to persist it is logged and the defaults are still
// returned. A file that parses but holds values of the wrong type or
// invalid values is an error and is left untouched.
func LoadOrInit[T any](path string, defaults func() *T) (*T, error) {
	cfg, err := Load[T](path)
	if err == nil {
		logrus.WithFields(logrus.Fields{
			"function": "LoadOrInit",
			"path":     path,
			"format":   FormatFor(path).String(),
		}).Debug("Loaded configuration")
		return cfg, nil
	}
	if errors.Is(err, ErrInvalid) {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "LoadOrInit",
		"path":     path,
		"error":    err.Error(),
	}).Warn("Configuration unusable; writing defaults")

	cfg = defaults()
	if err := Save(path, cfg); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "LoadOrInit",
			"path":     path,
			"error":    err.Error(),
		}).Warn("Failed to persist default configuration")
	}
	return cfg, nil
}
