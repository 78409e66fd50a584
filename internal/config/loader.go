package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks a decoder from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported config extension %q (want .toml, .yaml, .yml or .json)", filepath.Ext(path))
	}
}

// Load reads a system descriptor from a file.
func Load(path string) (*SystemDescriptor, error) {
	clean := filepath.Clean(path)
	format, err := FormatFromPath(clean)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", clean, err)
	}
	sys, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", clean, err)
	}
	return sys, nil
}

func Parse(data []byte, format Format) (*SystemDescriptor, error) {
	var sys SystemDescriptor
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &sys)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidDescriptor, undecoded)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&sys); err != nil {
			return nil, err
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&sys); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	return &sys, nil
}
