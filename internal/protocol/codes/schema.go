package codes

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Format selects the schema file encoding.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

//go:embed codes.toml
var defaultSchema []byte

type schemaFile struct {
	Codes map[string]int `toml:"codes" yaml:"codes"`
}

// ParseSchema decodes a code schema and validates it into a Table.
func ParseSchema(data []byte, format Format) (*Table, error) {
	var raw schemaFile
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("codes: parse toml schema: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("codes: parse yaml schema: %w", err)
		}
	default:
		return nil, fmt.Errorf("codes: unsupported schema format %d", format)
	}
	if len(raw.Codes) == 0 {
		return nil, SchemaError{Reason: "schema defines no codes"}
	}

	assignments := make(map[Code]int, len(raw.Codes))
	for name, v := range raw.Codes {
		assignments[Code(strings.TrimSpace(name))] = v
	}
	t, err := NewTable(assignments)
	if err != nil {
		return nil, err
	}
	log.Debug().Msgf("codes.ParseSchema ok codes=%d", t.Len())
	return t, nil
}

// LoadSchemaFile reads a schema from disk, picking the format by extension.
func LoadSchemaFile(path string) (*Table, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		format = FormatTOML
	case ".yaml", ".yml":
		format = FormatYAML
	default:
		return nil, fmt.Errorf("codes: unknown schema extension (%s)", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("codes: schema load failed (%s): %w", path, err)
	}
	t, err := ParseSchema(data, format)
	if err != nil {
		log.Error().Msgf("codes.LoadSchemaFile rejected path=%q err=%v", path, err)
		return nil, err
	}
	return t, nil
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the table built from the embedded firmware schema.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := ParseSchema(defaultSchema, FormatTOML)
		if err != nil {
			panic(fmt.Sprintf("codes: embedded schema invalid: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// DefaultSchema returns a copy of the embedded schema document.
func DefaultSchema() []byte {
	return append([]byte(nil), defaultSchema...)
}
