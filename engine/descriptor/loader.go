package descriptor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	koanftoml "github.com/knadh/koanf/parsers/toml/v2"
	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
)

// Load reads and parses a descriptor file, dispatching on its extension.
// Supported formats are .toml and .json/.jsonc (JSON with comments and
// trailing commas). Any other extension is an error surfaced to the caller.
//
// Loading never touches the process working directory; callers that need
// paths inside the descriptor resolved against the file's own directory
// thread filepath.Dir(path) through explicitly.
func Load(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read descriptor %s", path)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse parses descriptor bytes in the format implied by ext.
func Parse(data []byte, ext string) (Descriptor, error) {
	switch strings.ToLower(ext) {
	case ".toml":
		raw, err := koanftoml.Parser().Unmarshal(data)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse TOML descriptor")
		}
		return Descriptor(raw), nil
	case ".json", ".jsonc":
		var raw map[string]any
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, errors.Wrap(err, "failed to parse JSONC descriptor")
		}
		return Descriptor(raw), nil
	default:
		return nil, errors.Errorf("unsupported descriptor format %q: expected .toml or .jsonc", ext)
	}
}
