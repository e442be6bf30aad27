package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/eb-packager/internal/domain/build"
)

// ScriptsKey is the only field taken from the Elastic Beanstalk descriptor.
const ScriptsKey = "scripts"

// DefaultFileMode is used for the merged descriptor.
const DefaultFileMode os.FileMode = 0o644

const indent = "  "

var (
	// errNotObject is returned when a document's top level is not a JSON object.
	errNotObject = errors.New("top level must be a JSON object")
	// errTrailingData is returned when a document has content after its top-level value.
	errTrailingData = errors.New("unexpected data after top-level object")
	// errNoScripts is returned when the Elastic Beanstalk descriptor lacks scripts.
	errNoScripts = errors.New("no \"scripts\" field")
)

// field is one top-level member of a descriptor.
type field struct {
	key   string
	value json.RawMessage
}

// Merge returns root with its scripts replaced by the scripts of eb.
// The output is indented with two spaces and ends with a newline.
func Merge(root, eb []byte) ([]byte, error) {
	rootFields, err := decodeObject(root)
	if err != nil {
		return nil, fmt.Errorf("%w: root manifest: %w", build.ErrManifest, err)
	}

	ebFields, err := decodeObject(eb)
	if err != nil {
		return nil, fmt.Errorf("%w: eb manifest: %w", build.ErrManifest, err)
	}

	scripts, ok := lookup(ebFields, ScriptsKey)
	if !ok {
		return nil, fmt.Errorf("%w: eb manifest: %w", build.ErrManifest, errNoScripts)
	}

	merged := set(rootFields, ScriptsKey, scripts)

	out, err := encodeObject(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: encode merged manifest: %w", build.ErrManifest, err)
	}

	return out, nil
}

// MergeFiles merges the descriptors at sourcePath and ebPath into destPath.
func MergeFiles(sourcePath, ebPath, destPath string) error {
	root, err := os.ReadFile(filepath.Clean(sourcePath))
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", build.ErrManifest, sourcePath, err)
	}

	eb, err := os.ReadFile(filepath.Clean(ebPath))
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", build.ErrManifest, ebPath, err)
	}

	merged, err := Merge(root, eb)
	if err != nil {
		return err
	}

	if err = os.WriteFile(filepath.Clean(destPath), merged, DefaultFileMode); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}

	return nil
}

// decodeObject reads the top-level members of a JSON object in document order.
// A repeated key keeps its first position and its last value.
func decodeObject(data []byte) ([]field, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))

	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}

	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}

	var fields []field

	for decoder.More() {
		token, err = decoder.Token()
		if err != nil {
			return nil, err
		}

		key, ok := token.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", token)
		}

		var value json.RawMessage
		if err = decoder.Decode(&value); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}

		fields = set(fields, key, value)
	}

	// Closing brace.
	if _, err = decoder.Token(); err != nil {
		return nil, err
	}

	if _, err = decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}

	return fields, nil
}

// encodeObject renders fields as an indented JSON object.
func encodeObject(fields []field) ([]byte, error) {
	var compact bytes.Buffer

	compact.WriteByte('{')

	for i, f := range fields {
		if i > 0 {
			compact.WriteByte(',')
		}

		key, err := encodeKey(f.key)
		if err != nil {
			return nil, err
		}

		compact.Write(key)
		compact.WriteByte(':')
		compact.Write(f.value)
	}

	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", indent); err != nil {
		return nil, err
	}

	out.WriteByte('\n')

	return out.Bytes(), nil
}

// encodeKey quotes key without HTML escaping.
func encodeKey(key string) ([]byte, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(key); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func lookup(fields []field, key string) (json.RawMessage, bool) {
	for _, f := range fields {
		if f.key == key {
			return f.value, true
		}
	}

	return nil, false
}

// set replaces the value of key in place, or appends it.
func set(fields []field, key string, value json.RawMessage) []field {
	for i := range fields {
		if fields[i].key == key {
			fields[i].value = value
			return fields
		}
	}

	return append(fields, field{key: key, value: value})
}
