package thresholds

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed canonical.yaml
var canonicalYAML []byte

// Load reads a YAML table and returns it with the raw bytes.
// KnownFields(true): a typo or unused key fails immediately.
func Load(path string) (*Table, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	t, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return t, data, nil
}

// Parse decodes and validates a YAML table
func Parse(data []byte) (*Table, error) {
	var t Table
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, err
	}

	if err := Validate(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Default canonical table embedded in the binary
func Default() *Table {
	t, err := Parse(canonicalYAML)
	if err != nil {
		panic(fmt.Sprintf("canonical threshold table is invalid: %v", err))
	}
	return t
}

// DefaultYAML raw canonical table
func DefaultYAML() []byte {
	return append([]byte(nil), canonicalYAML...)
}

// Hash SHA256 of the canonical JSON encoding
func Hash(t *Table) (string, error) {
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewSnapshot records which table a report was produced with
func NewSnapshot(t *Table, yamlData []byte) (*Snapshot, error) {
	hash, err := Hash(t)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		TableHash: hash,
		TableYAML: string(yamlData),
		TableID:   t.Meta.TableID,
		Version:   t.Meta.Version,
		CreatedAt: time.Now(),
	}, nil
}
