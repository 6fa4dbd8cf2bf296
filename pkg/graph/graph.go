package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Domain Graph Serialization API
// =============================================================================

// MarshalDomain converts a Domain to pretty-printed JSON bytes.
// The domain is normalized first so output is deterministic.
func MarshalDomain(d Domain) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeDomainTo(d, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalDomain deserializes JSON bytes into a Domain.
// Relationship endpoints are validated against the node set.
func UnmarshalDomain(data []byte) (Domain, error) {
	return readDomainFrom(bytes.NewReader(data))
}

// WriteDomainFile writes a Domain to a JSON file.
// The file is created with 0644 permissions.
func WriteDomainFile(d Domain, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeDomainTo(d, f)
}

// ReadDomainFile reads a JSON file and returns the decoded Domain.
func ReadDomainFile(path string) (Domain, error) {
	f, err := os.Open(path)
	if err != nil {
		return Domain{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readDomainFrom(f)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeDomainTo(d Domain, w io.Writer) error {
	d.Normalize()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readDomainFrom(r io.Reader) (Domain, error) {
	var d Domain
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return Domain{}, fmt.Errorf("decode: %w", err)
	}

	ids := make(map[string]bool, len(d.Nodes))
	for i := range d.Nodes {
		if d.Nodes[i].ID == "" {
			return Domain{}, fmt.Errorf("node %d: missing id", i)
		}
		if ids[d.Nodes[i].ID] {
			return Domain{}, fmt.Errorf("duplicate node id %q", d.Nodes[i].ID)
		}
		ids[d.Nodes[i].ID] = true
		d.Nodes[i].ArchitectureLayer = ParseTier(string(d.Nodes[i].ArchitectureLayer))
	}

	for _, rel := range d.Relationships {
		if !ids[rel.Source] {
			return Domain{}, fmt.Errorf("relationship %s→%s: unknown source", rel.Source, rel.Target)
		}
		if !ids[rel.Target] {
			return Domain{}, fmt.Errorf("relationship %s→%s: unknown target", rel.Source, rel.Target)
		}
	}

	d.Normalize()
	return d, nil
}
