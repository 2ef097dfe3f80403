package types

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// Decode parses a JSON or YAML audit summary. YAML is converted to JSON
// first, so both formats use the same field names.
func Decode(data []byte) (*AuditSummary, error) {
	var a AuditSummary
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode audit summary: %w", err)
	}
	return &a, nil
}

// LoadFile reads and decodes the audit summary at path.
func LoadFile(path string) (*AuditSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read audit summary %q: %w", path, err)
	}
	return Decode(data)
}
