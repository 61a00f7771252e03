package thriftdb

import (
	"fmt"
	"strings"
)

// TableName computes the catalog table identifier for a prefix and
// logical name, the trimmed form of prefix_name.
func TableName(prefix, name string) (string, error) {
	combined := strings.TrimSpace(fmt.Sprintf("%s_%s", strings.TrimSpace(prefix), strings.TrimSpace(name)))
	if combined == "" || combined == "_" {
		return "", fmt.Errorf("%w: %q + %q", ErrInvalidName, prefix, name)
	}
	return combined, nil
}

// DataKey computes the storage key of a table's single data file. The
// name repeats as the leaf so the key stays stable regardless of the
// uploaded file's own name.
func DataKey(prefix, name string) (string, error) {
	prefix, name, err := cleanParts(prefix, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", prefix, name, name), nil
}

// TablePrefix computes the storage prefix holding every version of a
// table's data file.
func TablePrefix(prefix, name string) (string, error) {
	prefix, name, err := cleanParts(prefix, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/", prefix, name), nil
}

// StreamPrefix computes the storage prefix a delivery pipeline flushes
// into.
func StreamPrefix(outerPrefix, name string) (string, error) {
	outerPrefix, name, err := cleanParts(outerPrefix, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/", outerPrefix, name), nil
}

func cleanParts(prefix, name string) (string, string, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	name = strings.Trim(strings.TrimSpace(name), "/")
	if prefix == "" || name == "" {
		return "", "", fmt.Errorf("%w: prefix and name are required", ErrInvalidName)
	}
	return prefix, name, nil
}
