package domain

import (
	"fmt"
)

// APIVersion represents a valid API version string.
type APIVersion string

// Supported API versions.
const (
	APIVersionV1 APIVersion = "v1"
)

var versionOrder = map[APIVersion]int{
	APIVersionV1: 1,
}

// ParseAPIVersion validates and returns an APIVersion.
func ParseAPIVersion(s string) (APIVersion, error) {
	v := APIVersion(s)
	if _, ok := versionOrder[v]; !ok {
		return "", fmt.Errorf("unknown API version: %s", s)
	}
	return v, nil
}

func (v APIVersion) String() string {
	return string(v)
}

func (v APIVersion) IsNil() bool {
	return v == ""
}
