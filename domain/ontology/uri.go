// Package ontology models versioned schema types: their identities, their
// documents and the query paths used to filter them.
package ontology

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// BaseURI identifies every version of one schema type. It is an absolute URL
// ending in a slash.
type BaseURI string

// ParseBaseURI validates s as a base URI.
func ParseBaseURI(s string) (BaseURI, error) {
	if !strings.HasSuffix(s, "/") {
		return "", fmt.Errorf("base URI %q must end with a trailing slash", s)
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid base URI %q: %w", s, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", fmt.Errorf("base URI %q must be an absolute URL", s)
	}
	return BaseURI(s), nil
}

func (b BaseURI) String() string { return string(b) }

// VersionedURI names one immutable version of a schema type. Its text form
// is the base URI followed by "v/<version>".
type VersionedURI struct {
	BaseURI BaseURI
	Version uint32
}

// NewVersionedURI pairs a base URI with a version.
func NewVersionedURI(base BaseURI, version uint32) VersionedURI {
	return VersionedURI{BaseURI: base, Version: version}
}

// ParseVersionedURI parses "<base>v/<version>".
func ParseVersionedURI(s string) (VersionedURI, error) {
	idx := strings.LastIndex(s, "v/")
	if idx < 0 {
		return VersionedURI{}, fmt.Errorf("versioned URI %q is missing the version suffix", s)
	}
	version, err := strconv.ParseUint(s[idx+2:], 10, 32)
	if err != nil {
		return VersionedURI{}, fmt.Errorf("versioned URI %q has an invalid version: %w", s, err)
	}
	base, err := ParseBaseURI(s[:idx])
	if err != nil {
		return VersionedURI{}, err
	}
	return VersionedURI{BaseURI: base, Version: uint32(version)}, nil
}

// MustParseVersionedURI is ParseVersionedURI for constants; it panics on error.
func MustParseVersionedURI(s string) VersionedURI {
	uri, err := ParseVersionedURI(s)
	if err != nil {
		panic(err)
	}
	return uri
}

func (v VersionedURI) String() string {
	return string(v.BaseURI) + "v/" + strconv.FormatUint(uint64(v.Version), 10)
}

// IsZero reports whether v is unset.
func (v VersionedURI) IsZero() bool {
	return v.BaseURI == "" && v.Version == 0
}

func (v VersionedURI) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *VersionedURI) UnmarshalText(text []byte) error {
	parsed, err := ParseVersionedURI(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (b *BaseURI) UnmarshalText(text []byte) error {
	parsed, err := ParseBaseURI(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
