// Package validation checks user-supplied identifiers and GeoPackage paths
// before they reach SQL text or the filesystem.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

// Limits on user-supplied names.
const (
	// MaxIdentifierLength is the maximum table or column name length.
	MaxIdentifierLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
)

// Common validation errors.
var (
	ErrEmptyIdentifier   = errors.New("identifier cannot be empty")
	ErrIdentifierTooLong = errors.New("identifier too long")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrReservedPrefix    = errors.New("reserved table name prefix")
	ErrPathTooLong       = errors.New("path too long")
	ErrInvalidCharacter  = errors.New("invalid character in path")
	ErrEmptyPath         = errors.New("path cannot be empty")
	ErrInvalidExtension  = errors.New("invalid geopackage extension")
	ErrNotSQLite         = errors.New("not a sqlite database")
)

// Extensions accepted for GeoPackage files.
var geoPackageExtensions = []string{".gpkg", ".gpkx"}

// sqliteMagic is the first 16 bytes of every SQLite 3 database file.
var sqliteMagic = []byte("SQLite format 3\x00")

// ValidateIdentifier checks a table or column name. Identifiers are always
// quoted when written into SQL, so the check only rejects names that can
// never be valid: empty, oversized, or containing NUL and control characters.
func ValidateIdentifier(name string) error {
	if name == "" {
		return ErrEmptyIdentifier
	}
	if len(name) > MaxIdentifierLength {
		return ErrIdentifierTooLong
	}
	for _, r := range name {
		if r == 0 || unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidIdentifier)
		}
	}
	return nil
}

// ValidateUserTableName checks a name for a new user table. Names starting
// with "gpkg_" or "rtree_" belong to the GeoPackage core and its extensions.
func ValidateUserTableName(name string) error {
	if err := ValidateIdentifier(name); err != nil {
		return err
	}
	lower := strings.ToLower(name)
	for _, prefix := range []string{"gpkg_", "rtree_", "sqlite_"} {
		if strings.HasPrefix(lower, prefix) {
			return fmt.Errorf("%w: %s", ErrReservedPrefix, prefix)
		}
	}
	return nil
}

// ValidatePath performs path validation without requiring a base directory.
// It checks length limits and invalid characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// ValidateGeoPackagePath validates path and requires a .gpkg or .gpkx extension.
// The special in-memory name ":memory:" is accepted.
func ValidateGeoPackagePath(path string) error {
	if path == ":memory:" {
		return nil
	}
	if err := ValidatePath(path); err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range geoPackageExtensions {
		if ext == want {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidExtension, ext)
}

// CheckSQLiteHeader reads the file header from r and verifies the SQLite magic.
func CheckSQLiteHeader(r io.Reader) error {
	buf := make([]byte, len(sqliteMagic))
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("failed to read file header: %w", err)
	}
	if n < len(sqliteMagic) || !bytes.Equal(buf, sqliteMagic) {
		return ErrNotSQLite
	}
	return nil
}
