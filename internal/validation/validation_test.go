package validation

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"simple", "roads", nil},
		{"with spaces", "my roads", nil},
		{"with quote", `o"brien`, nil},
		{"empty", "", ErrEmptyIdentifier},
		{"too long", strings.Repeat("a", MaxIdentifierLength+1), ErrIdentifierTooLong},
		{"null byte", "ro\x00ads", ErrInvalidIdentifier},
		{"newline", "ro\nads", ErrInvalidIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateIdentifier(%q) = %v, want nil", tt.input, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateIdentifier(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateUserTableName(t *testing.T) {
	for _, name := range []string{"gpkg_contents", "RTREE_roads_geom", "sqlite_master"} {
		if err := ValidateUserTableName(name); !errors.Is(err, ErrReservedPrefix) {
			t.Errorf("ValidateUserTableName(%q) = %v, want ErrReservedPrefix", name, err)
		}
	}
	if err := ValidateUserTableName("roads"); err != nil {
		t.Errorf("ValidateUserTableName(roads) = %v", err)
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"valid", "data/world.gpkg", nil},
		{"empty", "", ErrEmptyPath},
		{"too long", strings.Repeat("a", MaxPathLength+1), ErrPathTooLong},
		{"null byte", "a\x00b", ErrInvalidCharacter},
		{"control", "a\tb", ErrInvalidCharacter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr == nil && err != nil {
				t.Errorf("ValidatePath() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePath() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateGeoPackagePath(t *testing.T) {
	for _, ok := range []string{"world.gpkg", "WORLD.GPKG", "ext.gpkx", ":memory:"} {
		if err := ValidateGeoPackagePath(ok); err != nil {
			t.Errorf("ValidateGeoPackagePath(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"world.db", "world", "world.gpkg.bak"} {
		if err := ValidateGeoPackagePath(bad); !errors.Is(err, ErrInvalidExtension) {
			t.Errorf("ValidateGeoPackagePath(%q) = %v, want ErrInvalidExtension", bad, err)
		}
	}
	if err := ValidateGeoPackagePath(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("empty path: %v", err)
	}
}

func TestCheckSQLiteHeader(t *testing.T) {
	good := append([]byte("SQLite format 3\x00"), make([]byte, 84)...)
	if err := CheckSQLiteHeader(bytes.NewReader(good)); err != nil {
		t.Errorf("valid header rejected: %v", err)
	}

	for name, data := range map[string][]byte{
		"short": []byte("SQLite"),
		"wrong": []byte("PK\x03\x04 not sqlite at all"),
		"empty": nil,
	} {
		if err := CheckSQLiteHeader(bytes.NewReader(data)); !errors.Is(err, ErrNotSQLite) {
			t.Errorf("%s: got %v, want ErrNotSQLite", name, err)
		}
	}
}
