package provider

import (
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{"SH", TilingService},
		{"sentinelhub", TilingService},
		{"CA", ArchiveSearch},
		{" archive ", ArchiveSearch},
		{"stac", ArchiveSearch},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.input)
		if err != nil {
			t.Errorf("ParseKind(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestParseKind_Unsupported(t *testing.T) {
	_, err := ParseKind("landsat")
	var unsupported *UnsupportedProviderError
	if !errors.As(err, &unsupported) {
		t.Fatalf("ParseKind(landsat) error = %v, want UnsupportedProviderError", err)
	}
	if unsupported.Name != "landsat" {
		t.Errorf("Name = %q, want landsat", unsupported.Name)
	}
}
