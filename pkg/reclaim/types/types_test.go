package types

import (
	"errors"
	"testing"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		// Basic byte values
		{name: "plain bytes", input: "1024", want: 1024},
		{name: "zero bytes", input: "0", want: 0},
		{name: "bytes with B suffix", input: "512B", want: 512},
		{name: "bytes with lowercase b", input: "512b", want: 512},

		// Decimal (SI) suffixes use powers of 1000
		{name: "kilobytes bare letter", input: "100K", want: 100_000},
		{name: "kilobytes lowercase", input: "100k", want: 100_000},
		{name: "kilobytes with B", input: "100KB", want: 100_000},
		{name: "megabytes", input: "50MB", want: 50_000_000},
		{name: "gigabytes", input: "2G", want: 2_000_000_000},
		{name: "terabytes", input: "1TB", want: 1_000_000_000_000},

		// Binary (IEC) suffixes use powers of 1024
		{name: "kibibytes", input: "100KiB", want: 100 * KiB},
		{name: "kibibytes lowercase", input: "100kib", want: 100 * KiB},
		{name: "mebibytes", input: "50MiB", want: 50 * MiB},
		{name: "gibibytes", input: "2GiB", want: 2 * GiB},
		{name: "tebibytes", input: "1TiB", want: 1 * TiB},

		// Whitespace handling
		{name: "leading whitespace", input: "  100MB", want: 100_000_000},
		{name: "trailing whitespace", input: "100MB  ", want: 100_000_000},
		{name: "space before suffix", input: "100 MB", want: 100_000_000},

		// Decimal fractions truncate to whole bytes
		{name: "fractional binary", input: "1.5GiB", want: 1610612736},
		{name: "fractional decimal", input: "2.5K", want: 2500},

		// Error cases
		{name: "empty string", input: "", wantErr: true},
		{name: "only whitespace", input: "   ", wantErr: true},
		{name: "invalid suffix", input: "100X", wantErr: true},
		{name: "negative value", input: "-100M", wantErr: true},
		{name: "letters only", input: "abc", wantErr: true},
		{name: "suffix only", input: "M", wantErr: true},
		{name: "trailing garbage", input: "100M100", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseSize(%q) expected error, got %d", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSize(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseSizeErrorKinds(t *testing.T) {
	if _, err := ParseSize("-1G"); !errors.Is(err, ErrNegativeSize) {
		t.Errorf("expected ErrNegativeSize, got %v", err)
	}
	if _, err := ParseSize("bogus"); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		name  string
		input int64
		want  string
	}{
		{name: "bytes", input: 512, want: "512 B"},
		{name: "kibibytes", input: 2 * KiB, want: "2.0 KiB"},
		{name: "mebibytes", input: 100 * MiB, want: "100 MiB"},
		{name: "gibibytes", input: 3 * GiB, want: "3.0 GiB"},
		{name: "negative clamps to zero", input: -5, want: "0 B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatSize(tt.input); got != tt.want {
				t.Errorf("FormatSize(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNameSet(t *testing.T) {
	cfg := ScanConfig{ArtifactNames: []string{"node_modules", "target", "", "target"}}

	set := cfg.NameSet()
	if len(set) != 2 {
		t.Fatalf("expected 2 names, got %d: %v", len(set), set)
	}
	if _, ok := set["node_modules"]; !ok {
		t.Error("node_modules missing from set")
	}
	if _, ok := set["target"]; !ok {
		t.Error("target missing from set")
	}
	if _, ok := set[""]; ok {
		t.Error("empty name should be excluded")
	}
}
