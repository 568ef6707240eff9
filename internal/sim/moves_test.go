package sim

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeMoves(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"RDLU", "rdlu"},
		{"6d2r", "ddddddrr"},
		{"r", "r"},
		{"1u", "u"},
		{"10d", "dddddddddd"},
		{"2r3d", "rrddd"},
		{"  rr  ", "rr"},
		{"U2dL", "uddl"},
	}

	for _, tt := range tests {
		got, err := DecodeMoves(tt.in)
		if err != nil {
			t.Errorf("DecodeMoves(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DecodeMoves(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecodeMovesRejects(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"left-right",
		"r d",
		"0d",
		"00u",
		"12",
		"3",
		"u5",
		"rx",
		"-2d",
		"10001u",
	}

	for _, in := range tests {
		if _, err := DecodeMoves(in); !errors.Is(err, ErrMalformedReplay) {
			t.Errorf("DecodeMoves(%q) = %v, want ErrMalformedReplay", in, err)
		}
	}
}

func TestDecodeMovesCap(t *testing.T) {
	// Exactly at the cap is fine.
	got, err := DecodeMoves("10000u")
	if err != nil {
		t.Fatalf("DecodeMoves at cap returned error: %v", err)
	}
	if len(got) != MaxMoves {
		t.Fatalf("expected %d moves, got %d", MaxMoves, len(got))
	}

	// One over, in a single token or spread over several, is not.
	for _, in := range []string{"10001d", "10000u1d", "5000l5001r"} {
		if _, err := DecodeMoves(in); !errors.Is(err, ErrMalformedReplay) {
			t.Errorf("DecodeMoves(%q) = %v, want ErrMalformedReplay", in, err)
		}
	}
}

func TestDecodeMovesLongRun(t *testing.T) {
	// A replay authored as single letters decodes to itself.
	in := strings.Repeat("ud", 50)
	got, err := DecodeMoves(in)
	if err != nil {
		t.Fatalf("DecodeMoves returned error: %v", err)
	}
	if got != in {
		t.Errorf("expected identity decode, got %q", got)
	}
}
