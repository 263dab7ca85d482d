package common

import (
	"errors"
	"math"
	"testing"
)

func TestAddU64(t *testing.T) {
	got, err := AddU64(math.MaxUint64-1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != math.MaxUint64 {
		t.Fatalf("unexpected sum: %d", got)
	}
	if _, err := AddU64(math.MaxUint64, 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestSubU64(t *testing.T) {
	got, err := SubU64(10, 10)
	if err != nil || got != 0 {
		t.Fatalf("unexpected result %d, %v", got, err)
	}
	if _, err := SubU64(0, 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow on underflow, got %v", err)
	}
}

func TestMulU64(t *testing.T) {
	tests := []struct {
		name    string
		factors []uint64
		want    uint64
		wantErr bool
	}{
		{name: "empty", factors: nil, want: 0},
		{name: "single", factors: []uint64{42}, want: 42},
		{name: "nft reward", factors: []uint64{5, 1_000_000}, want: 5_000_000},
		{name: "duration", factors: []uint64{3600, 1_000, 2}, want: 7_200_000},
		{name: "zero short circuits", factors: []uint64{0, math.MaxUint64, math.MaxUint64}, want: 0},
		{name: "exact max", factors: []uint64{math.MaxUint64, 1}, want: math.MaxUint64},
		{name: "overflow", factors: []uint64{math.MaxUint64, 2}, wantErr: true},
		{name: "overflow past 256 bits", factors: []uint64{math.MaxUint64, math.MaxUint64, math.MaxUint64, math.MaxUint64, math.MaxUint64}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MulU64(tc.factors...)
			if tc.wantErr {
				if !errors.Is(err, ErrOverflow) {
					t.Fatalf("expected ErrOverflow, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}
