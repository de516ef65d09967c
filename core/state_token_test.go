package core

import (
	"bytes"
	"testing"
)

// TestTokenRoundTripContextXOR is property 6 of spec.md §8: parse(emit(p,
// ctx), ctx) == key_of(p) for any prev token p.
func TestTokenRoundTripContextXOR(t *testing.T) {
	const ctx = 0xdeadbeef
	prev, _ := EmitToken(nil, ctx, 7)

	for i := 0; i < 50; i++ {
		wire := WireToken(prev, ctx)
		key := ParseToken(wire[:], ctx)
		if key != prev {
			t.Fatalf("round-trip mismatch at iteration %d: got %x want %x", i, key, prev)
		}
		prev, _ = EmitToken(&prev, ctx, 7)
	}
}

func TestEmitTokenFirstRoundFieldsAreStructured(t *testing.T) {
	tok, tries := EmitToken(nil, 0, 3)
	if tries != 1 {
		t.Fatalf("expected tries=1 on first round, got %d", tries)
	}
	if got := tok[offTries]; got != 1 {
		t.Fatalf("tries byte = %d, want 1", got)
	}
	if got, want := tok[offTx], uint8(1^0); got != want {
		t.Fatalf("tx byte = %d, want %d", got, want)
	}
	if got := tok[offServerID]; got != 3 {
		t.Fatalf("server_id byte = %d, want 3", got)
	}
}

func TestEmitTokenSecondRoundIncrementsTriesAndTx(t *testing.T) {
	first, _ := EmitToken(nil, 0, 0)
	second, tries := EmitToken(&first, 0, 0)

	if tries != 2 {
		t.Fatalf("expected tries=2, got %d", tries)
	}
	if second[offTries] != 2 {
		t.Fatalf("tries byte = %d, want 2", second[offTries])
	}
	if want := uint8(2 ^ 1); second[offTx] != want {
		t.Fatalf("tx byte = %d, want %d (2 XOR 1)", second[offTx], want)
	}

	// Everything outside the structured fields must be copied verbatim
	// from the previous token (spec.md §3 "reused verbatim except tries
	// incremented and tx recomputed").
	if second[offR5] != first[offR5] || second[offR6] != first[offR6] {
		t.Fatalf("random bytes should be preserved across rounds")
	}
}

func TestParseTokenLengthNormalization(t *testing.T) {
	t.Run("exact", func(t *testing.T) {
		raw := bytes.Repeat([]byte{0x42}, TokenLen)
		key := ParseToken(raw, 0)
		for _, b := range key {
			if b != 0x42 {
				t.Fatalf("expected unmodified copy (ctxID=0), got %x", key)
			}
		}
	})
	t.Run("short, zero padded", func(t *testing.T) {
		raw := []byte{1, 2, 3}
		key := ParseToken(raw, 0)
		want := [TokenLen]byte{1, 2, 3}
		if key != want {
			t.Fatalf("got %x want %x", key, want)
		}
	})
	t.Run("long, md5 folded", func(t *testing.T) {
		raw := bytes.Repeat([]byte{0x9}, TokenLen+5)
		key := ParseToken(raw, 0)
		var zero [TokenLen]byte
		if key == zero {
			t.Fatalf("md5 digest should not be all-zero for this input")
		}
	})
}

// TestContextIsolation is property 2 / scenario S5 of spec.md §8: a
// token minted under context A must not parse to the same key under a
// different context B.
func TestContextIsolation(t *testing.T) {
	const ctxA, ctxB = 0x1111, 0x2222
	stored, _ := EmitToken(nil, ctxA, 1)
	wire := WireToken(stored, ctxA)

	keyA := ParseToken(wire[:], ctxA)
	keyB := ParseToken(wire[:], ctxB)

	if keyA != stored {
		t.Fatalf("same-context parse should recover the stored key")
	}
	if keyB == stored {
		t.Fatalf("cross-context parse must not recover the same key")
	}
}
