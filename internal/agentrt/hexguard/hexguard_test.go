package hexguard

import (
	"bytes"
	"testing"
)

func TestValidateRejectsEmpty(t *testing.T) {
	if err := Validate(""); err == nil {
		t.Fatal("expected empty string to be rejected")
	}
}

func TestValidateRejectsOddLength(t *testing.T) {
	if err := Validate("abc"); err == nil {
		t.Fatal("expected odd-length string to be rejected")
	}
}

func TestValidateRejectsNonHex(t *testing.T) {
	if err := Validate("zz00"); err == nil {
		t.Fatal("expected non-hex characters to be rejected")
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	got, err := Decode("deadBEEF")
	if err != nil {
		t.Fatalf("expected valid hex to decode, got %v", err)
	}
	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %x, want %x", got, want)
	}
}
