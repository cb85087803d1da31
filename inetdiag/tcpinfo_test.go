package inetdiag_test

import (
	"testing"

	"github.com/m-lab/tcpdiag/inetdiag"
)

// TestWScaleNibblePacking verifies the sender/receiver window scale
// exponents pack into and out of the single kernel-reported byte
// exactly, low nibble sender, high nibble receiver.
func TestWScaleNibblePacking(t *testing.T) {
	w := inetdiag.NewWScale(7, 9)
	if w.Snd() != 7 {
		t.Errorf("Snd() = %d, want 7", w.Snd())
	}
	if w.Rcv() != 9 {
		t.Errorf("Rcv() = %d, want 9", w.Rcv())
	}
}

func TestWScaleJSONRoundTrip(t *testing.T) {
	w := inetdiag.NewWScale(3, 12)
	b, err := w.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	want := `{"snd":3,"rcv":12}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
	var got inetdiag.WScale
	if err := got.UnmarshalJSON(b); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if got != w {
		t.Errorf("round trip mismatch: got %v, want %v", got, w)
	}
}
