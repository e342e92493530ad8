package tapeimage

import (
	"path/filepath"
	"testing"

	"github.com/dtape/dt550ctl/dectape"
)

func TestRoundTrip18B(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u0.tap")
	a := Adapter{}
	words := make([]uint32, 20)
	for i := range words {
		words[i] = uint32(i*7 + 1)
	}

	if err := a.Save(path, words, len(words), dectape.Format18B); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, hwmark, err := a.Load(path, dectape.Format18B, 32)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if hwmark != len(words) {
		t.Fatalf("hwmark = %d, want %d", hwmark, len(words))
	}
	for i, w := range words {
		if got[i] != w {
			t.Errorf("word %d = %o, want %o", i, got[i], w)
		}
	}
	for i := len(words); i < 32; i++ {
		if got[i] != 0 {
			t.Errorf("word %d beyond hwmark = %o, want 0", i, got[i])
		}
	}
}

func TestRoundTrip16BTruncatesTo16Bits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u1.tap")
	a := Adapter{}
	words := []uint32{0, 1, 0xFFFF, 0x10000 | 0x1234}

	if err := a.Save(path, words, len(words), dectape.Format16B); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, hwmark, err := a.Load(path, dectape.Format16B, len(words))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if hwmark != len(words) {
		t.Fatalf("hwmark = %d, want %d", hwmark, len(words))
	}
	want := []uint32{0, 1, 0xFFFF, 0x1234}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("word %d = %o, want %o", i, got[i], want[i])
		}
	}
}

func TestRoundTrip12BPacking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u2.tap")
	a := Adapter{}
	words := []uint32{0o654321, 0o123456, 0, dectape.Mask18}

	if err := a.Save(path, words, len(words), dectape.Format12B); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, hwmark, err := a.Load(path, dectape.Format12B, len(words))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if hwmark != len(words) {
		t.Fatalf("hwmark = %d, want %d", hwmark, len(words))
	}
	for i, w := range words {
		if got[i] != w {
			t.Errorf("word %d = %o, want %o", i, got[i], w)
		}
	}
}

func TestLoadMissingFileZeroPads(t *testing.T) {
	a := Adapter{}
	got, hwmark, err := a.Load(filepath.Join(t.TempDir(), "missing.tap"), dectape.Format18B, 8)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if hwmark != 0 {
		t.Errorf("hwmark = %d, want 0", hwmark)
	}
	for i, w := range got {
		if w != 0 {
			t.Errorf("word %d = %o, want 0", i, w)
		}
	}
}
