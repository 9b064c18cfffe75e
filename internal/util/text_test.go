package util

import "testing"

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  rit.vx1 "); got != "RIT.VX1" {
		t.Fatalf("got %q", got)
	}
	if got := NormalizeCode("wöhner.01"); got != "WÖHNER.01" {
		t.Fatalf("got %q", got)
	}
}

func TestFoldKey(t *testing.T) {
	if got := FoldKey(" VX8806.030\t"); got != "vx8806.030" {
		t.Fatalf("got %q", got)
	}
}
