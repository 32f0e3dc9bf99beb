package qdrant

import "testing"

func TestPointIDStable(t *testing.T) {
	a := PointID("Senior Python role requires async experience")
	b := PointID("Senior Python role requires async experience")
	if a != b {
		t.Fatalf("same text produced different ids: %s vs %s", a, b)
	}
	if c := PointID("different passage"); c == a {
		t.Fatalf("different text produced the same id")
	}
}
