package history

import (
	"path/filepath"
	"testing"
)

func TestCheckpointRoundTrip(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "state", "checkpoint.json"))

	if _, ok, err := store.Load(1, "42"); err != nil || ok {
		t.Fatalf("expected no checkpoint, got ok=%v err=%v", ok, err)
	}
	if err := store.Save(1, "42", 17_000_000); err != nil {
		t.Fatalf("save: %v", err)
	}

	cp, ok, err := store.Load(1, "42")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if cp.LastProcessedBlock != 17_000_000 || cp.UpdatedAt == "" {
		t.Fatalf("checkpoint mismatch: %+v", cp)
	}

	if _, ok, _ := store.Load(1, "43"); ok {
		t.Fatalf("checkpoint of another position must be ignored")
	}
	if _, ok, _ := store.Load(10, "42"); ok {
		t.Fatalf("checkpoint of another chain must be ignored")
	}
}

func TestCheckpointDisabled(t *testing.T) {
	store := NewCheckpointStore("")
	if err := store.Save(1, "42", 10); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := store.Load(1, "42"); err != nil || ok {
		t.Fatalf("disabled store returned ok=%v err=%v", ok, err)
	}
}
