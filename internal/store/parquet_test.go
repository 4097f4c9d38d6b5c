package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/freeeve/blockfall/internal/model"
)

func TestBatchWriter_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter(dir)
	if err != nil {
		t.Fatal(err)
	}

	plies := []model.Ply{
		{GameID: "g1", Ply: 1, Position: "////////////////////// I O 0", Piece: "I", X: 0, Y: 18, Rot: 1, Actions: "ccw,left,drop", Eval: -0.5},
		{GameID: "g1", Ply: 2, Position: "//////////////////////I/ O T 0", Holes: 1, Bumpiness: 4, Height: 4, Piece: "O", X: 8, Y: 20, Cleared: 1, ScoreAfter: 40},
	}
	for _, p := range plies {
		if err := w.Record(p); err != nil {
			t.Fatal(err)
		}
	}
	if w.Rows() != 2 {
		t.Errorf("Rows = %d, want 2", w.Rows())
	}

	path, n, err := w.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || filepath.Dir(path) != dir {
		t.Fatalf("Finalize = %q, %d", path, n)
	}
	if entries, _ := os.ReadDir(filepath.Join(dir, "tmp")); len(entries) != 0 {
		t.Errorf("tmp dir still holds %d files", len(entries))
	}

	rows, err := ReadPlies(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("read %d rows, want 2", len(rows))
	}
	if rows[0] != RowFromPly(plies[0]) || rows[1] != RowFromPly(plies[1]) {
		t.Errorf("rows = %+v", rows)
	}
}

func TestBatchWriter_EmptyFinalize(t *testing.T) {
	dir := t.TempDir()
	w, err := NewBatchWriter(dir)
	if err != nil {
		t.Fatal(err)
	}
	path, n, err := w.Finalize()
	if err != nil || path != "" || n != 0 {
		t.Fatalf("Finalize = %q, %d, %v", path, n, err)
	}
	if err := w.Record(model.Ply{GameID: "late"}); err == nil {
		t.Error("write after finalize succeeded")
	}
	if _, _, err := w.Finalize(); err != nil {
		t.Errorf("second Finalize: %v", err)
	}
}

func TestBatchWriter_Concurrent(t *testing.T) {
	w, err := NewBatchWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 1; i <= 25; i++ {
				w.Record(model.Ply{GameID: string(rune('a' + g)), Ply: i})
			}
		}(g)
	}
	wg.Wait()
	path, n, err := w.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	rows, err := ReadPlies(path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 100 || len(rows) != 100 {
		t.Errorf("wrote %d, read %d, want 100", n, len(rows))
	}
}

func TestNewBatchWriter_RequiresDir(t *testing.T) {
	if _, err := NewBatchWriter(""); err == nil {
		t.Error("expected error for empty dir")
	}
}
