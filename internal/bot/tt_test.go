package bot

import "testing"

func TestTranspositionTable_CollidingHashesMiss(t *testing.T) {
	tt := NewTranspositionTable(8)
	hashA, hashB := uint64(3), uint64(3+8*1000)
	tt.Set(hashA, 1.5)
	tt.Set(hashB, -2.5)

	if v, ok := tt.Get(hashA); ok {
		t.Errorf("Get(hashA) = %v, want miss after colliding Set", v)
	}
	if v, ok := tt.Get(hashB); !ok || v != -2.5 {
		t.Errorf("Get(hashB) = %v, %v, want -2.5", v, ok)
	}
}

func TestTranspositionTable_EmptySlotMiss(t *testing.T) {
	tt := NewTranspositionTable(4)
	// A zero hash must not match the zero value of an unused slot.
	if _, ok := tt.Get(0); ok {
		t.Error("Get on an empty table should miss")
	}
	tt.Set(0, 0.25)
	if v, ok := tt.Get(0); !ok || v != 0.25 {
		t.Errorf("Get(0) = %v, %v, want 0.25", v, ok)
	}
}

func TestTranspositionTable_Stats(t *testing.T) {
	tt := NewTranspositionTable(16)
	tt.Set(5, 1)
	tt.Get(5)
	tt.Get(5)
	tt.Get(6)
	hits, misses := tt.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("stats = %d hits, %d misses, want 2, 1", hits, misses)
	}
	tt.Clear()
	if _, ok := tt.Get(5); ok {
		t.Error("entry survived Clear")
	}
}

func TestTranspositionTable_DefaultCapacity(t *testing.T) {
	if got := NewTranspositionTable(0).Capacity(); got != DefaultTTCapacity {
		t.Errorf("capacity = %d, want %d", got, DefaultTTCapacity)
	}
}
