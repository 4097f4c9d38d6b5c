package bot

// DefaultTTCapacity is the slot count of a search's transposition table.
const DefaultTTCapacity = 16384

type ttEntry struct {
	hash  uint64
	score float64
	used  bool
}

// TranspositionTable memoizes leaf scores by position hash. Each hash maps
// to one slot (hash mod capacity); Set always overwrites the slot and Get
// only answers when the stored hash matches exactly.
type TranspositionTable struct {
	slots  []ttEntry
	hits   int
	misses int
}

// NewTranspositionTable allocates a table with the given number of slots.
// A non-positive capacity uses DefaultTTCapacity.
func NewTranspositionTable(capacity int) *TranspositionTable {
	if capacity <= 0 {
		capacity = DefaultTTCapacity
	}
	return &TranspositionTable{slots: make([]ttEntry, capacity)}
}

func (t *TranspositionTable) index(hash uint64) int {
	return int(hash % uint64(len(t.slots)))
}

// Get returns the cached score for hash.
func (t *TranspositionTable) Get(hash uint64) (float64, bool) {
	e := &t.slots[t.index(hash)]
	if !e.used || e.hash != hash {
		t.misses++
		return 0, false
	}
	t.hits++
	return e.score, true
}

// Set stores score for hash, replacing whatever occupied the slot.
func (t *TranspositionTable) Set(hash uint64, score float64) {
	t.slots[t.index(hash)] = ttEntry{hash: hash, score: score, used: true}
}

// Capacity returns the number of slots.
func (t *TranspositionTable) Capacity() int { return len(t.slots) }

// Stats returns the hit and miss counts since the last ResetStats.
func (t *TranspositionTable) Stats() (hits, misses int) { return t.hits, t.misses }

// ResetStats zeroes the hit and miss counters without touching entries.
func (t *TranspositionTable) ResetStats() { t.hits, t.misses = 0, 0 }

// Clear drops every entry.
func (t *TranspositionTable) Clear() {
	clear(t.slots)
	t.ResetStats()
}
