package datagrid

import "slices"

// Journal is an append-only log of committed mutations. Replaying a journal
// recorded from a new store into another new store reproduces the state.
// Column mutations carry the *Column itself, so the replayed store shares
// its columns with the recorded one.
type Journal struct {
	entries []Mutation
}

func NewJournal() *Journal { return &Journal{} }

func (j *Journal) record(m Mutation) { j.entries = append(j.entries, m) }

// Entries returns a copy of the recorded mutations, oldest first.
func (j *Journal) Entries() []Mutation { return slices.Clone(j.entries) }

func (j *Journal) Len() int { return len(j.entries) }

// Kinds lists the recorded mutation kinds, oldest first.
func (j *Journal) Kinds() []MutationKind {
	out := make([]MutationKind, len(j.entries))
	for i, m := range j.entries {
		out[i] = m.Kind()
	}
	return out
}

func (j *Journal) Reset() { j.entries = j.entries[:0] }

// Replay commits every entry of j to s in order and returns the union of the
// dirty signals. The entries are snapshotted first, so replaying into a store
// that records into j itself terminates.
func Replay(s *Store, j *Journal) Dirty {
	var d Dirty
	for _, m := range j.Entries() {
		d |= s.Commit(m)
	}
	return d
}
