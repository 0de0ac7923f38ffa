// Package mm implements the memory manager and trap-adjacent virtual
// memory bookkeeping: the VMA map, copy-on-write fault
// resolution, and file-backed mapping lifecycle. The VMA map is kept
// in a google/btree ordered tree rather than a Vec/BTreeMap port,
// matching how the example pack's gvisor forks index their own VMA
// sets.
package mm

import (
	"sync"

	"github.com/google/btree"
)

// Perm is a page permission bitmask.
type Perm uint8

const (
	PermRead Perm = 1 << iota
	PermWrite
	PermExec
)

// VMA is one virtual memory area: a contiguous range of guest virtual
// addresses with uniform permissions and backing.
type VMA struct {
	Start, End uintptr // [Start, End)
	Perm       Perm
	Private    bool // copy-on-write on write fault
	File       *FileMapping
	FileOffset uint64
}

func (v *VMA) Less(than btree.Item) bool {
	return v.Start < than.(*VMA).Start
}

func (v *VMA) contains(addr uintptr) bool {
	return addr >= v.Start && addr < v.End
}

// VMASet is the ordered set of non-overlapping VMAs for one address
// space.
type VMASet struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

// NewVMASet returns an empty VMA set.
func NewVMASet() *VMASet {
	return &VMASet{tree: btree.New(32)}
}

// Insert adds v to the set. Callers must ensure v does not overlap any
// existing VMA: the set's invariant is that VMAs are non-overlapping.
func (s *VMASet) Insert(v *VMA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(v)
}

// Remove deletes v (the VMA keyed by v.Start), if present.
func (s *VMASet) Remove(v *VMA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Delete(v)
}

// Find returns the VMA containing addr, if any.
func (s *VMASet) Find(addr uintptr) (*VMA, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *VMA
	s.tree.DescendLessOrEqual(&VMA{Start: addr}, func(it btree.Item) bool {
		v := it.(*VMA)
		if v.contains(addr) {
			found = v
		}
		return false
	})
	return found, found != nil
}

// Range calls fn for every VMA overlapping [start, end), in address
// order, stopping early if fn returns false.
func (s *VMASet) Range(start, end uintptr, fn func(*VMA) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	more := true
	s.tree.DescendLessOrEqual(&VMA{Start: start}, func(it btree.Item) bool {
		if v := it.(*VMA); v.Start < start && v.End > start {
			more = fn(v)
		}
		return false
	})
	if !more {
		return
	}
	s.tree.AscendRange(&VMA{Start: start}, &VMA{Start: end}, func(it btree.Item) bool {
		return fn(it.(*VMA))
	})
}
