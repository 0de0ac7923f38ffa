package mm

import "sync"

// FileMapping is the backing object for a file-mapped VMA: enough
// state to service a page fault by reading the right file offset, and
// to support MapFile/RemapFile/ResetFileMapping.
type FileMapping struct {
	mu       sync.Mutex
	fd       int32
	size     uint64
	refcount int32
}

// NewFileMapping wraps an open file descriptor as mappable backing.
func NewFileMapping(fd int32, size uint64) *FileMapping {
	return &FileMapping{fd: fd, size: size, refcount: 1}
}

func (f *FileMapping) FD() int32 { return f.fd }

func (f *FileMapping) Size() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// Ref increments the mapping's reference count, called whenever a new
// VMA is created against this file (including a COW child sharing the
// read-only backing until the first write).
func (f *FileMapping) Ref() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refcount++
}

// Unref decrements the reference count, returning true if it reached
// zero (the caller should then close the fd).
func (f *FileMapping) Unref() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refcount--
	return f.refcount == 0
}

// MapFile creates a new VMA backed by file at the given file offset,
// inserting it into vmas.
func MapFile(vmas *VMASet, start, end uintptr, perm Perm, file *FileMapping, offset uint64, private bool) *VMA {
	file.Ref()
	v := &VMA{
		Start:      start,
		End:        end,
		Perm:       perm,
		Private:    private,
		File:       file,
		FileOffset: offset,
	}
	vmas.Insert(v)
	return v
}

// RemapFile changes v's address range in place, re-keying it in vmas.
// Used by mremap-style syscalls that move or resize a mapping without
// changing its backing file or offset.
func RemapFile(vmas *VMASet, v *VMA, newStart, newEnd uintptr) {
	vmas.Remove(v)
	v.Start, v.End = newStart, newEnd
	vmas.Insert(v)
}

// ResetFileMapping severs v from its file backing (e.g. after
// MADV_DONTNEED on a private mapping unwinds its COW state back to the
// original file contents), decrementing the file's refcount.
func ResetFileMapping(v *VMA) {
	if v.File != nil && v.File.Unref() {
		// Caller (mm package's owner) is responsible for closing the fd;
		// this package only tracks the refcount reaching zero.
	}
	v.File = nil
	v.FileOffset = 0
}
