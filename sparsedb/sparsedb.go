package sparsedb

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"

	"github.com/blyss-go/pir/pirerr"
)

// rowHandle is a reference-counted memory mapping of one row's backing
// file (spec §4.G "mmap reference counting", §9 "Design notes").
type rowHandle struct {
	data []byte
	refs int
}

// Store is a row-granular, memory-mapped sparse database: only rows that
// have been written exist on disk, each as its own file named by decimal
// row index (spec §6 "persistence = flat files named by decimal row
// index"). A sorted index of present row numbers supports efficient
// existence checks without scanning the directory (spec §4.G "sorted-vector
// index").
type Store struct {
	dir string

	mu      sync.RWMutex
	index   []int // sorted row indices present on disk
	handles map[int]*rowHandle
}

// Open creates (if needed) dir and returns a Store backed by it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	s := &Store{dir: dir, handles: make(map[int]*rowHandle)}
	if err := s.rebuildIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) rowPath(row int) string {
	return filepath.Join(s.dir, strconv.Itoa(row))
}

func (s *Store) rebuildIndex() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	idx := make([]int, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		idx = append(idx, n)
	}
	slices.Sort(idx)
	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()
	return nil
}

// Has reports whether row exists, via a binary search over the sorted
// index rather than a filesystem stat.
func (s *Store) Has(row int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, found := slices.BinarySearch(s.index, row)
	return found
}

// PutRow writes data (padded to a 32-byte-aligned buffer) to row's backing
// file, invalidating any existing mapping for that row.
func (s *Store) PutRow(row int, data []byte) error {
	padded := padToAligned(data)
	if err := os.WriteFile(s.rowPath(row), padded, 0o644); err != nil {
		return err
	}

	s.mu.Lock()
	if h, ok := s.handles[row]; ok {
		if h.refs == 0 {
			unix.Munmap(h.data)
		}
		delete(s.handles, row)
	}
	i, found := slices.BinarySearch(s.index, row)
	if !found {
		s.index = append(s.index, 0)
		copy(s.index[i+1:], s.index[i:])
		s.index[i] = row
	}
	s.mu.Unlock()
	return nil
}

// GetRow returns a memory-mapped view of row's data, mapping it on first
// access and incrementing its reference count. Call ReleaseRow when done.
func (s *Store) GetRow(row int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.handles[row]; ok {
		h.refs++
		return h.data, nil
	}

	f, err := os.Open(s.rowPath(row))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: row %d", pirerr.ErrNotFound, row)
		}
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := int(fi.Size())
	if size == 0 {
		return nil, fmt.Errorf("%w: row %d is empty", pirerr.ErrNotFound, row)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	s.handles[row] = &rowHandle{data: data, refs: 1}
	return data, nil
}

// ReleaseRow decrements row's reference count, unmapping it once no caller
// still holds a reference.
func (s *Store) ReleaseRow(row int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handles[row]
	if !ok {
		return
	}
	h.refs--
	if h.refs <= 0 {
		unix.Munmap(h.data)
		delete(s.handles, row)
	}
}

// Close unmaps every currently-mapped row, regardless of outstanding
// reference counts. Intended for process shutdown only.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for row, h := range s.handles {
		unix.Munmap(h.data)
		delete(s.handles, row)
	}
}
