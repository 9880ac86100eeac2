// Package shm provides a fixed-capacity slot table in memory shared between
// a parent process and the worker processes it starts.
//
// The table lives in an unlinked temporary file that is mapped MAP_SHARED.
// Children inherit the file descriptor and map the same pages with Attach.
// Capacity is always a power of two and never changes after creation.
//
// Writers are partitioned by index, so a slot has exactly one writer. Each
// slot's state word is published with an atomic store after its payload is
// in place; a reader that observes a non-empty state also observes the
// payload.
package shm

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/YuminosukeSato/goml/pkg/errors"
)

// State of a slot.
type State uint32

const (
	Empty State = iota
	Ready
	TaskFailed
	EncodeFailed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Ready:
		return "ready"
	case TaskFailed:
		return "task-failed"
	case EncodeFailed:
		return "encode-failed"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// Slot is a copy of one table entry.
type Slot struct {
	State State
	Data  []byte
}

// IndexError reports an access outside [0, Capacity).
type IndexError struct {
	Index    int
	Capacity int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("shm: slot %d out of range [0, %d)", e.Index, e.Capacity)
}

const (
	magic      = 0x474d4c54 // "GMLT"
	headerSize = 16
	slotHeader = 8 // state uint32 | length uint32
)

// Table is a pre-allocated array of fixed-width slots.
type Table struct {
	file     *os.File
	mem      []byte
	capacity int
	slotSize int
	stride   int
}

// NewTable creates a table with at least minSlots slots, each holding up to
// slotSize payload bytes.
func NewTable(minSlots, slotSize int) (*Table, error) {
	if minSlots < 0 || slotSize < 0 {
		return nil, errors.NewValidationError("shm.NewTable", "size must not be negative", fmt.Sprintf("%d x %d", minSlots, slotSize))
	}
	capacity := NextPowerOfTwo(minSlots)
	stride := strideFor(slotSize)
	size := headerSize + capacity*stride

	f, err := os.CreateTemp(tempDir(), "goml-shm-*")
	if err != nil {
		return nil, errors.Wrap(err, "shm: create backing file")
	}
	// the open descriptor keeps the pages alive; no name needs to outlive us
	_ = os.Remove(f.Name())
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "shm: size backing file")
	}
	mem, err := mapFile(f, size)
	if err != nil {
		f.Close()
		return nil, err
	}

	binary.LittleEndian.PutUint32(mem[0:], magic)
	binary.LittleEndian.PutUint32(mem[4:], uint32(capacity))
	binary.LittleEndian.PutUint32(mem[8:], uint32(slotSize))

	return &Table{file: f, mem: mem, capacity: capacity, slotSize: slotSize, stride: stride}, nil
}

// Attach maps a table created by NewTable in another process, typically
// received through exec.Cmd.ExtraFiles.
func Attach(f *os.File) (*Table, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "shm: stat inherited table")
	}
	size := int(info.Size())
	if size < headerSize {
		return nil, errors.Newf("shm: inherited file is %d bytes, too small for a table", size)
	}
	mem, err := mapFile(f, size)
	if err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(mem[0:]) != magic {
		_ = unmap(mem)
		return nil, errors.New("shm: inherited file is not a slot table")
	}
	capacity := int(binary.LittleEndian.Uint32(mem[4:]))
	slotSize := int(binary.LittleEndian.Uint32(mem[8:]))
	stride := strideFor(slotSize)
	if headerSize+capacity*stride > size {
		_ = unmap(mem)
		return nil, errors.Newf("shm: table header claims %d slots of %d bytes but file has %d bytes", capacity, slotSize, size)
	}
	return &Table{file: f, mem: mem, capacity: capacity, slotSize: slotSize, stride: stride}, nil
}

// File returns the backing file, to be handed to a child process.
func (t *Table) File() *os.File { return t.file }

// Capacity returns the number of slots.
func (t *Table) Capacity() int { return t.capacity }

// SlotSize returns the maximum payload per slot.
func (t *Table) SlotSize() int { return t.slotSize }

// Put stores b in slot i and marks it Ready.
func (t *Table) Put(i int, b []byte) error {
	if err := t.check(i); err != nil {
		return err
	}
	if len(b) > t.slotSize {
		return errors.Wrapf(errors.ErrSlotOverflow, "slot %d: %d bytes, width %d", i, len(b), t.slotSize)
	}
	t.publish(i, Ready, b)
	return nil
}

// Fail marks slot i as failed with the given state and a message, truncated
// to the slot width.
func (t *Table) Fail(i int, state State, msg string) error {
	if err := t.check(i); err != nil {
		return err
	}
	if state == Empty || state == Ready {
		return errors.Newf("shm: %s is not a failure state", state)
	}
	b := []byte(msg)
	if len(b) > t.slotSize {
		b = b[:t.slotSize]
	}
	t.publish(i, state, b)
	return nil
}

// Get returns a copy of slot i.
func (t *Table) Get(i int) (Slot, error) {
	if err := t.check(i); err != nil {
		return Slot{}, err
	}
	off := t.offset(i)
	state := State(atomic.LoadUint32(t.word(off)))
	if state == Empty {
		return Slot{State: Empty}, nil
	}
	n := int(binary.LittleEndian.Uint32(t.mem[off+4:]))
	if n > t.slotSize {
		return Slot{}, errors.Newf("shm: slot %d has corrupt length %d", i, n)
	}
	data := make([]byte, n)
	copy(data, t.mem[off+slotHeader:off+slotHeader+n])
	return Slot{State: state, Data: data}, nil
}

// Claim assigns the caller, identified by a non-zero pid, the lowest slot
// not yet held by another caller and returns its index. Claiming again with
// the same pid returns the same index. With k claimers the indices handed
// out are exactly 0..k-1.
func (t *Table) Claim(pid int) (int, error) {
	if pid <= 0 {
		return -1, errors.NewValidationError("pid", "must be positive", pid)
	}
	id := uint32(pid)
	for i := 0; i < t.capacity; i++ {
		w := t.word(t.offset(i))
		for {
			cur := atomic.LoadUint32(w)
			if cur == id {
				return i, nil
			}
			if cur != 0 {
				break
			}
			if atomic.CompareAndSwapUint32(w, 0, id) {
				return i, nil
			}
		}
	}
	return -1, errors.Newf("shm: all %d claim slots taken", t.capacity)
}

// Claimant returns the pid holding slot i, or 0.
func (t *Table) Claimant(i int) (int, error) {
	if err := t.check(i); err != nil {
		return 0, err
	}
	return int(atomic.LoadUint32(t.word(t.offset(i)))), nil
}

// Close unmaps the table and closes its file.
func (t *Table) Close() error {
	var err error
	if t.mem != nil {
		err = unmap(t.mem)
		t.mem = nil
	}
	if t.file != nil {
		err = errors.CombineErrors(err, t.file.Close())
		t.file = nil
	}
	return err
}

func (t *Table) publish(i int, state State, b []byte) {
	off := t.offset(i)
	copy(t.mem[off+slotHeader:], b)
	binary.LittleEndian.PutUint32(t.mem[off+4:], uint32(len(b)))
	atomic.StoreUint32(t.word(off), uint32(state))
}

func (t *Table) check(i int) error {
	if i < 0 || i >= t.capacity {
		return errors.WithStack(&IndexError{Index: i, Capacity: t.capacity})
	}
	if t.mem == nil {
		return errors.New("shm: table is closed")
	}
	return nil
}

func (t *Table) offset(i int) int { return headerSize + i*t.stride }

func (t *Table) word(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&t.mem[off]))
}

// NextPowerOfTwo returns the smallest power of two >= n, and 1 for n <= 1.
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// strideFor keeps every slot's state word 8-byte aligned.
func strideFor(slotSize int) int {
	return (slotHeader + slotSize + 7) &^ 7
}

func tempDir() string {
	if fi, err := os.Stat("/dev/shm"); err == nil && fi.IsDir() {
		return "/dev/shm"
	}
	return ""
}
