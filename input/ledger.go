package input

import (
	"cmp"
	"fmt"
	"slices"
)

// shrinkThreshold is the record capacity above which an emptied record is
// released instead of reused.
const shrinkThreshold = 64 * 1024

type mark struct {
	at   int64
	refs int
}

// ledger retains the bytes still reachable by some active checkpoint.
//
// record[head:] holds exactly the bytes of [offset, end()). checkpoints is
// sorted by offset; its first entry is the retention frontier.
type ledger struct {
	offset      int64
	checkpoints []mark
	record      []byte
	head        int
}

func (l *ledger) len() int {
	return len(l.record) - l.head
}

func (l *ledger) end() int64 {
	return l.offset + int64(l.len())
}

func (l *ledger) push(p []byte) {
	l.record = append(l.record, p...)
}

func (l *ledger) recording() bool {
	return len(l.checkpoints) > 0
}

// firstCheckpoint returns the smallest active checkpoint, or end() when
// nothing is checkpointed.
func (l *ledger) firstCheckpoint() int64 {
	if len(l.checkpoints) == 0 {
		return l.end()
	}
	return l.checkpoints[0].at
}

func (l *ledger) find(at int64) (int, bool) {
	return slices.BinarySearchFunc(l.checkpoints, at, func(m mark, at int64) int {
		return cmp.Compare(m.at, at)
	})
}

func (l *ledger) refs(at int64) int {
	if i, ok := l.find(at); ok {
		return l.checkpoints[i].refs
	}
	return 0
}

// setCheckpoint adds a reference to at. The first checkpoint of a retention
// window drops everything buffered before at.
func (l *ledger) setCheckpoint(at int64) {
	if !l.recording() {
		l.discard(at)
	}
	i, ok := l.find(at)
	if ok {
		l.checkpoints[i].refs++
		return
	}
	l.checkpoints = slices.Insert(l.checkpoints, i, mark{at: at, refs: 1})
}

// rewind drops one reference to at. Passing a checkpoint the ledger does not
// hold is a caller bug and panics.
func (l *ledger) rewind(at int64) {
	i, ok := l.find(at)
	if !ok {
		panic(fmt.Sprintf("input: no such checkpoint %d", at))
	}
	l.checkpoints[i].refs--
	if l.checkpoints[i].refs == 0 {
		l.checkpoints = slices.Delete(l.checkpoints, i, i+1)
	}
}

// pop moves up to len(p) bytes from the front of the record into p. It never
// crosses the retention frontier; the bytes are gone afterwards.
func (l *ledger) pop(pos int64, p []byte) int {
	if pos != l.offset {
		panic(fmt.Sprintf("input: pop at %d, record starts at %d", pos, l.offset))
	}
	limit := min(l.firstCheckpoint(), l.end()) - pos
	n := int(min(int64(len(p)), limit))
	copy(p, l.record[l.head:l.head+n])
	l.head += n
	l.offset += int64(n)
	l.compact()
	return n
}

// popRef copies up to len(p) bytes starting at pos into p, leaving the record
// untouched.
func (l *ledger) popRef(pos int64, p []byte) int {
	if pos < l.offset || pos >= l.end() {
		panic(fmt.Sprintf("input: replay at %d outside [%d, %d)", pos, l.offset, l.end()))
	}
	from := l.head + int(pos-l.offset)
	return copy(p, l.record[from:])
}

// release drops the bytes that no read can reach any more: everything before
// both the reader position and the retention frontier.
func (l *ledger) release(pos int64) {
	l.discard(min(pos, l.firstCheckpoint()))
}

// discard drops buffered bytes before at. When at lies past the buffered
// range the record restarts empty at at.
func (l *ledger) discard(at int64) {
	switch {
	case at <= l.offset:
		return
	case at >= l.end():
		l.head = 0
		l.record = l.record[:0]
		l.offset = at
	default:
		l.head += int(at - l.offset)
		l.offset = at
	}
	l.compact()
}

func (l *ledger) compact() {
	switch {
	case l.head == len(l.record):
		if cap(l.record) > shrinkThreshold {
			l.record = nil
		} else {
			l.record = l.record[:0]
		}
		l.head = 0
	case l.head > len(l.record)/2:
		n := copy(l.record, l.record[l.head:])
		l.record = l.record[:n]
		l.head = 0
	}
}
