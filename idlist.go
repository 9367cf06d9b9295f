package latticedb

import "sort"

// idList is an ordered sequence of page numbers. It backs the
// free-DB's record values, the in-memory reclaim set, and the
// writer's spill set. The on-disk and serialized forms both carry an
// implicit length at position 0: encodeIDList writes the count first,
// so a record can be validated before its entries are scanned.
type idList []pgno

// idListEntrySize is the serialized width of one pgno entry.
const idListEntrySize = 8

// encodeIDList serializes an ascending idList as a free-DB record
// value: an 8-byte count followed by that many little-endian pgnos.
func encodeIDList(l idList) []byte {
	buf := make([]byte, idListEntrySize+len(l)*idListEntrySize)
	putUint64LE(buf, uint64(len(l)))
	for i, v := range l {
		putUint64LE(buf[idListEntrySize+i*idListEntrySize:], uint64(v))
	}
	return buf
}

// decodeIDList parses a free-DB record value produced by encodeIDList.
func decodeIDList(data []byte) (idList, error) {
	if len(data) < idListEntrySize {
		return nil, NewError(ErrCorrupted)
	}
	n := getUint64LE(data)
	want := idListEntrySize + n*idListEntrySize
	if uint64(len(data)) < want {
		return nil, NewError(ErrCorrupted)
	}
	out := make(idList, n)
	for i := range out {
		out[i] = pgno(getUint64LE(data[idListEntrySize+uint64(i)*idListEntrySize:]))
	}
	return out, nil
}

// appendSortedTail appends v if it is strictly greater than the
// current maximum, preserving ascending order; returns false and
// leaves the list unchanged otherwise.
func (l *idList) appendSortedTail(v pgno) bool {
	if n := len(*l); n > 0 && (*l)[n-1] >= v {
		return false
	}
	*l = append(*l, v)
	return true
}

// appendUnchecked appends v, trusting the caller that order is
// preserved (used by callers that already sort before extending).
func (l *idList) appendUnchecked(v pgno) {
	*l = append(*l, v)
}

// search performs binary search for v in an ascending idList.
func (l idList) search(v pgno) (idx int, found bool) {
	idx = sort.Search(len(l), func(i int) bool { return l[i] >= v })
	return idx, idx < len(l) && l[idx] == v
}

// sortAscending sorts the list in increasing pgno order.
func (l idList) sortAscending() {
	sort.Slice(l, func(i, j int) bool { return l[i] < l[j] })
}

// sortDescending sorts the list in decreasing pgno order, the order
// the in-memory reclaim set is kept in.
func (l idList) sortDescending() {
	sort.Slice(l, func(i, j int) bool { return l[i] > l[j] })
}

// mergeAscending merges two ascending, duplicate-free lists into one
// ascending, duplicate-free list.
func mergeAscending(a, b idList) idList {
	out := make(idList, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// mergeDescendingUnique merges a (already descending) reclaim set
// with a freshly-read free-DB record's ascending id list, producing a
// descending, duplicate-free result.
func mergeDescendingUnique(reclaim idList, fresh idList) idList {
	descFresh := make(idList, len(fresh))
	copy(descFresh, fresh)
	descFresh.sortDescending()

	out := make(idList, 0, len(reclaim)+len(descFresh))
	i, j := 0, 0
	for i < len(reclaim) && j < len(descFresh) {
		switch {
		case reclaim[i] > descFresh[j]:
			out = append(out, reclaim[i])
			i++
		case reclaim[i] < descFresh[j]:
			out = append(out, descFresh[j])
			j++
		default:
			out = append(out, reclaim[i])
			i++
			j++
		}
	}
	out = append(out, reclaim[i:]...)
	out = append(out, descFresh[j:]...)
	return out
}

// spliceRun looks for a run of n consecutive, strictly decreasing
// entries at the tail of a descending-sorted idList - i.e.
// l[i-n+1] == l[i]+n-1 - and if found removes it and returns the
// smallest pgno in the run (the first page of the contiguous range).
// This is the O(1)-amortized contiguous-run reuse path that avoids a
// fresh allocation when the reclaim set already holds exactly the
// shape needed.
func (l *idList) spliceRun(n int) (pgno, bool) {
	s := *l
	if n <= 0 || len(s) < n {
		return 0, false
	}
	for end := len(s) - 1; end >= n-1; end-- {
		start := end - n + 1
		if s[start] != s[end]+pgno(n-1) {
			continue
		}
		first := s[end]
		// Splice out [start, end]; shift the remaining tail down.
		copy(s[start:], s[end+1:])
		*l = s[:len(s)-n]
		return first, true
	}
	return 0, false
}
