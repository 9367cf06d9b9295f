package latticedb

import "bytes"

// prefetchPage is a hint that data will be read soon. There is no portable
// way to issue a cache prefetch from pure Go, so this is a no-op; the
// call sites tolerate that since it's only ever a hint.
func prefetchPage(data []byte) {}

// getKeyAndCompareAsm extracts the key stored in the node at idx on a page
// and compares it against searchKey, in one pass so callers avoid a
// separate nodeGetKey allocation on the hot search path.
func getKeyAndCompareAsm(pageData []byte, idx int, searchKey []byte) int {
	offsetPos := pageHeaderSize + idx*2
	storedOffset := uint16(pageData[offsetPos]) | uint16(pageData[offsetPos+1])<<8
	offset := int(storedOffset) + pageHeaderSize

	keySize := int(uint16(pageData[offset+6]) | uint16(pageData[offset+7])<<8)
	keyStart := offset + 8
	nodeKey := pageData[keyStart : keyStart+keySize]

	return bytes.Compare(searchKey, nodeKey)
}

func compareKeysAsm(a, b []byte) int {
	return bytes.Compare(a, b)
}

// searchPageAsm returns -1 to tell the caller no specialized path applies
// here and it should fall back to the general binary search in cursor.go.
func searchPageAsm(pageData []byte, key []byte, isBranch bool) int {
	return -1
}

func binarySearchLeaf8(pageData []byte, key uint64, n int) int {
	return -1
}

func binarySearchBranch8(pageData []byte, key uint64, n int) int {
	return -1
}
