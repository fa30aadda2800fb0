package badger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Key prefixes for different data types
const (
	resourcePrefix     = "libres"
	resourceDatePrefix = "libresd"
)

// makeResourceKey generates a key for a resource row by ID.
func makeResourceKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", resourcePrefix, id))
}

// makeDateKey generates a composite key for the recency index.
// Format: prefix:timestamp:id, with the timestamp in BigEndian order so
// lexicographic sort matches chronological sort.
func makeDateKey(timestamp time.Time, id string) []byte {
	prefix := resourceDatePrefix + ":"
	buf := make([]byte, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	copy(buf[offset:], id)
	return buf
}

// dateIndexPrefix is the common prefix of all recency index keys.
func dateIndexPrefix() []byte {
	return []byte(resourceDatePrefix + ":")
}

// dateIndexSeekLast is a key past every recency index entry, used to seek
// to the newest entry when iterating in reverse.
func dateIndexSeekLast() []byte {
	return append(dateIndexPrefix(), bytes.Repeat([]byte{0xff}, 24)...)
}
