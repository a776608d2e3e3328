package tracing

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// Ids are masked to 63 bits so they survive round trips through
// signed integer columns.
const idMask = 1<<63 - 1

// newID returns a random nonzero 63-bit identifier. If the system
// random source fails, it falls back to the current time.
func newID() uint64 {
	var buf [8]byte

	for i := 0; i < 4; i++ {
		if _, err := rand.Read(buf[:]); err != nil {
			break
		}

		id := binary.LittleEndian.Uint64(buf[:]) & idMask
		if id != 0 {
			return id
		}
	}

	return uint64(time.Now().UnixNano()) & idMask
}
