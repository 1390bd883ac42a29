package record

import (
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	processUnique = func() [5]byte {
		u := uuid.New()
		var b [5]byte
		copy(b[:], u[:5])
		return b
	}()
	tempCounter = func() uint32 {
		u := uuid.New()
		return binary.BigEndian.Uint32(u[:4]) & 0xffffff
	}()
)

// NewTempID returns a 24 hex chars identifier: 4 bytes of unix seconds, 5
// process unique bytes and a 3 bytes counter. Ids generated later sort after
// ids generated earlier within the same process.
func NewTempID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(time.Now().Unix()))
	copy(b[4:9], processUnique[:])
	c := atomic.AddUint32(&tempCounter, 1)
	b[9] = byte(c >> 16)
	b[10] = byte(c >> 8)
	b[11] = byte(c)
	return hex.EncodeToString(b[:])
}
