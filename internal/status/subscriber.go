package status

import (
	"strconv"
	"sync/atomic"
)

var subscriberSeq int64

// newSubscriberRef returns a process-unique subscriber key. A counter is
// sufficient here: references are only ever compared within one process for
// the lifetime of the Store, never persisted or compared across restarts.
func newSubscriberRef() string {
	n := atomic.AddInt64(&subscriberSeq, 1)
	return strconv.FormatInt(n, 10)
}

func parseSlideIndex(key string) (int, bool) {
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}
	return n, true
}
