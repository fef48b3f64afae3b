package orbserve

import "time"

func SLEEP_MS(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func SLEEP_SEC(s int) {
	SLEEP_MS(s * 1000)
}

/* Interval between attempts to re-acquire a lost source. */
const SOURCE_RETRY_MS = 500

/* Interval between polls of a file source that has hit EOF (tail mode). */
const FILE_EOF_POLL_MS = 100
