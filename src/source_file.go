package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	File source.
 *
 * Description:	Reads transfer sized blocks from a file into the
 *		ring.  At EOF it either stops (terminate-on-EOF) or
 *		keeps polling so a file being appended to behaves
 *		like a live source.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"os"
)

func (r *Daemon) file_feeder() error {
	var f, openErr = os.Open(r.options.File)
	if openErr != nil {
		report(V_ERROR, "Can't open file %s: %v", r.options.File, openErr)
		return fmt.Errorf("%w: %v", ErrFileOpen, openErr)
	}
	defer f.Close()

	r.set_source_close(func() { f.Close() })
	defer r.set_source_close(nil)

	for !r.ending.Load() {
		var block = r.ring.ring_write_block()
		var n, readErr = f.Read(block.buffer[:])

		if n > 0 {
			r.ring.ring_commit(n)
			continue
		}

		if readErr != nil && readErr != io.EOF {
			if r.ending.Load() {
				break
			}
			report(V_ERROR, "Read failure on %s: %v", r.options.File, readErr)
			break
		}

		/* Nothing there (yet). */
		if r.options.FileTerminate {
			break
		}

		SLEEP_MS(FILE_EOF_POLL_MS)
	}

	return nil
} /* end file_feeder */
