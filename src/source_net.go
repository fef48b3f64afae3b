package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	SEGGER RTT source: TCP client to a remote debug
 *		server.
 *
 * Description:	Connects to host:port and blocking-reads transfer
 *		sized blocks into the ring.  Connection refused or a
 *		dropped link are routine here, the debug server comes
 *		and goes with the target, so every failure is a
 *		log line and a retry, never a fatal error.
 *
 *---------------------------------------------------------------*/

import (
	"net"
	"strconv"
)

func (r *Daemon) seg_feeder() error {
	var addr = net.JoinHostPort(r.options.SeggerHost, strconv.Itoa(r.options.SeggerPort))

	for !r.ending.Load() {
		var conn, connErr = net.Dial("tcp", addr)
		if connErr != nil {
			report(V_DEBUG, "No connection to %s yet: %v", addr, connErr)
			SLEEP_MS(SOURCE_RETRY_MS)
			continue
		}

		report(V_INFO, "Connected to SEGGER at %s", addr)
		r.set_source_close(func() { conn.Close() })

		for !r.ending.Load() {
			var block = r.ring.ring_write_block()
			var n, readErr = conn.Read(block.buffer[:])

			if n > 0 {
				r.ring.ring_commit(n)
			}

			if readErr != nil {
				if !r.ending.Load() {
					report(V_INFO, "Lost SEGGER connection: %v", readErr)
				}
				break
			}
		}

		r.set_source_close(nil)
		conn.Close()

		if !r.ending.Load() {
			SLEEP_MS(SOURCE_RETRY_MS)
		}
	}

	return nil
} /* end seg_feeder */
