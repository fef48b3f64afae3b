package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	Distribute received blocks to the network clients.
 *
 * Description:	The consumer side of the ring.  Without TPIU each
 *		block goes verbatim to the single default sink.  With
 *		TPIU each byte runs through the frame decoder and the
 *		decoded tuples are steered into per-channel
 *		accumulation blocks which are flushed to their sinks
 *		once the input block is drained (or sooner if one
 *		fills up).
 *
 *---------------------------------------------------------------*/

import "sync/atomic"

/* Per TPIU channel record. */
type handler_t struct {
	channel        byte
	stripped_block *data_block_t /* Processed buffer for output to clients. */
	n              *nwclients_t  /* Link to the network client subsystem. */
}

/*-------------------------------------------------------------------
 *
 * Name:        distribution_thread
 *
 * Purpose:     Consume the ring until shutdown.
 *
 * Description:	Channel lookup is a linear scan over the handler set
 *		with a one slot cache: TPIU coalesces long runs of
 *		bytes from one stream, so the cache hits nearly
 *		always and the scan only matters on a stream switch.
 *
 *		Data errors never stop the loop; only ring shutdown
 *		does.
 *
 *-----------------------------------------------------------------*/

func (r *Daemon) distribution_thread() {
	defer close(r.distrib_done)

	var cached *handler_t

	for {
		var block = r.ring.ring_read_block()
		if block == nil {
			return
		}

		atomic.AddUint64(&r.interval_bytes, uint64(block.fill_level))
		stats_interval_bytes.Add(float64(block.fill_level))

		if !r.options.UseTPIU {
			r.n.nwclient_send(r.outgoing(0, block.buffer[:block.fill_level]))
			r.ring.ring_release_block()
			continue
		}

		for _, b := range block.buffer[:block.fill_level] {
			var ev = r.t.tpiu_pump(b)

			switch ev {
			case TPIU_EV_RXEDPACKET:
				for _, tup := range r.t.tpiu_get_packet() {
					if cached == nil || cached.channel != tup.stream {
						cached = nil
						for i := range r.handler {
							if r.handler[i].channel == tup.stream {
								cached = &r.handler[i]
								break
							}
						}
					}

					if cached == nil {
						/* Unconfigured channel: a filter, not an error. */
						continue
					}

					var sb = cached.stripped_block
					sb.buffer[sb.fill_level] = tup.d
					sb.fill_level++

					if sb.fill_level == TRANSFER_SIZE {
						/* Mid-block flush so the accumulator never
						 * overflows. */
						cached.n.nwclient_send(r.outgoing(cached.channel, sb.buffer[:sb.fill_level]))
						sb.fill_level = 0
					}
				}

			case TPIU_EV_ERROR:
				atomic.AddUint64(&r.tpiu_errors, 1)
				stats_tpiu_lost_frames.Inc()

			default:
			}
		}

		/* Input block fully consumed: flush every channel that
		 * accumulated anything. */
		for i := range r.handler {
			var h = &r.handler[i]
			if h.stripped_block.fill_level > 0 {
				h.n.nwclient_send(r.outgoing(h.channel, h.stripped_block.buffer[:h.stripped_block.fill_level]))
				h.stripped_block.fill_level = 0
			}
		}

		r.ring.ring_release_block()
	}
} /* end distribution_thread */

/* Wrap channel data for the wire.  Raw bytes normally; ORBFLOW frames
 * when the daemon was started in that mode. */
func (r *Daemon) outgoing(channel byte, data []byte) []byte {
	if !r.options.Orbflow {
		return data
	}

	return oflow_encode(channel, data)
}
