package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	COBS (Consistent Overhead Byte Stuffing) frame codec.
 *
 * Description: A frame on the wire never contains the sync byte 0x00
 *		except as the single terminating delimiter.  Data is
 *		carved into runs of up to 254 non-zero bytes, each
 *		preceded by a count byte.  A count below 0xFF implies
 *		a zero data byte after the run, except at the end of
 *		the frame.
 *
 *		The encoder is stateless.  The decoder is a pump which
 *		is fed arbitrary slices of the incoming stream and
 *		fires a callback for each completed frame, so frames
 *		may span any number of input blocks.
 *
 *---------------------------------------------------------------*/

/* Frame delimiter.  The only byte value that can never appear inside
 * an encoded frame. */
const COBS_SYNC_CHAR = 0x00

/* Longest run of data bytes between count bytes. */
const COBS_MAX_RUN = 254

/* Longest decoded frame we will reassemble.  Anything bigger is
 * discarded and the decoder resynchronises at the next sync byte. */
const COBS_MAX_PACKET_LEN = 8192

type cobs_t struct {
	p            []byte /* Reassembly buffer for the frame in progress. */
	remaining    int    /* Data bytes left in the current run. */
	pending_zero bool   /* A zero is implied before the next run starts. */
	in_frame     bool   /* Seen at least one count byte since the last sync. */
	overlong     bool   /* Frame exceeded COBS_MAX_PACKET_LEN; eat until sync. */

	error_count uint64 /* Frames discarded: length overflow or truncation. */
}

/*-------------------------------------------------------------------
 *
 * Name:        cobs_init
 *
 * Purpose:     Create a decoder pump.
 *
 *-----------------------------------------------------------------*/

func cobs_init() *cobs_t {
	return &cobs_t{
		p: make([]byte, 0, COBS_MAX_PACKET_LEN),
	}
}

/* True for the byte value that terminates a frame. */
func cobs_is_eoframe(b byte) bool {
	return b == COBS_SYNC_CHAR
}

/*-------------------------------------------------------------------
 *
 * Name:        cobs_encode
 *
 * Purpose:     Encode one frame.
 *
 * Inputs:	front	- Bytes to place before the body.  May be nil.
 *		back	- Bytes to place after the body.  May be nil.
 *		body	- Frame body.
 *
 * Returns:	The encoded frame, terminated by a single sync byte.
 *		Decoding it reconstructs front, body, back concatenated
 *		in that order.
 *
 * Description:	front and back exist so a caller layering its own
 *		header and trailer around a payload does not have to
 *		assemble an intermediate copy first.
 *
 *-----------------------------------------------------------------*/

func cobs_encode(front []byte, back []byte, body []byte) []byte {
	var raw = make([]byte, 0, len(front)+len(body)+len(back))
	raw = append(raw, front...)
	raw = append(raw, body...)
	raw = append(raw, back...)

	/* Worst case one extra count byte per 254, plus leading count and
	 * trailing sync. */
	var out = make([]byte, 0, len(raw)+len(raw)/COBS_MAX_RUN+2)

	var run_start = 0
	var flush = func(end int) {
		out = append(out, byte(end-run_start+1))
		out = append(out, raw[run_start:end]...)
	}

	var i = 0
	for ; i < len(raw); i++ {
		if raw[i] == COBS_SYNC_CHAR {
			flush(i)
			run_start = i + 1
		} else if i-run_start == COBS_MAX_RUN-1 {
			/* Run is full: 254 data bytes under a 0xFF count, no
			 * implied zero. */
			out = append(out, 0xFF)
			out = append(out, raw[run_start:i+1]...)
			run_start = i + 1
		}
	}

	/* Final (possibly empty) run. */
	flush(len(raw))

	out = append(out, COBS_SYNC_CHAR)

	return out
} /* end cobs_encode */

/*-------------------------------------------------------------------
 *
 * Name:        cobs_pump
 *
 * Purpose:     Push received bytes through the decoder.
 *
 * Inputs:	data	- Any slice of the incoming stream, including
 *			  an empty one.
 *		cb	- Called once per completed frame.  The slice
 *			  argument points into the reassembly buffer
 *			  and is only valid for the duration of the
 *			  call.
 *
 * Description:	Garbage before a sync byte is consumed silently; the
 *		decoder resynchronises at every sync.  Back to back
 *		sync bytes do not produce empty frames.  A frame whose
 *		decoded length would exceed COBS_MAX_PACKET_LEN is
 *		dropped, the error counter incremented, and a resync
 *		forced.
 *
 *-----------------------------------------------------------------*/

func (c *cobs_t) cobs_pump(data []byte, cb func(decoded []byte)) {
	for _, b := range data {
		if cobs_is_eoframe(b) {
			if c.overlong || c.remaining > 0 {
				/* Oversized, or the sync arrived while a run still
				 * owed bytes: garbage either way. */
				c.error_count++
			} else if c.in_frame && len(c.p) > 0 {
				cb(c.p)
			}

			/* Note an implied trailing zero is never emitted; the
			 * count preceding the final run describes data only. */
			c.p = c.p[:0]
			c.remaining = 0
			c.pending_zero = false
			c.in_frame = false
			c.overlong = false
			continue
		}

		if c.overlong {
			continue
		}

		if c.remaining == 0 {
			/* Count byte starting a new run. */
			if c.pending_zero {
				c.p = append(c.p, 0)
			}
			c.remaining = int(b) - 1
			c.pending_zero = b != 0xFF
			c.in_frame = true
		} else {
			c.p = append(c.p, b)
			c.remaining--
		}

		if len(c.p) > COBS_MAX_PACKET_LEN {
			c.p = c.p[:0]
			c.overlong = true
		}
	}
} /* end cobs_pump */
