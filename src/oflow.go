package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	ORBFLOW message framing over COBS.
 *
 * Description:	Each frame carries a one byte channel tag, a payload,
 *		and a one byte checksum chosen so the 8 bit wrapping
 *		sum of the whole decoded frame is zero.  Frames are
 *		timestamped on receive; all frames decoded from one
 *		input block share the block's arrival time so that the
 *		stamps reflect causal arrival order rather than
 *		per-byte clock reads.
 *
 *---------------------------------------------------------------*/

import "time"

const OFLOW_EOFRAME = COBS_SYNC_CHAR

/* Smallest decodable frame: tag plus checksum. */
const OFLOW_MIN_PACKET_LEN = 2

type oflow_frame_t struct {
	tag    byte   /* Channel tag. */
	tstamp uint64 /* Arrival time of the enclosing block, ns since epoch. */
	d      []byte /* Payload.  Valid only inside the callback. */
	sum    byte   /* Checksum byte as received. */
	good   bool   /* Checksum verified. */
}

type oflow_t struct {
	c *cobs_t

	block_tstamp uint64 /* Stamp applied to frames from the current block. */

	error_count uint64 /* Short frames dropped. */
}

func oflow_init() *oflow_t {
	return &oflow_t{
		c: cobs_init(),
	}
}

func oflow_is_eoframe(b byte) bool {
	return cobs_is_eoframe(b)
}

/*-------------------------------------------------------------------
 *
 * Name:        oflow_encode
 *
 * Purpose:     Encode one message.
 *
 * Inputs:	channel	- Channel tag, 0..255.
 *		payload	- Message body.
 *
 * Returns:	COBS frame whose decoded content is
 *		tag, payload, checksum with wrapping sum zero.
 *
 *-----------------------------------------------------------------*/

func oflow_encode(channel byte, payload []byte) []byte {
	var sum = channel
	for _, b := range payload {
		sum += b
	}

	return cobs_encode([]byte{channel}, []byte{byte(-sum)}, payload)
} /* end oflow_encode */

/*-------------------------------------------------------------------
 *
 * Name:        oflow_pump
 *
 * Purpose:     Push one received block through the decoder.
 *
 * Inputs:	data	- Bytes of the block, in arrival order.
 *		cb	- Called once per decoded frame.  The frame's
 *			  payload points into the reassembly buffer
 *			  and is only valid for the duration of the
 *			  call.
 *
 * Description:	Frames shorter than tag plus checksum increment the
 *		error counter and are dropped without a callback.
 *		Checksum failures are delivered with good set false so
 *		the caller can count or inspect them.
 *
 *-----------------------------------------------------------------*/

func (o *oflow_t) oflow_pump(data []byte, cb func(frame *oflow_frame_t)) {
	o.block_tstamp = uint64(time.Now().UnixNano())

	o.c.cobs_pump(data, func(decoded []byte) {
		if len(decoded) < OFLOW_MIN_PACKET_LEN {
			o.error_count++
			stats_oflow_errors.Inc()
			return
		}

		var sum byte
		for _, b := range decoded {
			sum += b
		}

		var f = oflow_frame_t{
			tag:    decoded[0],
			tstamp: o.block_tstamp,
			d:      decoded[1 : len(decoded)-1],
			sum:    decoded[len(decoded)-1],
			good:   sum == 0,
		}

		cb(&f)
	})
} /* end oflow_pump */
