package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	ARM CoreSight TPIU formatted-mode frame decoder.
 *
 * Description:	The trace port interleaves several logical streams
 *		into 16 byte frames of 8 half-words.  In each of the
 *		first seven half-words the even byte either carries
 *		data or, when its low bit is set, announces a new
 *		stream id; the odd byte is always data.  Byte 15 is an
 *		auxiliary byte holding the true low bits of the even
 *		positions, one bit per half-word, because bit zero of
 *		those positions was taken by the flag.
 *
 *		The whole frame is buffered before any tuple is
 *		emitted so the delayed low bits can be patched in.
 *
 *		Synchronisation is the four byte pattern FF FF FF 7F.
 *		It may appear between frames (alignment) or anywhere
 *		in the stream after sync has been lost.
 *
 *---------------------------------------------------------------*/

const TPIU_FRAME_SIZE = 16

/* Up to 8 even-position data bytes and 7 odd-position data bytes. */
const TPIU_MAX_PACKET_DECODED = 15

/* Stream id carrying idle padding; contributes no data. */
const TPIU_STREAM_ID_IDLE = 0x7F

type tpiu_state_e int

const (
	TPIU_UNSYNCED tpiu_state_e = iota
	TPIU_SYNCING
	TPIU_RXING
	TPIU_RXED_PACKET
	TPIU_ERROR
)

type tpiu_event_e int

const (
	TPIU_EV_NONE tpiu_event_e = iota
	TPIU_EV_UNSYNCED
	TPIU_EV_SYNCED
	TPIU_EV_RXING
	TPIU_EV_RXEDPACKET
	TPIU_EV_ERROR
)

/* Informational status bits. */
const (
	TPIU_LED_DATA      = 1 << 0
	TPIU_LED_TX        = 1 << 1
	TPIU_LED_OVERFLOW  = 1 << 2
	TPIU_LED_HEARTBEAT = 1 << 3
)

/* One decoded (stream, byte) tuple. */
type tpiu_decoded_t struct {
	stream byte
	d      byte
}

type tpiu_t struct {
	state tpiu_state_e

	frame      [TPIU_FRAME_SIZE]byte
	byte_count int    /* Bytes collected into the current frame. */
	sync_reg   uint32 /* Sliding window for the sync pattern. */

	current_stream byte /* Persists across frames. */

	total_frames uint64
	lost_frames  uint64
	leds         byte
}

const tpiu_sync_pattern = 0xFFFFFF7F

func tpiu_init() *tpiu_t {
	return &tpiu_t{
		state:          TPIU_UNSYNCED,
		current_stream: TPIU_STREAM_ID_IDLE,
	}
}

/* Bytes of the frame in progress. */
func (t *tpiu_t) tpiu_pending_count() int {
	return t.byte_count
}

/*-------------------------------------------------------------------
 *
 * Name:        tpiu_pump
 *
 * Purpose:     Consume one byte of the incoming stream.
 *
 * Returns:	Event for the caller.  On TPIU_EV_RXEDPACKET the
 *		decoded tuples are available from tpiu_get_packet and
 *		the decoder is already armed for the next frame.
 *
 *-----------------------------------------------------------------*/

func (t *tpiu_t) tpiu_pump(b byte) tpiu_event_e {
	t.sync_reg = (t.sync_reg << 8) | uint32(b)

	if t.sync_reg == tpiu_sync_pattern {
		switch t.state {
		case TPIU_UNSYNCED, TPIU_SYNCING:
			t.state = TPIU_RXING
			t.byte_count = 0
			return TPIU_EV_SYNCED
		default:
			if t.byte_count != 3 {
				/* Pattern completed part way through a frame:
				 * whatever we were collecting is gone. */
				t.lost_frames++
				t.byte_count = 0
				t.leds |= TPIU_LED_OVERFLOW
				return TPIU_EV_ERROR
			}

			/* Frame alignment sync between frames. */
			t.byte_count = 0
			return TPIU_EV_NONE
		}
	}

	switch t.state {
	case TPIU_UNSYNCED:
		t.state = TPIU_SYNCING
		return TPIU_EV_UNSYNCED

	case TPIU_SYNCING:
		return TPIU_EV_NONE

	default:
		t.frame[t.byte_count] = b
		t.byte_count++

		if t.byte_count < TPIU_FRAME_SIZE {
			return TPIU_EV_RXING
		}

		t.byte_count = 0
		t.total_frames++
		t.leds |= TPIU_LED_DATA
		t.leds ^= TPIU_LED_HEARTBEAT
		return TPIU_EV_RXEDPACKET
	}
} /* end tpiu_pump */

/*-------------------------------------------------------------------
 *
 * Name:        tpiu_get_packet
 *
 * Purpose:     Decode the buffered frame into (stream, byte) tuples.
 *
 * Returns:	Tuples in wire interleave order, idle stream removed.
 *		Call immediately after tpiu_pump returned
 *		TPIU_EV_RXEDPACKET; the buffer is reused for the next
 *		frame.
 *
 *-----------------------------------------------------------------*/

func (t *tpiu_t) tpiu_get_packet() []tpiu_decoded_t {
	var out = make([]tpiu_decoded_t, 0, TPIU_MAX_PACKET_DECODED)
	var aux = t.frame[TPIU_FRAME_SIZE-1]

	var emit = func(d byte) {
		if t.current_stream != TPIU_STREAM_ID_IDLE {
			out = append(out, tpiu_decoded_t{stream: t.current_stream, d: d})
		}
	}

	for hw := 0; hw < TPIU_FRAME_SIZE/2; hw++ {
		var a = t.frame[2*hw]

		if a&0x01 != 0 {
			/* Stream id change for the bytes that follow. */
			t.current_stream = a >> 1
		} else {
			/* Data byte whose true low bit arrives in the
			 * auxiliary byte. */
			emit((a & 0xFE) | ((aux >> hw) & 0x01))
		}

		if hw < TPIU_FRAME_SIZE/2-1 {
			/* Odd positions are always data; position 15 is the
			 * auxiliary byte itself. */
			emit(t.frame[2*hw+1])
		}
	}

	return out
} /* end tpiu_get_packet */
