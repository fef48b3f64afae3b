package orbserve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tpiu_sync_bytes = []byte{0xFF, 0xFF, 0xFF, 0x7F}

/* Stream id change byte for an even frame position. */
func tpiu_id(stream byte) byte {
	return (stream << 1) | 0x01
}

/* Feed bytes, collecting the tuples of every completed frame. */
func tpiu_run(t *testing.T, decoder *tpiu_t, input []byte) []tpiu_decoded_t {
	t.Helper()

	var out []tpiu_decoded_t
	for _, b := range input {
		if decoder.tpiu_pump(b) == TPIU_EV_RXEDPACKET {
			out = append(out, decoder.tpiu_get_packet()...)
		}
	}
	return out
}

func TestTPIUSyncThenSingleByte(t *testing.T) {
	// Garbage, sync pattern, then one frame carrying a single byte
	// 0x42 on stream 1.
	var frame = []byte{
		tpiu_id(1), 0x42,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
	}

	var input = append([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, tpiu_sync_bytes...)
	input = append(input, frame...)

	var decoder = tpiu_init()
	var tuples = tpiu_run(t, decoder, input)

	require.Len(t, tuples, 1)
	assert.Equal(t, tpiu_decoded_t{stream: 1, d: 0x42}, tuples[0])
	assert.Equal(t, uint64(1), decoder.total_frames)
	assert.Zero(t, decoder.lost_frames)
}

func TestTPIUTwoStreamDemux(t *testing.T) {
	// Stream 1 carries "AB", stream 2 carries "CD", interleaved in
	// one frame, repeated 16 times.
	var frame = []byte{
		tpiu_id(1), 'A',
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(1), 'B',
		tpiu_id(2), 'C',
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(2), 'D',
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
	}

	var input = append([]byte{}, tpiu_sync_bytes...)
	for i := 0; i < 16; i++ {
		input = append(input, frame...)
	}

	var decoder = tpiu_init()
	var tuples = tpiu_run(t, decoder, input)

	var got = map[byte][]byte{}
	for _, tup := range tuples {
		got[tup.stream] = append(got[tup.stream], tup.d)
	}

	var want = func(s string, n int) []byte {
		var out []byte
		for i := 0; i < n; i++ {
			out = append(out, s...)
		}
		return out
	}

	assert.Equal(t, want("AB", 16), got[1])
	assert.Equal(t, want("CD", 16), got[2])
	assert.Equal(t, uint64(16), decoder.total_frames)
}

func TestTPIUDelayedLowBit(t *testing.T) {
	// A data byte in an even position loses its low bit to the flag;
	// the truth arrives in the auxiliary byte.  0x41 at half-word 1
	// is sent as 0x40 with aux bit 1 set.
	var frame = []byte{
		tpiu_id(1), 0x10,
		0x40, 0x20,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x02, /* aux: bit 1 set */
	}

	var decoder = tpiu_init()
	var tuples = tpiu_run(t, decoder, append(append([]byte{}, tpiu_sync_bytes...), frame...))

	require.Len(t, tuples, 3)
	assert.Equal(t, byte(0x10), tuples[0].d)
	assert.Equal(t, byte(0x41), tuples[1].d)
	assert.Equal(t, byte(0x20), tuples[2].d)
}

func TestTPIUStreamPersistsAcrossFrames(t *testing.T) {
	// Second frame carries data with no id byte at all: the stream
	// selected in the first frame still applies.
	var first = []byte{
		tpiu_id(5), 'x',
		'y' &^ 0x01, 'z', /* 'y' is odd so it needs its aux bit */
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(5), 0x02, /* reselect 5 so the next frame inherits it */
	}
	var second = []byte{
		0x30, 0x31,
		0x32, 0x33,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
	}

	var decoder = tpiu_init()
	var input = append(append([]byte{}, tpiu_sync_bytes...), first...)
	input = append(input, second...)
	var tuples = tpiu_run(t, decoder, input)

	require.Len(t, tuples, 7)
	assert.Equal(t, byte('x'), tuples[0].d)
	assert.Equal(t, byte('y'), tuples[1].d)
	assert.Equal(t, byte('z'), tuples[2].d)
	for _, tup := range tuples[3:] {
		assert.Equal(t, byte(5), tup.stream)
	}
	assert.Equal(t, []byte{0x30, 0x31, 0x32, 0x33},
		[]byte{tuples[3].d, tuples[4].d, tuples[5].d, tuples[6].d})
}

func TestTPIUMidFrameResyncCountsLostFrame(t *testing.T) {
	var decoder = tpiu_init()

	for _, b := range tpiu_sync_bytes {
		decoder.tpiu_pump(b)
	}

	// Five bytes of a frame, then the sync pattern again.
	var events []tpiu_event_e
	for _, b := range []byte{0x11, 0x22, 0x33, 0x44, 0x55} {
		events = append(events, decoder.tpiu_pump(b))
	}
	for _, b := range tpiu_sync_bytes {
		events = append(events, decoder.tpiu_pump(b))
	}

	assert.Contains(t, events, TPIU_EV_ERROR)
	assert.Equal(t, uint64(1), decoder.lost_frames)
	assert.Zero(t, decoder.total_frames)

	// And the decoder must decode cleanly afterwards.
	var frame = []byte{
		tpiu_id(1), 0x42,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
	}
	var tuples = tpiu_run(t, decoder, frame)
	require.Len(t, tuples, 1)
	assert.Equal(t, tpiu_decoded_t{stream: 1, d: 0x42}, tuples[0])
}

func TestTPIUIdleStreamContributesNothing(t *testing.T) {
	var frame = []byte{
		tpiu_id(TPIU_STREAM_ID_IDLE), 0xAA,
		0xBA, 0xBB,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
	}

	var decoder = tpiu_init()
	var tuples = tpiu_run(t, decoder, append(append([]byte{}, tpiu_sync_bytes...), frame...))

	assert.Empty(t, tuples)
	assert.Equal(t, uint64(1), decoder.total_frames)
}

func TestTPIUPendingCount(t *testing.T) {
	var decoder = tpiu_init()
	for _, b := range tpiu_sync_bytes {
		decoder.tpiu_pump(b)
	}

	assert.Zero(t, decoder.tpiu_pending_count())
	decoder.tpiu_pump(tpiu_id(1))
	decoder.tpiu_pump(0x42)
	assert.Equal(t, 2, decoder.tpiu_pending_count())
}
