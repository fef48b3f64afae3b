package orbserve

import (
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* Minimal runtime for driving the distribution thread directly. */
func distrib_test_daemon(t *testing.T, options *Options) *Daemon {
	t.Helper()

	var r = &Daemon{
		options:      options,
		t:            tpiu_init(),
		ring:         ring_init(),
		distrib_done: make(chan struct{}),
	}
	return r
}

func distrib_test_feed(r *Daemon, data []byte) {
	for len(data) > 0 {
		var block = r.ring.ring_write_block()
		var n = copy(block.buffer[:], data)
		r.ring.ring_commit(n)
		data = data[n:]
	}
}

func TestDistributionPassthrough(t *testing.T) {
	var r = distrib_test_daemon(t, &Options{})

	var n, startErr = nwclient_start(0)
	require.NoError(t, startErr)
	defer n.nwclient_shutdown()
	r.n = n

	var conn = nwclient_test_dial(t, n)
	nwclient_test_wait_clients(t, n, 1)

	go r.distribution_thread()
	defer func() {
		r.ring.ring_shutdown()
		<-r.distrib_done
	}()

	var payload = make([]byte, 3*TRANSFER_SIZE/2)
	for i := range payload {
		payload[i] = byte(i)
	}
	distrib_test_feed(r, payload)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got = make([]byte, len(payload))
	var _, readErr = io.ReadFull(conn, got)
	require.NoError(t, readErr)
	assert.Equal(t, payload, got)

	assert.Equal(t, uint64(len(payload)), atomic.LoadUint64(&r.interval_bytes))
}

func TestDistributionTPIUDemux(t *testing.T) {
	var r = distrib_test_daemon(t, &Options{UseTPIU: true})

	var sink1, err1 = nwclient_start(0)
	require.NoError(t, err1)
	defer sink1.nwclient_shutdown()
	var sink2, err2 = nwclient_start(0)
	require.NoError(t, err2)
	defer sink2.nwclient_shutdown()

	r.handler = []handler_t{
		{channel: 1, stripped_block: &data_block_t{}, n: sink1},
		{channel: 2, stripped_block: &data_block_t{}, n: sink2},
	}

	var conn1 = nwclient_test_dial(t, sink1)
	var conn2 = nwclient_test_dial(t, sink2)
	nwclient_test_wait_clients(t, sink1, 1)
	nwclient_test_wait_clients(t, sink2, 1)

	go r.distribution_thread()
	defer func() {
		r.ring.ring_shutdown()
		<-r.distrib_done
	}()

	// Frame with "AB" on stream 1, "CD" on stream 2, and some bytes
	// on unconfigured stream 3 which must be filtered, repeated 16x.
	var frame = []byte{
		tpiu_id(1), 'A',
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(1), 'B',
		tpiu_id(2), 'C',
		tpiu_id(3), 'x',
		tpiu_id(2), 'D',
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
		tpiu_id(TPIU_STREAM_ID_IDLE), 0x00,
	}

	var input = append([]byte{}, tpiu_sync_bytes...)
	for i := 0; i < 16; i++ {
		input = append(input, frame...)
	}
	distrib_test_feed(r, input)

	var want = func(s string) []byte {
		var out []byte
		for i := 0; i < 16; i++ {
			out = append(out, s...)
		}
		return out
	}

	for _, tc := range []struct {
		conn net.Conn
		data []byte
	}{
		{conn1, want("AB")},
		{conn2, want("CD")},
	} {
		tc.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got = make([]byte, len(tc.data))
		var _, readErr = io.ReadFull(tc.conn, got)
		require.NoError(t, readErr)
		assert.Equal(t, tc.data, got)
	}
}

func TestDistributionOrbflowWrapping(t *testing.T) {
	var r = distrib_test_daemon(t, &Options{Orbflow: true})

	var n, startErr = nwclient_start(0)
	require.NoError(t, startErr)
	defer n.nwclient_shutdown()
	r.n = n

	var conn = nwclient_test_dial(t, n)
	nwclient_test_wait_clients(t, n, 1)

	go r.distribution_thread()
	defer func() {
		r.ring.ring_shutdown()
		<-r.distrib_done
	}()

	distrib_test_feed(r, []byte("wrapped"))

	// The client sees an ORBFLOW frame on channel 0, not raw bytes.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var want = oflow_encode(0, []byte("wrapped"))
	var got = make([]byte, len(want))
	var _, readErr = io.ReadFull(conn, got)
	require.NoError(t, readErr)
	assert.Equal(t, want, got)
}
