package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	Daemon assembly: options, runtime state, thread
 *		wiring and shutdown.
 *
 * Description:	One source thread (chosen by the options) feeds the
 *		ring; the distribution thread drains it into the
 *		network client subsystem; an optional interval thread
 *		reports throughput.  A shared ending flag, set by the
 *		signal handler or by Shutdown, stops all of them
 *		within one outer loop iteration.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

/* Address to connect to SEGGER. */
const SEGGER_HOST = "localhost"
const SEGGER_PORT = 2332

const NUM_TPIU_CHANNELS = 0x80

/* Estimated wire throughput per trace pin at the probe's fixed clock,
 * used for the bandwidth figure in interval reports. */
const ORBTRACE_BITS_PER_PIN = 12000000

/* Startup failures map onto the process exit codes the tools family
 * has always used. */
var ErrBadOptions = errors.New("bad options")          /* exit -1 */
var ErrSerialConfig = errors.New("serial port config") /* exit -3 */
var ErrFileOpen = errors.New("file open")              /* exit -4 */

func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrSerialConfig):
		return -3
	case errors.Is(err, ErrFileOpen):
		return -4
	default:
		return -1
	}
}

/* Record for options, either defaults or from command line. */
type Options struct {
	Segger     bool   /* Using a segger debugger. */
	SeggerHost string /* Segger host connection. */
	SeggerPort int    /* ...and port. */

	SerialPort  string /* Serial host connection. */
	SerialSpeed int    /* Speed of serial link. */

	File          string /* File host connection. */
	FileTerminate bool   /* Terminate when file read isn't successful. */

	UseTPIU     bool   /* Are we stripping TPIU frames? */
	ChannelList string /* List of TPIU channels to be serviced. */

	Orbflow       bool /* Wrap outgoing channel data in ORBFLOW frames. */
	OrbtraceWidth int  /* Trace pin width; non-zero implies TPIU. */

	DataSpeed          int /* Effective data speed, for reporting. */
	IntervalReportTime int /* Interval reports, ms.  0 disables. */

	ListenPort  int /* Base listening port for network clients. */
	MetricsPort int /* Prometheus endpoint.  0 disables. */

	Verbosity int
}

func DefaultOptions() *Options {
	return &Options{
		SeggerHost: SEGGER_HOST,
		SeggerPort: SEGGER_PORT,
		ListenPort: NWCLIENT_SERVER_PORT,
	}
}

type Daemon struct {
	options *Options

	t    *tpiu_t
	ring *ring_t

	handler []handler_t  /* One per TPIU channel, in -t order. */
	n       *nwclients_t /* Sink for the non-TPIU case. */

	channels []byte /* Parsed channel list. */

	interval_bytes uint64 /* Bytes transferred in the current interval. */
	tpiu_errors    uint64

	ending       atomic.Bool
	distrib_done chan struct{}

	source_mu    sync.Mutex
	source_close func() /* Unblocks the source thread's pending read. */
}

/*-------------------------------------------------------------------
 *
 * Name:        New
 *
 * Purpose:     Validate options and build the runtime record.
 *
 * Returns:	The daemon, or ErrBadOptions (wrapped with detail)
 *		when the options cannot work.
 *
 *-----------------------------------------------------------------*/

func New(options *Options) (*Daemon, error) {
	var sources = 0
	if options.File != "" {
		sources++
	}
	if options.SerialPort != "" {
		sources++
	}
	if options.Segger {
		sources++
	}
	if sources > 1 {
		return nil, fmt.Errorf("%w: at most one of file, serial and segger sources", ErrBadOptions)
	}

	if options.OrbtraceWidth != 0 {
		switch options.OrbtraceWidth {
		case 1, 2, 4:
			options.UseTPIU = true
			if options.ChannelList == "" {
				options.ChannelList = "1"
			}
			if options.DataSpeed == 0 {
				options.DataSpeed = options.OrbtraceWidth * ORBTRACE_BITS_PER_PIN
			}
		default:
			return nil, fmt.Errorf("%w: orbtrace width must be 1, 2 or 4", ErrBadOptions)
		}
	}

	if options.DataSpeed == 0 && options.SerialSpeed > 0 {
		options.DataSpeed = options.SerialSpeed
	}

	var r = &Daemon{
		options:      options,
		t:            tpiu_init(),
		ring:         ring_init(),
		distrib_done: make(chan struct{}),
	}

	if options.UseTPIU {
		var channels, parseErr = parse_channel_list(options.ChannelList)
		if parseErr != nil {
			return nil, parseErr
		}
		r.channels = channels
	}

	return r, nil
} /* end New */

/*-------------------------------------------------------------------
 *
 * Name:        parse_channel_list
 *
 * Purpose:     Turn the -t argument into channel numbers.
 *
 * Inputs:	list	- Comma separated decimal channel ids, each
 *			  1..127.
 *
 *-----------------------------------------------------------------*/

func parse_channel_list(list string) ([]byte, error) {
	if list == "" {
		return nil, fmt.Errorf("%w: TPIU enabled but no channel list given", ErrBadOptions)
	}

	var seen [NUM_TPIU_CHANNELS]bool
	var channels []byte

	for _, field := range strings.Split(list, ",") {
		var id, convErr = strconv.Atoi(strings.TrimSpace(field))
		if convErr != nil || id < 1 || id >= NUM_TPIU_CHANNELS {
			return nil, fmt.Errorf("%w: bad TPIU channel %q", ErrBadOptions, field)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: TPIU channel %d repeated", ErrBadOptions, id)
		}
		seen[id] = true
		channels = append(channels, byte(id))
	}

	return channels, nil
} /* end parse_channel_list */

/*-------------------------------------------------------------------
 *
 * Name:        Run
 *
 * Purpose:     Bring up the sinks and threads, then feed the ring
 *		from the configured source until shutdown.
 *
 * Description:	Runs the source loop on the calling goroutine, as the
 *		original does on its main thread.  Returns once the
 *		source is exhausted (file with terminate-on-EOF) or
 *		Shutdown was called.
 *
 *-----------------------------------------------------------------*/

func (r *Daemon) Run() error {
	stats_serve(r.options.MetricsPort)

	if r.options.UseTPIU {
		r.handler = make([]handler_t, 0, len(r.channels))
		for i, channel := range r.channels {
			var n, startErr = nwclient_start(r.options.ListenPort + i)
			if startErr != nil {
				r.abort_startup()
				return fmt.Errorf("%w: %v", ErrBadOptions, startErr)
			}
			r.handler = append(r.handler, handler_t{
				channel:        channel,
				stripped_block: &data_block_t{},
				n:              n,
			})
			report(V_INFO, "TPIU channel %d on port %d", channel, r.options.ListenPort+i)
		}
	} else {
		var n, startErr = nwclient_start(r.options.ListenPort)
		if startErr != nil {
			r.abort_startup()
			return fmt.Errorf("%w: %v", ErrBadOptions, startErr)
		}
		r.n = n
		report(V_INFO, "Raw trace on port %d", r.options.ListenPort)
	}

	dns_sd_announce(r.options.ListenPort)

	go r.distribution_thread()

	if r.options.IntervalReportTime > 0 {
		go r.interval_thread()
	}

	var feedErr error
	switch {
	case r.options.File != "":
		feedErr = r.file_feeder()
	case r.options.SerialPort != "":
		feedErr = r.serial_feeder()
	case r.options.Segger:
		feedErr = r.seg_feeder()
	default:
		feedErr = r.usb_feeder()
	}

	r.Shutdown()

	return feedErr
} /* end Run */

/*-------------------------------------------------------------------
 *
 * Name:        Shutdown
 *
 * Purpose:     Stop all threads and release the sinks.  Idempotent;
 *		safe to call from the signal handler path.
 *
 *-----------------------------------------------------------------*/

func (r *Daemon) Shutdown() {
	if !r.ending.CompareAndSwap(false, true) {
		return
	}

	r.source_mu.Lock()
	if r.source_close != nil {
		r.source_close()
	}
	r.source_mu.Unlock()

	r.ring.ring_shutdown()
	<-r.distrib_done

	r.shutdown_sinks()
} /* end Shutdown */

/* Startup failed before the threads were launched: mark the daemon
 * finished so a later Shutdown does not wait on them. */
func (r *Daemon) abort_startup() {
	if r.ending.CompareAndSwap(false, true) {
		close(r.distrib_done)
	}
	r.shutdown_sinks()
}

func (r *Daemon) shutdown_sinks() {
	for i := range r.handler {
		if r.handler[i].n != nil {
			r.handler[i].n.nwclient_shutdown()
		}
	}
	if r.n != nil {
		r.n.nwclient_shutdown()
	}
}

/* Register (or clear) the way to unblock the source's pending read. */
func (r *Daemon) set_source_close(fn func()) {
	r.source_mu.Lock()
	r.source_close = fn
	r.source_mu.Unlock()
}
