package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	Transfer statistics.
 *
 * Description:	Two consumers: an optional interval reporter which
 *		samples and clears a byte counter on a timer and logs
 *		a throughput line, and an optional Prometheus endpoint
 *		exposing cumulative counters for scraping.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var stats_interval_bytes = promauto.NewCounter(prometheus.CounterOpts{
	Name: "orbserve_source_bytes_total",
	Help: "Bytes read from the trace source.",
})

var stats_dropped_blocks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "orbserve_dropped_blocks_total",
	Help: "Transfer blocks dropped because the ring was full.",
})

var stats_tpiu_lost_frames = promauto.NewCounter(prometheus.CounterOpts{
	Name: "orbserve_tpiu_lost_frames_total",
	Help: "TPIU frames lost to mid-frame resynchronisation.",
})

var stats_oflow_errors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "orbserve_orbflow_errors_total",
	Help: "ORBFLOW frames dropped as too short.",
})

/*-------------------------------------------------------------------
 *
 * Name:        stats_serve
 *
 * Purpose:     Expose the counters for scraping.
 *
 * Inputs:	port	- TCP port for the /metrics endpoint.
 *			  0 disables.
 *
 *-----------------------------------------------------------------*/

func stats_serve(port int) {
	if port == 0 {
		return
	}

	var mux = http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		var serveErr = http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
		if serveErr != nil {
			report(V_ERROR, "stats: metrics endpoint on port %d: %v", port, serveErr)
		}
	}()
} /* end stats_serve */

/*-------------------------------------------------------------------
 *
 * Name:        interval_thread
 *
 * Purpose:     Periodic throughput report.
 *
 * Description:	Samples and clears the interval byte counter every
 *		interval_report_time ms.  The counter is incremented
 *		by the distributor; the handover is a plain atomic
 *		swap, losing at most a block's worth of accounting
 *		either way.
 *
 *-----------------------------------------------------------------*/

func (r *Daemon) interval_thread() {
	var interval = time.Duration(r.options.IntervalReportTime) * time.Millisecond

	for !r.ending.Load() {
		time.Sleep(interval)

		var bytes = atomic.SwapUint64(&r.interval_bytes, 0)
		var bps = uint64(float64(bytes*8) / interval.Seconds())

		if r.options.DataSpeed > 0 {
			var percent = 100 * bps / uint64(r.options.DataSpeed)
			report(V_INFO, "%s (%s) %d%% of available bandwidth",
				stats_quantity(bytes, "Bytes"), stats_quantity(bps, "bps"), percent)
		} else {
			report(V_INFO, "%s (%s)", stats_quantity(bytes, "Bytes"), stats_quantity(bps, "bps"))
		}
	}
} /* end interval_thread */

/* Human readable quantity with decimal scaling (K = 1000, M = 1000000)
 * as the original family of tools presents it. */
func stats_quantity(v uint64, unit string) string {
	switch {
	case v >= 1000000:
		return fmt.Sprintf("%d.%01dM%s", v/1000000, (v%1000000)/100000, unit)
	case v >= 1000:
		return fmt.Sprintf("%d.%01dK%s", v/1000, (v%1000)/100, unit)
	default:
		return fmt.Sprintf("%d%s", v, unit)
	}
}
