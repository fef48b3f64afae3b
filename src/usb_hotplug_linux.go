//go:build linux && cgo

package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	Wait for a probe to appear, udev assisted.
 *
 * Description:	Rather than polling blindly while no known device is
 *		plugged in, watch the udev netlink socket for a USB
 *		device-add event.  The wait is still bounded so a
 *		missed event (or a device on a hub that enumerated
 *		before the monitor was up) only costs one interval.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"time"

	"github.com/jochenvg/go-udev"
)

/* Upper bound on one udev wait before rescanning anyway. */
const USB_HOTPLUG_WAIT_MS = 2000

func usb_wait_for_device(r *Daemon, fallback_ms int) {
	var u udev.Udev
	var m = u.NewMonitorFromNetlink("udev")
	if m == nil {
		SLEEP_MS(fallback_ms)
		return
	}

	m.FilterAddMatchSubsystemDevtype("usb", "usb_device")

	var ctx, cancel = context.WithTimeout(context.Background(), USB_HOTPLUG_WAIT_MS*time.Millisecond)
	defer cancel()

	var ch, chErr = m.DeviceChan(ctx)
	if chErr != nil {
		SLEEP_MS(fallback_ms)
		return
	}

	for {
		select {
		case dev, ok := <-ch:
			if !ok {
				return
			}
			if dev != nil && dev.Action() == "add" {
				return
			}
		case <-ctx.Done():
			return
		}

		if r.ending.Load() {
			return
		}
	}
} /* end usb_wait_for_device */
