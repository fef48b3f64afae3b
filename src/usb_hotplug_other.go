//go:build !linux || !cgo

package orbserve

/* No udev here; plain back-off between device scans. */

func usb_wait_for_device(_ *Daemon, fallback_ms int) {
	SLEEP_MS(fallback_ms)
}
