package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	Serial/UART source.
 *
 * Description:	First open must succeed so a mistyped device name or
 *		an impossible rate fails the start up.  After that the
 *		port is treated like any other flaky source: read
 *		errors close it and it is reopened after a back-off.
 *
 *---------------------------------------------------------------*/

import "fmt"

func (r *Daemon) serial_feeder() error {
	var port, openErr = serial_port_open(r.options.SerialPort, r.options.SerialSpeed)
	if openErr != nil {
		report(V_ERROR, "Can't configure serial port: %v", openErr)
		return fmt.Errorf("%w: %v", ErrSerialConfig, openErr)
	}

	for !r.ending.Load() {
		if port == nil {
			var reopenErr error
			port, reopenErr = serial_port_open(r.options.SerialPort, r.options.SerialSpeed)
			if reopenErr != nil {
				report(V_DEBUG, "Serial port not back yet: %v", reopenErr)
				SLEEP_MS(SOURCE_RETRY_MS)
				continue
			}
			report(V_INFO, "Reopened %s", r.options.SerialPort)
		}

		r.set_source_close(port.serial_port_close)

		for !r.ending.Load() {
			var block = r.ring.ring_write_block()
			var n, readErr = port.serial_port_read(block.buffer[:])

			if n > 0 {
				r.ring.ring_commit(n)
			}

			if readErr != nil {
				if !r.ending.Load() {
					report(V_INFO, "Serial read error on %s: %v", r.options.SerialPort, readErr)
				}
				break
			}
		}

		r.set_source_close(nil)
		port.serial_port_close()
		port = nil

		if !r.ending.Load() {
			SLEEP_MS(SOURCE_RETRY_MS)
		}
	}

	if port != nil {
		port.serial_port_close()
	}

	return nil
} /* end serial_feeder */
