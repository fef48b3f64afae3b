package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	Interface to serial port, hiding operating system
 *		differences.
 *
 * Description:	Linux gets the termios2 path so any baud rate the
 *		UART can produce is accepted; everywhere else the
 *		nearest standard rate is used.  Either way the port
 *		ends up raw, 8N1, no flow control.
 *
 *---------------------------------------------------------------*/

import "io"

type serial_port_t struct {
	rc io.ReadCloser
}

func (s *serial_port_t) serial_port_read(p []byte) (int, error) {
	return s.rc.Read(p)
}

func (s *serial_port_t) serial_port_close() {
	if s != nil && s.rc != nil {
		s.rc.Close()
	}
}

/* Standard rates for platforms without arbitrary baud support. */
var serial_standard_bauds = []int{
	1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200,
	230400, 460800, 921600,
}

func serial_nearest_standard_baud(baud int) int {
	var best = serial_standard_bauds[0]
	for _, b := range serial_standard_bauds {
		if abs_int(b-baud) < abs_int(best-baud) {
			best = b
		}
	}
	return best
}

func abs_int(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
