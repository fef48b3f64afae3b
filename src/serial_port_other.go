//go:build !linux

package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	Serial port setup for platforms without termios2.
 *
 * Description:	Arbitrary rates are not available here, so the
 *		nearest standard rate is used and reported if it
 *		differs from the request.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"

	"github.com/pkg/term"
)

func serial_port_open(device string, baud int) (*serial_port_t, error) {
	var t, openErr = term.Open(device, term.RawMode)
	if openErr != nil {
		return nil, fmt.Errorf("open %s: %w", device, openErr)
	}

	var actual = serial_nearest_standard_baud(baud)
	if actual != baud {
		report(V_WARN, "No arbitrary baud support on this platform, using %d instead of %d", actual, baud)
	}

	var speedErr = t.SetSpeed(actual)
	if speedErr != nil {
		t.Close()
		return nil, fmt.Errorf("set speed %d on %s: %w", actual, device, speedErr)
	}

	return &serial_port_t{rc: t}, nil
} /* end serial_port_open */
