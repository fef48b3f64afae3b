//go:build linux

package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	Linux serial port setup via termios2.
 *
 * Description:	TCGETS2/TCSETS2 with the BOTHER flag lets the kernel
 *		program any numeric rate the UART supports, which
 *		matters because trace probes often run at rates like
 *		2.25 Mbps that have no Bnnn constant.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func serial_port_open(device string, baud int) (*serial_port_t, error) {
	var f, openErr = os.OpenFile(device, os.O_RDWR|unix.O_NOCTTY, 0)
	if openErr != nil {
		return nil, fmt.Errorf("open %s: %w", device, openErr)
	}

	var fd = int(f.Fd())

	var tio, getErr = unix.IoctlGetTermios(fd, unix.TCGETS2)
	if getErr != nil {
		f.Close()
		return nil, fmt.Errorf("TCGETS2 on %s: %w", device, getErr)
	}

	/* Raw, 8N1, no flow control. */
	tio.Iflag = unix.IGNPAR
	tio.Oflag = 0
	tio.Lflag = 0
	tio.Cflag = unix.CS8 | unix.CREAD | unix.CLOCAL | unix.BOTHER
	tio.Cc[unix.VMIN] = 1 /* Wait for at least one character. */
	tio.Cc[unix.VTIME] = 0
	tio.Ispeed = uint32(baud)
	tio.Ospeed = uint32(baud)

	var setErr = unix.IoctlSetTermios(fd, unix.TCSETS2, tio)
	if setErr != nil {
		f.Close()
		return nil, fmt.Errorf("TCSETS2 on %s at %d baud: %w", device, baud, setErr)
	}

	return &serial_port_t{rc: f}, nil
} /* end serial_port_open */
