package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	USB bulk endpoint source.
 *
 * Description:	Walks a table of known probes and streams from the
 *		first one that opens.  The Orbtrace exposes a vendor
 *		specific trace interface which is located by
 *		descriptor scan; the older probes use fixed interface
 *		and endpoint numbers.
 *
 *		Bulk reads run with a short timeout so the ending
 *		flag is observed even when the target is silent.  A
 *		probe that disappears is simply rescanned for, with a
 *		udev assisted wait where the platform offers one.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/gousb"
)

/* Table of known devices to try opening. */
type usb_device_entry_t struct {
	vid          gousb.ID
	pid          gousb.ID
	autodiscover bool
	iface        int
	ep           int
	name         string
}

var usb_device_list = []usb_device_entry_t{
	{0x1209, 0x3443, true, 0, 0x81, "Orbtrace"},
	{0x1d50, 0x6018, false, 5, 0x85, "Blackmagic Probe"},
	{0x2b3e, 0xc610, false, 3, 0x85, "Phywhisperer-UDT"},
}

/* Vendor specific trace interface, as the Orbtrace marks it. */
const (
	USB_TRACE_IF_CLASS    = 0xFF
	USB_TRACE_IF_SUBCLASS = 0x54
)

const USB_BULK_TIMEOUT_MS = 10

func (r *Daemon) usb_feeder() error {
	var ctx = gousb.NewContext()
	defer ctx.Close()

	for !r.ending.Load() {
		var dev, entry = usb_find_device(ctx)
		if dev == nil {
			usb_wait_for_device(r, SOURCE_RETRY_MS)
			continue
		}

		report(V_INFO, "Found %s", entry.name)

		var streamErr = r.usb_stream(dev, entry)
		dev.Close()

		if streamErr != nil && !r.ending.Load() {
			report(V_INFO, "%s went away: %v", entry.name, streamErr)
			SLEEP_MS(SOURCE_RETRY_MS)
		}
	}

	return nil
} /* end usb_feeder */

func usb_find_device(ctx *gousb.Context) (*gousb.Device, *usb_device_entry_t) {
	for i := range usb_device_list {
		var entry = &usb_device_list[i]
		var dev, openErr = ctx.OpenDeviceWithVIDPID(entry.vid, entry.pid)
		if openErr != nil || dev == nil {
			continue
		}
		return dev, entry
	}
	return nil, nil
}

/*-------------------------------------------------------------------
 *
 * Name:        usb_locate_interface
 *
 * Purpose:     Choose interface and endpoint on the opened device.
 *
 * Description:	With autodiscover, scan the active configuration for
 *		an interface of class 0xFF, subclass 0x54, protocol 0
 *		or 1 with exactly one endpoint.  Otherwise take the
 *		table's fixed numbers.
 *
 *-----------------------------------------------------------------*/

func usb_locate_interface(dev *gousb.Device, entry *usb_device_entry_t) (int, int, int, error) {
	var active, cfgErr = dev.ActiveConfigNum()
	if cfgErr != nil {
		return 0, 0, 0, fmt.Errorf("active config: %w", cfgErr)
	}

	var cfg, ok = dev.Desc.Configs[active]
	if !ok {
		return 0, 0, 0, fmt.Errorf("no descriptor for config %d", active)
	}

	if !entry.autodiscover {
		var alt = 0
		for _, intf := range cfg.Interfaces {
			if intf.Number == entry.iface && len(intf.AltSettings) > 1 {
				alt = 1
			}
		}
		return entry.iface, alt, entry.ep & 0x0F, nil
	}

	for _, intf := range cfg.Interfaces {
		for _, setting := range intf.AltSettings {
			if setting.Class != USB_TRACE_IF_CLASS ||
				setting.SubClass != USB_TRACE_IF_SUBCLASS ||
				(setting.Protocol != 0x00 && setting.Protocol != 0x01) {
				continue
			}
			if len(setting.Endpoints) != 1 {
				continue
			}

			for _, ep := range setting.Endpoints {
				var alt = 0
				if len(intf.AltSettings) > 1 {
					alt = setting.Alternate
				}
				return intf.Number, alt, ep.Number, nil
			}
		}
	}

	return 0, 0, 0, errors.New("no trace interface in configuration descriptor")
} /* end usb_locate_interface */

func (r *Daemon) usb_stream(dev *gousb.Device, entry *usb_device_entry_t) error {
	dev.SetAutoDetach(true)

	var ifNum, alt, epNum, locErr = usb_locate_interface(dev, entry)
	if locErr != nil {
		return locErr
	}

	var active, _ = dev.ActiveConfigNum()
	var cfg, cfgErr = dev.Config(active)
	if cfgErr != nil {
		return fmt.Errorf("claim config: %w", cfgErr)
	}
	defer cfg.Close()

	var intf, ifErr = cfg.Interface(ifNum, alt)
	if ifErr != nil {
		return fmt.Errorf("claim interface %d alt %d: %w", ifNum, alt, ifErr)
	}
	defer intf.Close()

	var ep, epErr = intf.InEndpoint(epNum)
	if epErr != nil {
		return fmt.Errorf("endpoint %d: %w", epNum, epErr)
	}

	var streamCtx, cancel = context.WithCancel(context.Background())
	defer cancel()
	r.set_source_close(cancel)
	defer r.set_source_close(nil)

	for !r.ending.Load() {
		var block = r.ring.ring_write_block()

		var readCtx, readCancel = context.WithTimeout(streamCtx, USB_BULK_TIMEOUT_MS*time.Millisecond)
		var n, readErr = ep.ReadContext(readCtx, block.buffer[:])
		readCancel()

		if n > 0 {
			r.ring.ring_commit(n)
		}

		if readErr != nil {
			if errors.Is(readErr, context.DeadlineExceeded) ||
				errors.Is(readErr, gousb.TransferCancelled) ||
				errors.Is(readErr, gousb.ErrorTimeout) {
				/* Just nothing to read right now. */
				continue
			}
			return readErr
		}
	}

	return nil
} /* end usb_stream */
