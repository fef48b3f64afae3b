package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	Announce the trace service using DNS-SD.
 *
 * Description:	Clients on the local network can find the base listen
 *		port without typing addresses.  Announcement failure
 *		is never fatal; the daemon works fine without it.
 *
 *     This uses the pure-Go github.com/brutella/dnssd package for
 *     cross-platform mDNS/DNS-SD service announcement without requiring
 *     any system daemon or C library dependencies.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"os"
	"strings"

	"github.com/brutella/dnssd"
)

const DNS_SD_SERVICE = "_orbserve._tcp"

/* Default service name to publish: "orbserve on <hostname>". */
func dns_sd_default_service_name() string {
	var hostname, hostnameErr = os.Hostname()
	if hostnameErr != nil {
		return "orbserve"
	}

	// on some systems, an FQDN is returned; remove domain part
	hostname, _, _ = strings.Cut(hostname, ".")

	return "orbserve on " + hostname
}

func dns_sd_announce(port int) {
	var cfg = dnssd.Config{ //nolint:exhaustruct
		Name: dns_sd_default_service_name(),
		Type: DNS_SD_SERVICE,
		Port: port,
	}

	var sv, svErr = dnssd.NewService(cfg)
	if svErr != nil {
		report(V_WARN, "DNS-SD: Failed to create service: %v", svErr)
		return
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		report(V_WARN, "DNS-SD: Failed to create responder: %v", rpErr)
		return
	}

	var _, addErr = rp.Add(sv)
	if addErr != nil {
		report(V_WARN, "DNS-SD: Failed to add service: %v", addErr)
		return
	}

	report(V_INFO, "DNS-SD: Announcing %s on port %d", DNS_SD_SERVICE, port)

	go func() {
		var respondErr = rp.Respond(context.Background())
		if respondErr != nil {
			report(V_WARN, "DNS-SD: Responder error: %v", respondErr)
		}
	}()
} /* end dns_sd_announce */
