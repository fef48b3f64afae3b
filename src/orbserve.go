// Package orbserve is the data plane of the orbserve trace daemon: it pulls
// a raw byte stream from a debug probe (USB bulk, SEGGER RTT over TCP, a
// serial port, or a file), optionally strips ARM TPIU framing, and fans each
// logical channel out to TCP clients.
package orbserve
