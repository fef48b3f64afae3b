package main

/*------------------------------------------------------------------
 *
 * Purpose:   	Main program for the orbserve trace daemon:
 *
 *			Byte stream capture from USB probes, a SEGGER
 *			debug server, a serial port, or a file.
 *			TPIU frame demultiplexing onto per-channel
 *			TCP ports.
 *			ORBFLOW framing for downstream tools.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	orbserve "github.com/orbcode/orbserve/src"
	"github.com/spf13/pflag"
)

func main() {
	var options = orbserve.DefaultOptions()

	var serialSpeed = pflag.IntP("serial-speed", "a", 0, "Serial bitrate.  Also sets the data speed estimate for interval reports.")
	var fileTerminate = pflag.BoolP("eof-terminate", "e", false, "When reading from a file, terminate at end of file rather than waiting for more data.")
	var file = pflag.StringP("input-file", "f", "", "Take input from specified file.")
	var listenPort = pflag.IntP("listen-port", "l", orbserve.NWCLIENT_SERVER_PORT, "Listen port for the network interface.  With TPIU, channel i is served on port+i.")
	var intervalMs = pflag.IntP("monitor", "m", 0, "Monitor interval in ms for transfer statistics.  0 to disable.")
	var orbtraceWidth = pflag.IntP("orbtrace", "o", 0, "Orbtrace trace width of 1, 2 or 4 bits.  Implies TPIU and sets the data speed estimate; no FPGA interface is opened, input still comes from the selected source.")
	var serialPort = pflag.StringP("serial-port", "p", "", "Take input from the specified serial port device.")
	var segger = pflag.StringP("segger", "s", "", "Take input from a SEGGER debug server as host[:port].  Default port "+strconv.Itoa(orbserve.SEGGER_PORT)+".")
	var channelList = pflag.StringP("tpiu", "t", "", "Use TPIU decoder with the given comma separated list of channels (1..127).")
	var verbosity = pflag.IntP("verbose", "v", 1, "Verbose mode 0 (errors only) .. 3 (debug).")
	var orbflow = pflag.Bool("orbflow", false, "Wrap outgoing channel data in ORBFLOW frames.")
	var configFile = pflag.String("config", "", "Optional YAML configuration file; command line flags override it.")
	var metricsPort = pflag.Int("metrics-port", 0, "Expose Prometheus metrics on this port.  0 to disable.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - multi-channel trace mux and distribution server.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: orbserve [options]\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "At most one of -f, -p and -s may be given; with none, USB probes are scanned.\n")
	}

	// !!! PARSE !!!
	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(-1)
	}

	if *configFile != "" {
		var cfgErr = orbserve.ConfigLoad(*configFile, options)
		if cfgErr != nil {
			fmt.Fprintf(os.Stderr, "%v\n", cfgErr)
			os.Exit(-1)
		}
	}

	if pflag.CommandLine.Changed("verbose") || options.Verbosity == 0 {
		options.Verbosity = *verbosity
	}
	orbserve.ReportInit(options.Verbosity)

	if *serialSpeed != 0 {
		if *serialSpeed < 0 {
			fmt.Fprintf(os.Stderr, "Bad serial speed %d\n", *serialSpeed)
			os.Exit(-1)
		}
		options.SerialSpeed = *serialSpeed
	}
	if *file != "" {
		options.File = *file
	}
	if *fileTerminate {
		options.FileTerminate = true
	}
	if *serialPort != "" {
		options.SerialPort = *serialPort
	}
	if *segger != "" {
		options.Segger = true
		var host, port, splitErr = net.SplitHostPort(*segger)
		if splitErr != nil {
			options.SeggerHost = *segger
		} else {
			var portNum, convErr = strconv.Atoi(port)
			if convErr != nil {
				fmt.Fprintf(os.Stderr, "Bad SEGGER port %q\n", port)
				os.Exit(-1)
			}
			options.SeggerHost = host
			options.SeggerPort = portNum
		}
	}
	if *channelList != "" {
		options.UseTPIU = true
		options.ChannelList = *channelList
	}
	if *orbtraceWidth != 0 {
		options.OrbtraceWidth = *orbtraceWidth
	}
	if pflag.CommandLine.Changed("listen-port") {
		options.ListenPort = *listenPort
	}
	if *intervalMs != 0 {
		options.IntervalReportTime = *intervalMs
	}
	if *orbflow {
		options.Orbflow = true
	}
	if *metricsPort != 0 {
		options.MetricsPort = *metricsPort
	}

	var daemon, newErr = orbserve.New(options)
	if newErr != nil {
		fmt.Fprintf(os.Stderr, "%v\n", newErr)
		pflag.Usage()
		os.Exit(orbserve.ExitCode(newErr))
	}

	/* Dead clients surface as write errors on the fan-out side, not
	 * as a process-killing signal. */
	signal.Ignore(syscall.SIGPIPE)

	var interrupt = make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		daemon.Shutdown()
	}()

	var runErr = daemon.Run()
	if runErr != nil {
		os.Exit(orbserve.ExitCode(runErr))
	}
} /* end main */
