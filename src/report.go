package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	Leveled reporting for the daemon.
 *
 * Description:	Thin shim over charmbracelet/log so the rest of the
 *		code can stay with the original printf discipline.
 *		Verbosity 0..3 from the command line maps onto
 *		error / warning / info / debug.
 *
 *---------------------------------------------------------------*/

import (
	"os"

	"github.com/charmbracelet/log"
)

type report_level_e int

const (
	V_ERROR report_level_e = iota
	V_WARN
	V_INFO
	V_DEBUG
)

var _report_logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
})

/*-------------------------------------------------------------------
 *
 * Name:        ReportInit
 *
 * Purpose:     Set the verbosity threshold.
 *
 * Inputs:	verbosity	- 0 = errors only ... 3 = debug.
 *
 *-----------------------------------------------------------------*/

func ReportInit(verbosity int) {
	switch verbosity {
	case 0:
		_report_logger.SetLevel(log.ErrorLevel)
	case 1:
		_report_logger.SetLevel(log.WarnLevel)
	case 2:
		_report_logger.SetLevel(log.InfoLevel)
	default:
		_report_logger.SetLevel(log.DebugLevel)
	}
}

func report(level report_level_e, format string, a ...any) {
	switch level {
	case V_ERROR:
		_report_logger.Errorf(format, a...)
	case V_WARN:
		_report_logger.Warnf(format, a...)
	case V_INFO:
		_report_logger.Infof(format, a...)
	case V_DEBUG:
		_report_logger.Debugf(format, a...)
	}
}
