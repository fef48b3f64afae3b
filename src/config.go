package orbserve

/*------------------------------------------------------------------
 *
 * Purpose:   	Optional configuration file.
 *
 * Description:	Everything on the command line can also live in a
 *		YAML file for installations run from a service
 *		manager.  The file fills in defaults; explicit
 *		command line flags still win, which the caller
 *		arranges by loading the file before applying flags.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type config_file_t struct {
	Serial struct {
		Port string `yaml:"port"`
		Baud int    `yaml:"baud"`
	} `yaml:"serial"`

	Segger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"segger"`

	File struct {
		Path      string `yaml:"path"`
		ExitOnEOF bool   `yaml:"exit_on_eof"`
	} `yaml:"file"`

	TPIU struct {
		Channels string `yaml:"channels"`
	} `yaml:"tpiu"`

	Orbflow bool `yaml:"orbflow"`

	OrbtraceWidth int `yaml:"orbtrace_width"`

	ListenPort  int `yaml:"listen_port"`
	MetricsPort int `yaml:"metrics_port"`

	IntervalMs int `yaml:"interval_ms"`

	Verbosity int `yaml:"verbosity"`
}

/*-------------------------------------------------------------------
 *
 * Name:        ConfigLoad
 *
 * Purpose:     Merge a YAML configuration file into the options.
 *
 * Inputs:	path	- File to read.
 *		options	- Filled in for every key present in the file
 *			  with a non-zero value.  exit_on_eof only takes
 *			  effect together with a file path.
 *
 *-----------------------------------------------------------------*/

func ConfigLoad(path string, options *Options) error {
	var raw, readErr = os.ReadFile(path)
	if readErr != nil {
		return fmt.Errorf("%w: config file: %v", ErrBadOptions, readErr)
	}

	var cf config_file_t
	var yamlErr = yaml.Unmarshal(raw, &cf)
	if yamlErr != nil {
		return fmt.Errorf("%w: config file %s: %v", ErrBadOptions, path, yamlErr)
	}

	if cf.Serial.Port != "" {
		options.SerialPort = cf.Serial.Port
	}
	if cf.Serial.Baud != 0 {
		options.SerialSpeed = cf.Serial.Baud
	}
	if cf.Segger.Host != "" {
		options.Segger = true
		options.SeggerHost = cf.Segger.Host
	}
	if cf.Segger.Port != 0 {
		options.SeggerPort = cf.Segger.Port
	}
	if cf.File.Path != "" {
		options.File = cf.File.Path
		options.FileTerminate = cf.File.ExitOnEOF
	}
	if cf.TPIU.Channels != "" {
		options.UseTPIU = true
		options.ChannelList = cf.TPIU.Channels
	}
	if cf.Orbflow {
		options.Orbflow = true
	}
	if cf.OrbtraceWidth != 0 {
		options.OrbtraceWidth = cf.OrbtraceWidth
	}
	if cf.ListenPort != 0 {
		options.ListenPort = cf.ListenPort
	}
	if cf.MetricsPort != 0 {
		options.MetricsPort = cf.MetricsPort
	}
	if cf.IntervalMs != 0 {
		options.IntervalReportTime = cf.IntervalMs
	}
	if cf.Verbosity != 0 {
		options.Verbosity = cf.Verbosity
	}

	return nil
} /* end ConfigLoad */
