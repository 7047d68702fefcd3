// Command rocprofvis-enginectl is a standalone harness for the trace
// data-model engine: point it at a profiling capture database and it
// loads metadata, reports what it found, and stays up until
// interrupted, the way a UI embedding this engine would keep a Trace
// alive across many ReadTraceSliceAsync calls (spec §1, §4.3).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rocprofvis/datamodel/internal/app"
)

func main() {
	var configFile, dbPath string
	flag.StringVar(&configFile, "config", "", "Path to engine configuration file")
	flag.StringVar(&dbPath, "db", "", "Path to the SQLite profiling capture to load")
	flag.Parse()

	if dbPath == "" {
		if envDB := os.Getenv("ROCPROFVIS_DB_PATH"); envDB != "" {
			dbPath = envDB
		} else {
			fmt.Fprintln(os.Stderr, "usage: rocprofvis-enginectl -db <capture.sqlite> [-config <config.yaml>]")
			os.Exit(2)
		}
	}

	if configFile == "" {
		configFile = os.Getenv("ROCPROFVIS_CONFIG_FILE")
	}

	application, err := app.New(configFile, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize engine: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "engine error: %v\n", err)
		os.Exit(1)
	}
}
