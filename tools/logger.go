package tools

import (
	"fmt"
	"io"
	"os"
	"time"
)

var isEnabled = true
var printTimestamp = true
var output io.Writer = os.Stdout

func EnableLogger() {
	isEnabled = true
}

func DisableLogger() {
	isEnabled = false
}

func EnableLoggerTimestamp() {
	printTimestamp = true
}

func DisableLoggerTimestamp() {
	printTimestamp = false
}

func SetLoggerOutput(w io.Writer) {
	output = w
}

// LogOutput prints user facing progress messages. Diagnostics go through glog instead.
func LogOutput(val ...interface{}) {
	if isEnabled {
		if printTimestamp {
			fmt.Fprint(output, "["+time.Now().Format("2006-01-02 15.04:05.000")+"] ")
		}
		fmt.Fprintln(output, val...)
	}
}
