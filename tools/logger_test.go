package tools

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogOutputSwitches(t *testing.T) {
	var out bytes.Buffer
	SetLoggerOutput(&out)
	defer func() {
		EnableLogger()
		EnableLoggerTimestamp()
	}()

	DisableLogger()
	LogOutput("hidden")
	if out.Len() != 0 {
		t.Fatalf("disabled logger wrote %q", out.String())
	}

	EnableLogger()
	DisableLoggerTimestamp()
	LogOutput("plain")
	if out.String() != "plain\n" {
		t.Fatalf("got %q", out.String())
	}

	out.Reset()
	EnableLoggerTimestamp()
	LogOutput("stamped")
	if !strings.HasPrefix(out.String(), "[") || !strings.HasSuffix(out.String(), "] stamped\n") {
		t.Fatalf("got %q", out.String())
	}
}
