// Package common provides structured logging used across the ingestion engine.
//
// Logging is built on logrus, with a custom writer that splits error-level
// entries to stderr and everything else to stdout, which keeps container log
// collectors able to treat the two streams differently.
package common

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes logrus output to stderr for error-level entries and
// stdout for everything else.
type OutputSplitter struct{}

func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if bytes.Contains(p, []byte("level=error")) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the process-wide logrus instance. Individual components should
// wrap it with NewContextLogger rather than logging directly against it.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
}
