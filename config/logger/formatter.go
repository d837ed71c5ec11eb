// Package logger configures logrus and implements a formatter that prefixes
// log messages with the job name.
package logger

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// JobFormatter is a logrus formatter that adds the 'job' field to a log prefix
// for nicer formatted text output.
type JobFormatter struct {
	Parent logrus.Formatter
}

// Format implements logrus.Formatter
func (f *JobFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if job, ok := entry.Data["job"].(string); ok {
		entry.Message = fmt.Sprintf("[%-6s] %s", job, entry.Message)
	}
	return f.Parent.Format(entry)
}
