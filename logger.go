package lobby

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger adapts a logrus entry to Logger. Key/value arguments become
// logrus fields.
func NewLogrusLogger(entry *logrus.Entry) Logger {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	return logrusLogger{entry: entry}
}

func (l logrusLogger) Debug(msg string, args ...any) { l.with(args).Debug(msg) }
func (l logrusLogger) Info(msg string, args ...any)  { l.with(args).Info(msg) }
func (l logrusLogger) Warn(msg string, args ...any)  { l.with(args).Warn(msg) }
func (l logrusLogger) Error(msg string, args ...any) { l.with(args).Error(msg) }

func (l logrusLogger) with(args []any) *logrus.Entry {
	if len(args) == 0 {
		return l.entry
	}
	fields := logrus.Fields{}
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			fields["extra"] = args[i]
			break
		}
		if err, ok := args[i+1].(error); ok {
			fields[key] = err.Error()
			continue
		}
		fields[key] = args[i+1]
	}
	return l.entry.WithFields(fields)
}
