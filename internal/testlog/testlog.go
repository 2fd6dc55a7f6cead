// Package testlog adapts logrus output to testing.T.Log, so that log
// output only surfaces for failed tests.
package testlog

import (
	"testing"

	"github.com/sirupsen/logrus"
)

// adapter maps a logger's output into calls to testing.T.Log.
type adapter struct {
	t      testing.TB
	prefix string
}

func (a *adapter) Write(d []byte) (int, error) {
	if len(d) > 0 && d[len(d)-1] == '\n' {
		d = d[:len(d)-1]
	}
	if a.prefix != "" {
		l := a.prefix + ": " + string(d)
		a.t.Log(l)
		return len(l), nil
	}
	a.t.Log(string(d))
	return len(d), nil
}

// NewTestLogger builds a logrus.Logger at the given level that writes
// through t.Log instead of stderr.
func NewTestLogger(t testing.TB, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.Out = &adapter{t: t}
	logger.Level = level
	return logger
}
