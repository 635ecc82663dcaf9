package storage

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-logr/logr"
)

// badgerLogger routes badger's printf-style logging into logr. Badger is
// chatty at info level, so its info and debug lines go to V(1) and V(2).
type badgerLogger struct {
	log logr.Logger
}

var _ badger.Logger = badgerLogger{}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(nil, message(format, args))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Info(message(format, args), "level", "warning")
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.V(1).Info(message(format, args))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.V(2).Info(message(format, args))
}

func message(format string, args []interface{}) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
