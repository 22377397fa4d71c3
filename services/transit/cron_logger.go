package transit

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger routes the scheduler's logging into zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

var _ cron.Logger = (*cronLogger)(nil)

func newCronLogger(logger *zap.Logger) *cronLogger {
	return &cronLogger{
		logger: logger.Named("cron").Sugar(),
	}
}

// Info is used for every scheduler wakeup, so it is logged at debug.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.logger.Debugw(msg, keysAndValues...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	cl.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
