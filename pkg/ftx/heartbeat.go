package ftx

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Heartbeat drives a tick callback on a fixed interval.
type Heartbeat struct {
	cron *cron.Cron
}

func NewHeartbeat(interval time.Duration, tick func(), logger *zap.Logger) *Heartbeat {
	if interval < time.Second {
		interval = time.Second
	}
	l := cronLogger{logger: logger.Sugar()}
	c := cron.New(cron.WithLogger(l), cron.WithChain(cron.Recover(l)))
	c.Schedule(cron.Every(interval), cron.FuncJob(tick))
	return &Heartbeat{cron: c}
}

func (h *Heartbeat) Start() {
	h.cron.Start()
}

// Stop halts the schedule and waits for a running tick to return.
func (h *Heartbeat) Stop() {
	<-h.cron.Stop().Done()
}

type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
