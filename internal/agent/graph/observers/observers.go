package observers

import (
	"github.com/leadline-ai/engine/internal/agent/model"
	logx "github.com/leadline-ai/engine/pkg/logger"
)

// LogObserver writes one structured log line per executed graph node.
type LogObserver struct{}

func NewLogObserver() *LogObserver {
	return &LogObserver{}
}

func (o *LogObserver) OnNodeComplete(event model.StepEvent) {
	if event.Err != nil {
		logx.Warn().
			Str("thread_id", event.ThreadID).
			Str("node", event.Node).
			Dur("duration", event.Duration).
			Err(event.Err).
			Msg("node failed")
		return
	}
	logx.Debug().
		Str("thread_id", event.ThreadID).
		Str("node", event.Node).
		Dur("duration", event.Duration).
		Msg("node completed")
}
