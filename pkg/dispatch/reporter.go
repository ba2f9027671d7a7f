package dispatch

import (
	"github.com/wrenbot/wren/pkg/interaction"
	"github.com/wrenbot/wren/pkg/logging"
)

// Reporter receives per-interaction failures that are isolated from the
// transports: acknowledgement timeouts and recovered handler faults.
// Applications may install their own (alerting, metrics); the default
// writes structured logs.
type Reporter interface {
	ReportTimeout(inter interaction.Interaction, err error)
	ReportHandlerFault(inter interaction.Interaction, recovered any)
}

// LogReporter is the default Reporter backed by the engine logger.
type LogReporter struct {
	log *logging.Logger
}

// NewLogReporter creates a Reporter that logs through the given logger.
func NewLogReporter(log *logging.Logger) *LogReporter {
	return &LogReporter{log: log.Sub("reporter")}
}

func (r *LogReporter) ReportTimeout(inter interaction.Interaction, err error) {
	r.log.Error().
		Str("interactionId", inter.ID).
		Str("kind", inter.Kind.String()).
		Str("identity", inter.Identity()).
		Err(err).
		Msg("acknowledgement deadline elapsed")
}

func (r *LogReporter) ReportHandlerFault(inter interaction.Interaction, recovered any) {
	r.log.Error().
		Str("interactionId", inter.ID).
		Str("kind", inter.Kind.String()).
		Str("identity", inter.Identity()).
		Any("panic", recovered).
		Msg("handler fault recovered")
}
