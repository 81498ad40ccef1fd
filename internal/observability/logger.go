package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger builds the process-wide console logger, tagged with app (the
// binary name) and node (the instance's NodeId string form, e.g.
// wire.NodeID.String()), so every log line a baspd process emits can be
// attributed to the mesh node that wrote it without grepping for a PID.
func InitLogger(app, node string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Str("node", node).Logger()
	log.Logger = logger
	return logger
}
