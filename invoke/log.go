package invoke

import "go.uber.org/zap"

// logger is the package-wide structured logger. It defaults to a
// no-op logger so importing this package costs nothing until a host
// application wires one in, the same posture gorox and weisyn's own
// libraries take toward their embedders.
var logger *zap.Logger = zap.NewNop()

// SetLogger installs the logger used for the core's internal
// diagnostics (late replies discarded, abandonment). Passing nil
// restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger = zap.NewNop()
		return
	}
	logger = l
}
