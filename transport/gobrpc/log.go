package gobrpc

import "go.uber.org/zap"

var logger *zap.Logger = zap.NewNop()

// SetLogger installs l as the package logger. Nil restores the no-op.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}
