package logger

import (
	"go.uber.org/zap"
)

// Log defaults to a no-op logger so packages under test can log without
// initialization; main replaces it via Init.
var Log = zap.NewNop().Sugar()

func Init() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}
