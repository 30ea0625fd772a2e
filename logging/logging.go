package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON logger in production and a coloured console logger
// otherwise. output is a zap sink such as "stdout" or "stderr".
func New(env, level, output string) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if len(level) > 0 {
		parsed, err := zapcore.ParseLevel(level)

		if err != nil {
			return nil, fmt.Errorf("failed to parse log level: %w", err)
		}

		config.Level = zap.NewAtomicLevelAt(parsed)
	}

	if len(output) == 0 {
		output = "stdout"
	}

	config.OutputPaths = []string{output}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()

	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger, nil
}
