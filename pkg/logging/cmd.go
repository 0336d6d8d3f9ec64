package logging

import (
	"bytes"
	"context"
	"os/exec"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerWriter struct {
	logger *zap.Logger
	level  zapcore.Level
}

type CommandLogger struct {
	RootLogger  *zap.Logger
	StdoutLevel zapcore.Level
	StderrLevel zapcore.Level
}

func (w loggerWriter) Write(p []byte) (n int, err error) {
	for _, line := range bytes.Split(p, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		if ce := w.logger.Check(w.level, string(line)); ce != nil {
			ce.Write()
		}
	}
	return len(p), nil
}

// Command creates an exec.Cmd which logs each line of its stdout and stderr. Callers that need the output
// itself can replace cmd.Stdout.
func Command(ctx context.Context, cfg CommandLogger, name string, arg ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Stdout = &loggerWriter{logger: cfg.RootLogger.Named("stdout"), level: cfg.StdoutLevel}
	cmd.Stderr = &loggerWriter{logger: cfg.RootLogger.Named("stderr"), level: cfg.StderrLevel}
	return cmd
}
