package log

import (
	"bytes"
	"io"

	"go.uber.org/zap"
)

// accessLogWriter adapts line-oriented access logs, such as the ones written
// by gorilla/handlers, onto a zap logger. Each Write is one request line.
type accessLogWriter struct {
	logger *zap.SugaredLogger
}

// NewAccessLogWriter returns an io.Writer that logs every written line at
// info level with the "http" logger name.
func NewAccessLogWriter(logger *zap.SugaredLogger) io.Writer {
	return &accessLogWriter{logger: logger.Named("http")}
}

func (w *accessLogWriter) Write(p []byte) (int, error) {
	line := bytes.TrimRight(p, "\r\n")
	if len(line) > 0 {
		w.logger.Info(string(line))
	}
	return len(p), nil
}
