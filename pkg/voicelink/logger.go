package voicelink

import (
	"fmt"
	"log/slog"
)

// Logger is the interface for logging in voicelink.
type Logger interface {
	ErrorPrintf(format string, args ...any)
	WarnPrintf(format string, args ...any)
	InfoPrintf(format string, args ...any)
	DebugPrintf(format string, args ...any)
}

// DefaultLogger returns a Logger writing to slog.Default().
func DefaultLogger() Logger {
	return &slogLogger{nil}
}

// SlogLogger creates a Logger from a slog.Logger.
func SlogLogger(l *slog.Logger) Logger {
	return &slogLogger{l}
}

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) logger() *slog.Logger {
	if s.l == nil {
		return slog.Default()
	}
	return s.l
}

func (s *slogLogger) ErrorPrintf(format string, args ...any) {
	s.logger().Error("voicelink: " + fmt.Sprintf(format, args...))
}

func (s *slogLogger) WarnPrintf(format string, args ...any) {
	s.logger().Warn("voicelink: " + fmt.Sprintf(format, args...))
}

func (s *slogLogger) InfoPrintf(format string, args ...any) {
	s.logger().Info("voicelink: " + fmt.Sprintf(format, args...))
}

func (s *slogLogger) DebugPrintf(format string, args ...any) {
	s.logger().Debug("voicelink: " + fmt.Sprintf(format, args...))
}

// teeLogger forwards to a Logger and records every line above debug level in
// a DebugLog.
type teeLogger struct {
	Logger
	log *DebugLog
}

func (t teeLogger) ErrorPrintf(format string, args ...any) {
	t.Logger.ErrorPrintf(format, args...)
	t.log.Add("ERROR " + fmt.Sprintf(format, args...))
}

func (t teeLogger) WarnPrintf(format string, args ...any) {
	t.Logger.WarnPrintf(format, args...)
	t.log.Add("WARN " + fmt.Sprintf(format, args...))
}

func (t teeLogger) InfoPrintf(format string, args ...any) {
	t.Logger.InfoPrintf(format, args...)
	t.log.Add(fmt.Sprintf(format, args...))
}
