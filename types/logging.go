package types

import "log/slog"

type LogLevel slog.Level

const (
	LevelTrace = slog.Level(slog.LevelDebug - 1)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Keys shared by the log records emitted for logged packets.
const (
	MarkKey   = "mark"
	HwAddrKey = "hwAddr"
)
