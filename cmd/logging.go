package main

import (
	"fmt"
	"log/slog"
	"net"
	"path/filepath"

	"github.com/scitags/go-nflog/types"
)

var logLevelMap = map[string]slog.Level{
	"trace": types.LevelTrace,
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func logReplacements(groups []string, a slog.Attr) slog.Attr {
	// Remove time.
	if a.Key == slog.TimeKey && len(groups) == 0 && !logTimeFlag {
		return slog.Attr{}
	}

	// Remove the directory from the source's filename.
	if a.Key == slog.SourceKey {
		source, ok := a.Value.Any().(*slog.Source)
		if ok {
			source.File = filepath.Base(source.File)
		}
	}

	// Name the custom trace level.
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok && level == types.LevelTrace {
			return slog.String(slog.LevelKey, "TRACE")
		}
	}

	// Format the mark as a hex number.
	if a.Key == types.MarkKey {
		// When slog gobbles the mark it can become a uint64 instead of a uint32
		switch mark := a.Value.Any().(type) {
		case uint32:
			return slog.String(a.Key, fmt.Sprintf("%#x", mark))
		case uint64:
			return slog.String(a.Key, fmt.Sprintf("%#x", mark))
		}
	}

	// Hardware addresses are byte slices otherwise.
	if a.Key == types.HwAddrKey {
		if addr, ok := a.Value.Any().(net.HardwareAddr); ok {
			return slog.String(a.Key, addr.String())
		}
	}

	return a
}
