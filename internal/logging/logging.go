// Package logging builds the zerolog loggers used by the command line tool.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vnykmshr/adaptsched/pkg/common/validation"
)

// Formats accepted by NewLogger.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var levels = []string{"debug", "info", "warn", "error"}

// ParseLevel maps debug, info, warn or error to a zerolog level. An empty
// string selects info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	if err := validation.ValidateOneOf("logging", "level", s, levels); err != nil {
		return zerolog.NoLevel, err
	}
	return zerolog.ParseLevel(s)
}

// NewLogger returns a timestamped logger writing to w (stderr when nil) in
// console or json format.
func NewLogger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	if w == nil {
		w = os.Stderr
	}

	switch strings.ToLower(format) {
	case "", FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006/01/02 15:04:05.000", NoColor: !isTerminal(w)}
	case FormatJSON:
	default:
		return zerolog.Nop(), validation.ValidateOneOf("logging", "format", format, []string{FormatConsole, FormatJSON})
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
