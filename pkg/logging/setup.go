package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	prettyconsole "github.com/thessem/zap-prettyconsole"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

type LogOpts struct {
	Verbose bool
	// Color is one of auto, always/on, never/off
	Color    string
	Encoding string
	// DefaultLevels sets the level per named logger. Overridden by the LOG_LEVEL environment variable.
	DefaultLevels map[string]zapcore.Level
}

func (opts LogOpts) colorEnabled(w io.Writer) bool {
	switch opts.Color {
	case "always", "on":
		return true
	case "never", "off":
		return false
	}
	if f, ok := w.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func (opts LogOpts) Encoder(w io.Writer) (zapcore.Encoder, error) {
	switch opts.Encoding {
	case "json":
		if opts.Verbose {
			return zapcore.NewJSONEncoder(zap.NewDevelopmentEncoderConfig()), nil
		}
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), nil

	case "console", "pretty_console", "":
		useColor := opts.colorEnabled(w)
		if useColor {
			cfg := prettyconsole.NewEncoderConfig()
			cfg.EncodeTime = TimeOffsetFormatter(time.Now(), useColor)
			return prettyconsole.NewEncoder(cfg), nil
		}
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = TimeOffsetFormatter(time.Now(), useColor)
		return zapcore.NewConsoleEncoder(cfg), nil
	}
	return nil, fmt.Errorf("unknown log encoding %q", opts.Encoding)
}

// ParseLevels parses `name=level` pairs separated by commas, such as `cfn=debug,asset=warn`.
// An entry without a name (`=debug`) applies to the root logger. Malformed entries are skipped.
func ParseLevels(s string) map[string]zapcore.Level {
	values := strings.Split(s, ",")
	levels := make(map[string]zapcore.Level, len(values))
	for _, v := range values {
		k, v, ok := strings.Cut(strings.TrimSpace(v), "=")
		if !ok {
			continue
		}
		lvl, err := zapcore.ParseLevel(v)
		if err != nil {
			continue
		}
		levels[k] = lvl
	}
	return levels
}

func (opts LogOpts) EntryLeveller(core zapcore.Core) zapcore.Core {
	levels := opts.DefaultLevels
	if levelEnv, ok := os.LookupEnv("LOG_LEVEL"); ok {
		levels = ParseLevels(levelEnv)
	}
	if len(levels) > 0 {
		core = NewEntryLeveller(core, levels)
	}
	return core
}

func (opts LogOpts) NewCore(w zapcore.WriteSyncer) (zapcore.Core, error) {
	enc, err := opts.Encoder(w)
	if err != nil {
		return nil, err
	}

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Verbose {
		level.SetLevel(zap.DebugLevel)
	}

	core := zapcore.NewCore(enc, w, level)
	return opts.EntryLeveller(core), nil
}

func (opts LogOpts) NewLogger() (*zap.Logger, error) {
	core, err := opts.NewCore(os.Stderr)
	if err != nil {
		return nil, err
	}
	return zap.New(core), nil
}

// TimeOffsetFormatter returns a time encoder that formats the time as an offset from the start time.
// Synthesis runs take seconds, so absolute timestamps add little.
func TimeOffsetFormatter(start time.Time, color bool) zapcore.TimeEncoder {
	colStart, colEnd := "\x1b[90m", "\x1b[0m"
	if !color {
		colStart, colEnd = "", ""
	}
	return func(t time.Time, e zapcore.PrimitiveArrayEncoder) {
		diff := t.Sub(start)
		switch {
		case diff < time.Second:
			e.AppendString(fmt.Sprintf(" %s%3dms%s", colStart, diff.Milliseconds(), colEnd))
		case diff < 5*time.Minute:
			e.AppendString(fmt.Sprintf("%s%5.1fs%s", colStart, diff.Seconds(), colEnd))
		default:
			e.AppendString(fmt.Sprintf("%s%5.1fm%s", colStart, diff.Minutes(), colEnd))
		}
	}
}
