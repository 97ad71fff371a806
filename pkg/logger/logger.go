package logger

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type LogMode string

// Available logging modes
const (
	LogModeDefault  LogMode = "default"
	LogModeJSON     LogMode = "json"
	LogModeCombined LogMode = "combined"
	LogModeEvent    LogMode = "event"
)

// AllModes lists the accepted values of the --log-mode flag.
var AllModes = []LogMode{LogModeDefault, LogModeJSON, LogModeCombined, LogModeEvent}

func ParseLogMode(s string) (LogMode, error) {
	for _, mode := range AllModes {
		if LogMode(strings.ToLower(s)) == mode {
			return mode, nil
		}
	}
	return "", fmt.Errorf("invalid log mode %q, must be one of %v", s, AllModes)
}

func ParseLogLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(s))
}

var stderr = struct{ io.Writer }{os.Stderr}

func init() { //nolint:gochecknoinits // init with zerolog is idiomatic
	// logs emitted before the CLI has parsed its flags are held back and
	// replayed through whatever writer ConfigureLogging picks.
	configureLogging(zerolog.InfoLevel, bufferLogs())
}

type tTesting interface {
	zerolog.TestingLog
	Cleanup(f func())
}

// ConfigureTestLogging allows logs to be associated with individual tests
func ConfigureTestLogging(t tTesting) {
	oldLogger := log.Logger
	oldContextLogger := zerolog.DefaultContextLogger
	oldLevel := zerolog.GlobalLevel()
	configureLogging(zerolog.TraceLevel, zerolog.NewConsoleWriter(
		zerolog.ConsoleTestWriter(t),
		func(w *zerolog.ConsoleWriter) {
			w.NoColor = true
		},
	))
	t.Cleanup(func() {
		log.Logger = oldLogger
		zerolog.DefaultContextLogger = oldContextLogger
		zerolog.SetGlobalLevel(oldLevel)
	})
}

// ConfigureLogging sets up the global logger. An empty level falls back to
// the LOG_LEVEL environment variable, then to info.
func ConfigureLogging(mode LogMode, level string) error {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	lvl, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	var writer io.Writer
	switch mode {
	case LogModeJSON:
		writer = os.Stdout
	case LogModeCombined:
		writer = zerolog.MultiLevelWriter(defaultLogging(), os.Stdout)
	case LogModeEvent:
		writer = io.Discard
	case LogModeDefault, "":
		writer = defaultLogging()
	default:
		return fmt.Errorf("unsupported log mode %q", mode)
	}

	configureLogging(lvl, writer)
	LogBufferedLogs(writer)
	return nil
}

// ModeFromEnv returns the log mode selected by LOG_TYPE, or the default mode.
func ModeFromEnv() LogMode {
	if mode, err := ParseLogMode(os.Getenv("LOG_TYPE")); err == nil {
		return mode
	}
	return LogModeDefault
}

func configureLogging(level zerolog.Level, writer io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(level)
	zerolog.CallerMarshalFunc = marshalCaller

	log.Logger = zerolog.New(writer).With().Timestamp().Caller().Logger()
	// Library code logs through log.Ctx(ctx), which falls back to this logger
	// when the context carries none.
	zerolog.DefaultContextLogger = &log.Logger
}

func defaultLogging() io.Writer {
	isTerminal := isatty.IsTerminal(os.Stderr.Fd())
	return zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = stderr
		w.NoColor = !isTerminal
		w.TimeFormat = "15:04:05.999 |"
		w.PartsOrder = []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.CallerFieldName,
			zerolog.MessageFieldName,
		}
		w.FormatFieldName = func(i interface{}) string {
			return fmt.Sprintf("[%s:", i)
		}
		w.FormatFieldValue = func(i interface{}) string {
			// don't print nil in case field value wasn't preset.
			if i == nil {
				i = ""
			}
			return fmt.Sprintf("%s]", i)
		}
	})
}

// marshalCaller keeps the last two path elements of the caller's file.
func marshalCaller(_ uintptr, file string, line int) string {
	short := file

	separatorCount := 2
	countedSeparators := 0

	for i := len(file) - 1; i > 0; i-- {
		if file[i] == '/' {
			countedSeparators += 1
			if countedSeparators >= separatorCount {
				short = file[i+1:]
				break
			}
		}
	}
	return short + ":" + strconv.Itoa(line)
}
