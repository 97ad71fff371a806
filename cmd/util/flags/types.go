package flags

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/pflag"

	"github.com/bacalhau-project/tiercache/cmd/util/output"
	"github.com/bacalhau-project/tiercache/pkg/logger"
)

// A Parser is a function that can convert a string into a native object.
type Parser[T any] func(string) (T, error)

// A Stringer is a function that can convert a native object into a string.
type Stringer[T any] func(*T) string

// A ValueFlag is a pflag.Value that knows how to take a command line value
// and represent it as a native type.
type ValueFlag[T any] struct {
	// A pointer to a variable that will be set by this flag.
	value *T

	// A Parser to turn the command line string into a native value.
	parser Parser[T]

	// A Stringer to turn the default value for the flag back into a native
	// string, to be printed as help.
	stringer Stringer[T]

	// How the value should be described in the help string. (e.g. string, int)
	typeStr string
}

// Set implements pflag.Value
func (s *ValueFlag[T]) Set(input string) error {
	value, err := s.parser(input)
	if err != nil {
		return err
	}
	*s.value = value
	return nil
}

// String implements pflag.Value
func (s *ValueFlag[T]) String() string {
	return s.stringer(s.value)
}

// Type implements pflag.Value
func (s *ValueFlag[T]) Type() string {
	return s.typeStr
}

var _ pflag.Value = (*ValueFlag[int])(nil)

func LoggingFlag(value *logger.LogMode) *ValueFlag[logger.LogMode] {
	return &ValueFlag[logger.LogMode]{
		value:    value,
		parser:   logger.ParseLogMode,
		stringer: func(p *logger.LogMode) string { return string(*p) },
		typeStr:  "logging-mode",
	}
}

// LogLevelFlag accepts the zerolog level names. The value is kept as the
// string the user typed so it can be handed to logger.ConfigureLogging.
func LogLevelFlag(value *string) *ValueFlag[string] {
	return &ValueFlag[string]{
		value: value,
		parser: func(s string) (string, error) {
			if _, err := logger.ParseLogLevel(s); err != nil {
				return "", err
			}
			return s, nil
		},
		stringer: func(s *string) string { return *s },
		typeStr:  "level",
	}
}

// TTLFlag accepts a positive Go duration such as 30s or 1h. Zero means the
// cache default and is only representable as the flag's default value.
func TTLFlag(value *time.Duration) *ValueFlag[time.Duration] {
	return &ValueFlag[time.Duration]{
		value: value,
		parser: func(s string) (time.Duration, error) {
			d, err := time.ParseDuration(s)
			if err != nil {
				return 0, err
			}
			if d <= 0 {
				return 0, fmt.Errorf("ttl must be positive, got %s", d)
			}
			return d, nil
		},
		stringer: func(d *time.Duration) string {
			if *d == 0 {
				return ""
			}
			return d.String()
		},
		typeStr: "duration",
	}
}

func OutputFormatFlag(value *output.OutputFormat) *ValueFlag[output.OutputFormat] {
	return &ValueFlag[output.OutputFormat]{
		value: value,
		parser: func(s string) (output.OutputFormat, error) {
			o := output.OutputFormat(s)
			if !lo.Contains(output.AllFormats, o) {
				return "", fmt.Errorf("should be one of %q", output.AllFormats)
			}
			return o, nil
		},
		stringer: func(o *output.OutputFormat) string { return string(*o) },
		typeStr:  "format",
	}
}
