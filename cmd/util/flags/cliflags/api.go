package cliflags

import (
	"github.com/spf13/pflag"
)

// APIOptions name the server a command talks to. Zero values fall back to
// the API section of the configuration.
type APIOptions struct {
	Host string
	Port int
}

func APIFlags(settings *APIOptions) *pflag.FlagSet {
	flags := pflag.NewFlagSet("API settings", pflag.ContinueOnError)
	flags.StringVar(&settings.Host, "api-host", settings.Host,
		`The host of a running 'tiercache serve'. Defaults to API.Host from the configuration.`)
	flags.IntVar(&settings.Port, "api-port", settings.Port,
		`The port of a running 'tiercache serve'. Defaults to API.Port from the configuration.`)
	return flags
}
