package util

import (
	"github.com/spf13/cobra"

	"github.com/bacalhau-project/tiercache/cmd/util/flags/cliflags"
	"github.com/bacalhau-project/tiercache/pkg/publicapi/client"
)

// GetAPIClient returns a client for the server named by the configuration,
// with the host and port of o taking precedence when set.
func GetAPIClient(cmd *cobra.Command, o cliflags.APIOptions) (*client.APIClient, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if o.Host != "" {
		cfg.API.Host = o.Host
	}
	if o.Port != 0 {
		cfg.API.Port = o.Port
	}
	return client.NewAPIClient(cfg.API.Host, cfg.API.Port), nil
}
