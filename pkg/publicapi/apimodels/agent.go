package apimodels

import (
	"github.com/bacalhau-project/tiercache/pkg/config/types"
	"github.com/bacalhau-project/tiercache/pkg/version"
)

// IsAliveResponse is the response to the IsAlive request.
type IsAliveResponse struct {
	Status string `json:"Status"`
}

func (r *IsAliveResponse) IsReady() bool {
	return r != nil && r.Status == "OK"
}

// GetVersionResponse is the response to the Version request.
type GetVersionResponse struct {
	*version.BuildVersionInfo
}

// GetAgentConfigResponse carries the effective configuration of the server
// and the tiers it ended up with.
type GetAgentConfigResponse struct {
	Config types.Config `json:"Config"`
	Tiers  []string     `json:"Tiers"`
}
