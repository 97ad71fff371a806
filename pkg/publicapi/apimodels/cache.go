package apimodels

import (
	"encoding/json"

	"github.com/bacalhau-project/tiercache/pkg/cache"
)

// GetEntryResponse is returned for a cache hit.
type GetEntryResponse struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type DeleteEntryResponse struct {
	Deleted bool `json:"deleted"`
}

type CleanupResponse struct {
	Removed int `json:"removed"`
}

type GetStatsResponse struct {
	cache.Stats `yaml:",inline"`
	Tiers       []string `json:"tiers"`
}
