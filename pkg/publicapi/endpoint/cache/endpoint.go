package cache

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/bacalhau-project/tiercache/pkg/cache"
	"github.com/bacalhau-project/tiercache/pkg/publicapi/apimodels"
)

// Cache is the cache the endpoint serves. Values are raw JSON documents.
type Cache interface {
	cache.Cache[json.RawMessage]
	Tiers() []string
}

type EndpointParams struct {
	Router *echo.Echo
	Cache  Cache
}

type Endpoint struct {
	router *echo.Echo
	cache  Cache
}

func NewEndpoint(params EndpointParams) *Endpoint {
	e := &Endpoint{
		router: params.Router,
		cache:  params.Cache,
	}

	g := e.router.Group("/api/v1/cache")
	g.GET("/stats", e.stats)
	g.POST("/cleanup", e.cleanup)
	g.DELETE("", e.clear)
	// keys live under their own prefix so no key collides with the routes above
	g.GET("/keys/:key", e.get)
	g.HEAD("/keys/:key", e.has)
	g.PUT("/keys/:key", e.set)
	g.DELETE("/keys/:key", e.delete)
	return e
}

func keyParam(c echo.Context) (string, error) {
	key, err := url.PathUnescape(c.Param("key"))
	if err != nil {
		return "", apimodels.NewBadRequestError("invalid key %q: %s", c.Param("key"), err)
	}
	if key == "" {
		return "", apimodels.NewBadRequestError("key cannot be empty")
	}
	return key, nil
}

// get godoc
//
//	@ID			cache/get
//	@Summary	Returns the value stored under a key.
//	@Tags		Cache
//	@Produce	json
//	@Param		key	path		string	true	"cache key"
//	@Success	200	{object}	apimodels.GetEntryResponse
//	@Failure	404	{object}	apimodels.APIError
//	@Router		/api/v1/cache/keys/{key} [get]
func (e *Endpoint) get(c echo.Context) error {
	key, err := keyParam(c)
	if err != nil {
		return err
	}
	value, ok := e.cache.Get(c.Request().Context(), key)
	if !ok {
		return apimodels.NewNotFoundError("key %s not found", key)
	}
	return c.JSON(http.StatusOK, apimodels.GetEntryResponse{
		Key:   key,
		Value: value,
	})
}

// has godoc
//
//	@ID			cache/has
//	@Summary	Reports whether a live value is stored under a key.
//	@Tags		Cache
//	@Param		key	path	string	true	"cache key"
//	@Success	200
//	@Failure	404
//	@Router		/api/v1/cache/keys/{key} [head]
func (e *Endpoint) has(c echo.Context) error {
	key, err := keyParam(c)
	if err != nil {
		return err
	}
	if !e.cache.Has(c.Request().Context(), key) {
		return c.NoContent(http.StatusNotFound)
	}
	return c.NoContent(http.StatusOK)
}

// set godoc
//
//	@ID			cache/set
//	@Summary	Stores a JSON document under a key in every tier.
//	@Tags		Cache
//	@Accept		json
//	@Param		key	path	string	true	"cache key"
//	@Param		ttl	query	string	false	"lifetime, e.g. 30s; the server default when omitted"
//	@Success	204
//	@Failure	400	{object}	apimodels.APIError
//	@Router		/api/v1/cache/keys/{key} [put]
func (e *Endpoint) set(c echo.Context) error {
	key, err := keyParam(c)
	if err != nil {
		return err
	}

	var ttl time.Duration
	if raw := c.QueryParam("ttl"); raw != "" {
		ttl, err = time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return apimodels.NewBadRequestError("invalid ttl %q, expected a positive duration such as 30s", raw)
		}
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apimodels.NewBadRequestError("failed to read request body: %s", err)
	}
	if !json.Valid(body) {
		return apimodels.NewBadRequestError("request body must be a JSON document")
	}

	e.cache.Set(c.Request().Context(), key, json.RawMessage(body), ttl)
	log.Ctx(c.Request().Context()).Trace().Str("key", key).Dur("ttl", ttl).Msg("stored cache entry")
	return c.NoContent(http.StatusNoContent)
}

// delete godoc
//
//	@ID			cache/delete
//	@Summary	Removes a key from every tier.
//	@Tags		Cache
//	@Produce	json
//	@Param		key	path		string	true	"cache key"
//	@Success	200	{object}	apimodels.DeleteEntryResponse
//	@Router		/api/v1/cache/keys/{key} [delete]
func (e *Endpoint) delete(c echo.Context) error {
	key, err := keyParam(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, apimodels.DeleteEntryResponse{
		Deleted: e.cache.Delete(c.Request().Context(), key),
	})
}

// clear godoc
//
//	@ID			cache/clear
//	@Summary	Removes every entry from every tier.
//	@Tags		Cache
//	@Success	204
//	@Router		/api/v1/cache [delete]
func (e *Endpoint) clear(c echo.Context) error {
	e.cache.Clear(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

// stats godoc
//
//	@ID			cache/stats
//	@Summary	Returns the counters of the in-memory tier.
//	@Tags		Cache
//	@Produce	json
//	@Success	200	{object}	apimodels.GetStatsResponse
//	@Router		/api/v1/cache/stats [get]
func (e *Endpoint) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, apimodels.GetStatsResponse{
		Stats: e.cache.Stats(),
		Tiers: e.cache.Tiers(),
	})
}

// cleanup godoc
//
//	@ID			cache/cleanup
//	@Summary	Sweeps expired entries out of memory.
//	@Tags		Cache
//	@Produce	json
//	@Success	200	{object}	apimodels.CleanupResponse
//	@Router		/api/v1/cache/cleanup [post]
func (e *Endpoint) cleanup(c echo.Context) error {
	return c.JSON(http.StatusOK, apimodels.CleanupResponse{
		Removed: e.cache.Cleanup(),
	})
}
