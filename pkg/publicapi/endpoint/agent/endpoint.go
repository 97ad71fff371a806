package agent

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bacalhau-project/tiercache/pkg/config/types"
	"github.com/bacalhau-project/tiercache/pkg/publicapi/apimodels"
	"github.com/bacalhau-project/tiercache/pkg/publicapi/middleware"
	"github.com/bacalhau-project/tiercache/pkg/version"
)

// TiersProvider reports the tiers a cache is running with.
type TiersProvider interface {
	Tiers() []string
}

type EndpointParams struct {
	Router        *echo.Echo
	Config        types.Config
	TiersProvider TiersProvider
}

type Endpoint struct {
	router        *echo.Echo
	config        types.Config
	tiersProvider TiersProvider
}

func NewEndpoint(params EndpointParams) *Endpoint {
	e := &Endpoint{
		router:        params.Router,
		config:        params.Config,
		tiersProvider: params.TiersProvider,
	}

	// JSON group
	g := e.router.Group("/api/v1/agent")
	g.Use(middleware.SetContentType(echo.MIMEApplicationJSON))
	g.GET("/alive", e.alive)
	g.GET("/version", e.version)
	g.GET("/config", e.getConfig)

	return e
}

// alive godoc
//
//	@ID			agent/alive
//	@Tags		Ops
//	@Produce	json
//	@Success	200	{object}	apimodels.IsAliveResponse
//	@Router		/api/v1/agent/alive [get]
func (e *Endpoint) alive(c echo.Context) error {
	return c.JSON(http.StatusOK, &apimodels.IsAliveResponse{
		Status: "OK",
	})
}

// version godoc
//
//	@ID				agent/version
//	@Summary		Returns the build version running on the server.
//	@Tags			Ops
//	@Produce		json
//	@Success		200	{object}	apimodels.GetVersionResponse
//	@Router			/api/v1/agent/version [get]
func (e *Endpoint) version(c echo.Context) error {
	return c.JSON(http.StatusOK, apimodels.GetVersionResponse{
		BuildVersionInfo: version.Get(),
	})
}

// config godoc
//
//	@ID			agent/config
//	@Summary	Returns the effective configuration and the active cache tiers.
//	@Tags		Ops
//	@Produce	json
//	@Success	200	{object}	apimodels.GetAgentConfigResponse
//	@Router		/api/v1/agent/config [get]
func (e *Endpoint) getConfig(c echo.Context) error {
	var tiers []string
	if e.tiersProvider != nil {
		tiers = e.tiersProvider.Tiers()
	}
	return c.JSON(http.StatusOK, apimodels.GetAgentConfigResponse{
		Config: e.config,
		Tiers:  tiers,
	})
}
