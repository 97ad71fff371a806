// Package publicapi serves the cache over HTTP.
package publicapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	sync "github.com/bacalhau-project/golang-mutex-tracer"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/bacalhau-project/tiercache/pkg/publicapi/middleware"
)

type Config struct {
	// These are TCP connection deadlines and not HTTP timeouts. They don't control the time it takes for our handlers
	// to complete.
	ReadHeaderTimeout time.Duration // the amount of time allowed to read request headers
	ReadTimeout       time.Duration // the maximum duration for reading the entire request, including the body
	WriteTimeout      time.Duration // the maximum duration before timing out writes of the response

	// MaxBytesToReadInBody bounds request bodies, e.g. "10M".
	MaxBytesToReadInBody string
}

func NewConfig() *Config {
	return &Config{
		ReadHeaderTimeout:    10 * time.Second,
		ReadTimeout:          20 * time.Second,
		WriteTimeout:         20 * time.Second,
		MaxBytesToReadInBody: "10M",
	}
}

type ServerParams struct {
	Router  *echo.Echo
	Address string
	Port    int
	Config  Config
}

// Server owns the echo router and the http.Server listening for it.
type Server struct {
	Router  *echo.Echo
	Address string

	mu         sync.Mutex
	port       int
	listener   net.Listener
	httpServer http.Server
}

func NewAPIServer(params ServerParams) (*Server, error) {
	if params.Router == nil {
		return nil, errors.New("router cannot be nil")
	}

	server := &Server{
		Router:  params.Router,
		Address: params.Address,
		port:    params.Port,
	}
	server.mu.EnableTracerWithOpts(sync.Opts{
		Threshold: 10 * time.Millisecond,
		Id:        "APIServer.mu",
	})

	server.Router.HideBanner = true
	server.Router.HidePort = true
	server.Router.HTTPErrorHandler = middleware.CustomHTTPErrorHandler
	server.Router.Use(
		echomiddleware.Recover(),
		echomiddleware.RequestID(),
		middleware.DefaultRequestLogger(),
		echomiddleware.BodyLimit(params.Config.MaxBytesToReadInBody),
	)

	server.httpServer = http.Server{
		Handler:           server.Router,
		ReadHeaderTimeout: params.Config.ReadHeaderTimeout,
		ReadTimeout:       params.Config.ReadTimeout,
		WriteTimeout:      params.Config.WriteTimeout,
	}
	return server, nil
}

// Port returns the port the server listens on. A server configured with port
// 0 reports the port it was given once ListenAndServe has bound it.
func (apiServer *Server) Port() int {
	apiServer.mu.Lock()
	defer apiServer.mu.Unlock()
	return apiServer.port
}

// GetURI returns the HTTP URI that the server is listening on.
func (apiServer *Server) GetURI() *url.URL {
	interpolated := fmt.Sprintf("http://%s", net.JoinHostPort(apiServer.Address, strconv.Itoa(apiServer.Port())))
	uri, err := url.Parse(interpolated)
	if err != nil {
		panic(fmt.Errorf("callback url must parse: %s", interpolated))
	}
	return uri
}

// ListenAndServe listens for and serves HTTP requests against the API
// server. It returns nil once Shutdown is called.
func (apiServer *Server) ListenAndServe(ctx context.Context) error {
	if err := apiServer.Listen(); err != nil {
		return err
	}
	return apiServer.Serve(ctx)
}

// Listen binds the server's address. Once it returns, Port and GetURI report
// the bound port and clients can connect, even before Serve is called.
func (apiServer *Server) Listen() error {
	apiServer.mu.Lock()
	defer apiServer.mu.Unlock()
	if apiServer.listener != nil {
		return errors.New("server is already listening")
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(apiServer.Address, strconv.Itoa(apiServer.port)))
	if err != nil {
		return err
	}
	if addr, ok := listener.Addr().(*net.TCPAddr); ok {
		apiServer.port = addr.Port
	}
	apiServer.listener = listener
	return nil
}

// Serve serves HTTP requests on the address bound by Listen. It returns nil
// once Shutdown is called.
func (apiServer *Server) Serve(ctx context.Context) error {
	apiServer.mu.Lock()
	listener := apiServer.listener
	apiServer.mu.Unlock()
	if listener == nil {
		return errors.New("server is not listening")
	}

	log.Ctx(ctx).Debug().Msgf("API server listening on %s", listener.Addr())

	err := apiServer.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		log.Ctx(ctx).Debug().Msgf("API server closed on %s", listener.Addr())
		return nil
	}
	return err
}

// Shutdown stops the server gracefully. It is safe to call on a server that
// is not running.
func (apiServer *Server) Shutdown(ctx context.Context) error {
	return apiServer.httpServer.Shutdown(ctx)
}
