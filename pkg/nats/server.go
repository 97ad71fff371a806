package nats

import (
	"context"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const ReadyForConnectionsTimeout = 5 * time.Second

type ServerManagerParams struct {
	// Port to listen on. server.RANDOM_PORT picks a free one.
	Port int
	// StoreDir holds the JetStream data, so the remote tier survives restarts.
	StoreDir          string
	ConnectionTimeout time.Duration
}

// ServerManager runs an in-process NATS server with JetStream enabled.
type ServerManager struct {
	Server *server.Server
}

func NewServerManager(ctx context.Context, params ServerManagerParams) (*ServerManager, error) {
	opts := &server.Options{
		ServerName: "tiercache",
		Host:       "127.0.0.1",
		Port:       params.Port,
		JetStream:  true,
		StoreDir:   params.StoreDir,
		NoSigs:     true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedded NATS server")
	}
	ns.SetLoggerV2(NewZeroLogger(log.Logger, opts.ServerName), false, false, false)
	go ns.Start()

	if params.ConnectionTimeout == 0 {
		params.ConnectionTimeout = ReadyForConnectionsTimeout
	}
	if !ns.ReadyForConnections(params.ConnectionTimeout) {
		ns.Shutdown()
		return nil, errors.Errorf("embedded NATS server not ready for connection within %s", params.ConnectionTimeout)
	}
	log.Ctx(ctx).Debug().Msgf("NATS server %s listening on %s", ns.ID(), ns.ClientURL())
	return &ServerManager{
		Server: ns,
	}, nil
}

// ClientURL is the address clients use to reach the server.
func (sm *ServerManager) ClientURL() string {
	return sm.Server.ClientURL()
}

// Stop shuts the server down and waits for it to exit.
func (sm *ServerManager) Stop() {
	sm.Server.Shutdown()
	sm.Server.WaitForShutdown()
}

// ZeroLogger routes NATS server logs to zerolog.
type ZeroLogger struct {
	logger   zerolog.Logger
	serverID string
}

func NewZeroLogger(logger zerolog.Logger, serverID string) ZeroLogger {
	return ZeroLogger{
		logger:   logger,
		serverID: serverID,
	}
}

// Notice and debug logs from the server are noisy, so they go to trace.
func (l ZeroLogger) Noticef(format string, v ...interface{}) {
	l.logWithLevel(zerolog.TraceLevel, format, v)
}

func (l ZeroLogger) Warnf(format string, v ...interface{}) {
	l.logWithLevel(zerolog.WarnLevel, format, v)
}

// Fatalf is logged at error level and does not exit the process.
func (l ZeroLogger) Fatalf(format string, v ...interface{}) {
	l.logWithLevel(zerolog.ErrorLevel, format, v)
}

func (l ZeroLogger) Errorf(format string, v ...interface{}) {
	l.logWithLevel(zerolog.ErrorLevel, format, v)
}

func (l ZeroLogger) Debugf(format string, v ...interface{}) {
	l.logWithLevel(zerolog.TraceLevel, format, v)
}

func (l ZeroLogger) Tracef(format string, v ...interface{}) {
	l.logWithLevel(zerolog.TraceLevel, format, v)
}

func (l ZeroLogger) logWithLevel(level zerolog.Level, format string, v []interface{}) {
	l.logger.WithLevel(level).Str("Server", l.serverID).Msgf(format, v...)
}

var _ server.Logger = (*ZeroLogger)(nil)
