// Package nats manages the NATS connection behind the remote cache tier and,
// optionally, an embedded JetStream-enabled server for single host setups.
package nats

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultConnectTimeout = 5 * time.Second

// ClientManager owns a NATS client connection.
type ClientManager struct {
	Client *nats.Conn
}

// NewClientManager connects to the comma separated servers. Addresses without
// a scheme are treated as nats:// addresses.
func NewClientManager(ctx context.Context, servers string, options ...nats.Option) (*ClientManager, error) {
	urls, err := ServersFromStr(servers)
	if err != nil {
		return nil, err
	}

	options = append([]nats.Option{
		nats.Name("tiercache"),
		nats.Timeout(DefaultConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Ctx(ctx).Info().Str("url", nc.ConnectedUrl()).Msg("reconnected to NATS")
		}),
	}, options...)

	nc, err := nats.Connect(urls, options...)
	if err != nil {
		return nil, interceptConnectionError(err, urls)
	}
	log.Ctx(ctx).Debug().Str("url", nc.ConnectedUrl()).Msg("connected to NATS")
	return &ClientManager{
		Client: nc,
	}, nil
}

// Stop closes the connection.
func (cm *ClientManager) Stop() {
	cm.Client.Close()
}

func interceptConnectionError(err error, servers string) error {
	if errors.Is(err, nats.ErrNoServers) {
		return errors.Wrapf(err, "no NATS server reachable at %s, check that the remote tier URL is correct", servers)
	}
	return errors.Wrapf(err, "failed to connect to NATS at %s", servers)
}
