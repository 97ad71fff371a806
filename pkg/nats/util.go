package nats

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var schemeRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+-.]*://`)

const defaultScheme = "nats://"

// ServersFromStr normalises a comma separated list of server addresses,
// e.g. "localhost:4222, nats://10.0.0.2:4222", into the form nats.Connect
// expects.
func ServersFromStr(serversStr string) (string, error) {
	servers := lo.Filter(lo.Map(strings.Split(serversStr, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}), func(s string, _ int) bool {
		return s != ""
	})
	if len(servers) == 0 {
		return "", errors.New("no NATS server address given")
	}

	urls := make([]string, 0, len(servers))
	for _, s := range servers {
		if !schemeRegex.MatchString(s) {
			s = defaultScheme + s
		}
		u, err := url.Parse(s)
		if err != nil {
			return "", errors.Wrapf(err, "invalid NATS address %s", s)
		}
		urls = append(urls, u.String())
	}
	return strings.Join(urls, ","), nil
}
