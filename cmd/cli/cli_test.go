//go:build unit || !integration

package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/suite"

	"github.com/bacalhau-project/tiercache/cmd/cli"
	"github.com/bacalhau-project/tiercache/pkg/config/types"
	"github.com/bacalhau-project/tiercache/pkg/logger"
	"github.com/bacalhau-project/tiercache/pkg/publicapi/apimodels"
	"github.com/bacalhau-project/tiercache/pkg/version"
)

const testConfig = `
Cache:
  TTL: 1h
  Local:
    Path: cache.db
`

// syncBuffer lets a test read the output of a command still running in
// another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type CLISuite struct {
	suite.Suite
	dir   string
	stdin io.Reader
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
	s.dir = s.T().TempDir()
	s.stdin = strings.NewReader("")
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "config.yaml"), []byte(testConfig), 0o600))
}

func (s *CLISuite) command(out io.Writer, args ...string) (*cobra.Command, []string) {
	cmd := cli.NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(s.stdin)
	return cmd, append([]string{"--config-dir", s.dir, "--log-mode", "event"}, args...)
}

func (s *CLISuite) run(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd, fullArgs := s.command(buf, args...)
	cmd.SetArgs(fullArgs)
	err := cli.ExecuteContext(context.Background(), cmd)
	return buf.String(), err
}

func (s *CLISuite) TestSetThenGet() {
	_, err := s.run("set", "user:1", `{ "name": "ada" }`)
	s.Require().NoError(err)

	out, err := s.run("get", "user:1")
	s.Require().NoError(err)
	s.Equal("{\"name\":\"ada\"}\n", out)
}

func (s *CLISuite) TestSetFromStdin() {
	s.stdin = strings.NewReader("[1, 2, 3]\n")
	_, err := s.run("set", "numbers")
	s.Require().NoError(err)

	out, err := s.run("get", "numbers")
	s.Require().NoError(err)
	s.Equal("[1,2,3]\n", out)
}

func (s *CLISuite) TestSetRejectsInvalidInput() {
	_, err := s.run("set", "bad", "{not json")
	s.ErrorContains(err, "not valid JSON")

	_, err = s.run("set", "bad", `"v"`, "--ttl=-1s")
	s.Error(err)

	out, err := s.run("has", "bad")
	s.Require().NoError(err)
	s.Equal("false\n", out)
}

func (s *CLISuite) TestGetMissing() {
	_, err := s.run("get", "missing")
	s.ErrorContains(err, "key missing not found")
}

func (s *CLISuite) TestTTL() {
	_, err := s.run("set", "short", `"v"`, "--ttl", "1ns")
	s.Require().NoError(err)

	out, err := s.run("has", "short")
	s.Require().NoError(err)
	s.Equal("false\n", out)
}

func (s *CLISuite) TestHasAndDelete() {
	_, err := s.run("set", "k", `"v"`)
	s.Require().NoError(err)

	out, err := s.run("has", "k")
	s.Require().NoError(err)
	s.Equal("true\n", out)

	out, err = s.run("delete", "k")
	s.Require().NoError(err)
	s.Equal("true\n", out)

	out, err = s.run("delete", "k")
	s.Require().NoError(err)
	s.Equal("false\n", out)
}

func (s *CLISuite) TestClear() {
	for _, key := range []string{"a", "b"} {
		_, err := s.run("set", key, `1`)
		s.Require().NoError(err)
	}

	_, err := s.run("clear")
	s.Require().NoError(err)

	for _, key := range []string{"a", "b"} {
		out, err := s.run("has", key)
		s.Require().NoError(err)
		s.Equal("false\n", out)
	}
}

func (s *CLISuite) TestKeys() {
	for _, key := range []string{"b", "a"} {
		_, err := s.run("set", key, `1`)
		s.Require().NoError(err)
	}
	_, err := s.run("set", "gone", `1`, "--ttl", "1ns")
	s.Require().NoError(err)

	out, err := s.run("keys", "--output", "json")
	s.Require().NoError(err)
	var keys []string
	s.Require().NoError(json.Unmarshal([]byte(out), &keys))
	s.Equal([]string{"a", "b"}, keys)

	out, err = s.run("keys", "--output", "csv", "--hide-header")
	s.Require().NoError(err)
	s.Equal("a\nb\n", out)
}

// startServe runs `serve` on a free port until ctx is cancelled. It returns
// the base URL of the API, its port and the result of the command.
func (s *CLISuite) startServe(ctx context.Context) (string, int, <-chan error) {
	out := new(syncBuffer)
	cmd, args := s.command(out, "serve", "--host", "127.0.0.1", "--port", "0")
	cmd.SetArgs(args)

	errCh := make(chan error, 1)
	go func() {
		errCh <- cli.ExecuteContext(ctx, cmd)
	}()

	var api string
	s.Require().Eventually(func() bool {
		for _, line := range strings.Split(out.String(), "\n") {
			if fields := strings.Fields(line); len(fields) == 3 && fields[0] == "API" {
				api = fields[2]
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
	s.Contains(out.String(), "memory,local")

	u, err := url.Parse(api)
	s.Require().NoError(err)
	port, err := strconv.Atoi(u.Port())
	s.Require().NoError(err)
	return api, port, errCh
}

func (s *CLISuite) stopServe(cancel context.CancelFunc, errCh <-chan error) {
	cancel()
	select {
	case err := <-errCh:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("serve did not stop")
	}
}

func (s *CLISuite) put(api, key, value, ttl string) {
	target := api + "/api/v1/cache/keys/" + key
	if ttl != "" {
		target += "?ttl=" + ttl
	}
	req, err := http.NewRequest(http.MethodPut, target, strings.NewReader(value))
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Require().Equal(http.StatusNoContent, resp.StatusCode)
}

func (s *CLISuite) TestCleanup() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api, port, errCh := s.startServe(ctx)

	s.put(api, "short", `1`, "1ms")
	s.put(api, "long", `2`, "1h")
	time.Sleep(20 * time.Millisecond)

	out, err := s.run("cleanup", "--api-port", strconv.Itoa(port))
	s.Require().NoError(err)
	s.Equal("removed 1 expired entries\n", out)

	out, err = s.run("cleanup", "--api-port", strconv.Itoa(port))
	s.Require().NoError(err)
	s.Equal("removed 0 expired entries\n", out)

	s.stopServe(cancel, errCh)
}

func (s *CLISuite) TestStats() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api, port, errCh := s.startServe(ctx)

	s.put(api, "a", `1`, "")
	s.put(api, "b", `2`, "")
	resp, err := http.Get(api + "/api/v1/cache/keys/a")
	s.Require().NoError(err)
	resp.Body.Close()

	out, err := s.run("stats", "--api-port", strconv.Itoa(port), "--output", "json")
	s.Require().NoError(err)

	var stats apimodels.GetStatsResponse
	s.Require().NoError(json.Unmarshal([]byte(out), &stats))
	s.Equal([]string{"memory", "local"}, stats.Tiers)
	s.Equal(2, stats.Size)
	s.Equal(uint64(2), stats.Sets)
	s.Equal(uint64(1), stats.Hits)

	out, err = s.run("stats", "--api-port", strconv.Itoa(port))
	s.Require().NoError(err)
	s.Contains(strings.ToLower(out), "hit rate")
	s.Contains(out, "memory,local")

	s.stopServe(cancel, errCh)
}

func (s *CLISuite) TestStatsWithoutServer() {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)
	port := l.Addr().(*net.TCPAddr).Port
	s.Require().NoError(l.Close())

	_, err = s.run("stats", "--api-port", strconv.Itoa(port))
	s.ErrorContains(err, "tiercache serve")

	_, err = s.run("cleanup", "--api-port", strconv.Itoa(port))
	s.ErrorContains(err, "tiercache serve")
}

func (s *CLISuite) TestConfigShow() {
	out, err := s.run("config", "show", "--output", "json")
	s.Require().NoError(err)

	var cfg types.Config
	s.Require().NoError(json.Unmarshal([]byte(out), &cfg))
	s.Equal(types.Hour, cfg.Cache.TTL)
	s.Equal(filepath.Join(s.dir, "cache.db"), cfg.Cache.Local.Path)
	s.Equal(types.Default.Cache.MaxSize, cfg.Cache.MaxSize)
}

func (s *CLISuite) TestConfigShowInvalid() {
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "config.yaml"), []byte("Cache:\n  MaxSize: 0\n"), 0o600))
	_, err := s.run("config", "show")
	s.Error(err)
}

func (s *CLISuite) TestConfigDefault() {
	out, err := s.run("config", "default")
	s.Require().NoError(err)
	s.Contains(out, "TTL: 5m0s")
	s.Contains(out, "MaxSize: 1000")
}

func (s *CLISuite) TestVersion() {
	out, err := s.run("version", "--output", "json")
	s.Require().NoError(err)

	var info version.BuildVersionInfo
	s.Require().NoError(json.Unmarshal([]byte(out), &info))
	s.Equal(version.GITVERSION, info.GitVersion)
}

func (s *CLISuite) TestUnknownLogMode() {
	_, err := s.run("--log-mode", "xml", "version")
	s.Error(err)
}

func (s *CLISuite) TestServe() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api, _, errCh := s.startServe(ctx)

	s.put(api, "greeting", `"hello"`, "")

	resp, err := http.Get(api + "/api/v1/cache/keys/greeting")
	s.Require().NoError(err)
	var entry apimodels.GetEntryResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&entry))
	resp.Body.Close()
	s.Equal(`"hello"`, string(entry.Value))

	s.stopServe(cancel, errCh)

	// the value outlives the server in the local tier
	got, err := s.run("get", "greeting")
	s.Require().NoError(err)
	s.Equal("\"hello\"\n", got)
}
