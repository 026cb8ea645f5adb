package content

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/openboard/moderation-server/internal/config"
	"golang.org/x/net/proxy"
)

// newHTTPClient builds the outbound client, dialing through SOCKS5 when a
// proxy is configured.
func newHTTPClient(cfg *config.ProxyConfig, timeout time.Duration) (*http.Client, error) {
	if cfg == nil || cfg.Address == "" || cfg.Port == 0 {
		return &http.Client{Timeout: timeout}, nil
	}

	addr := fmt.Sprintf("%s:%s", cfg.Address, strconv.Itoa(cfg.Port))

	var auth *proxy.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = &proxy.Auth{User: cfg.Username, Password: cfg.Password}
	}

	dialer, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("cannot init socks5 proxy client dialer: %w", err)
	}

	httpTransport := &http.Transport{}
	httpTransport.DialContext = func(_ context.Context, network, address string) (net.Conn, error) {
		return dialer.Dial(network, address)
	}

	return &http.Client{Transport: httpTransport, Timeout: timeout}, nil
}
