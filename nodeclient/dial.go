package nodeclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"strings"

	"github.com/lightningnetwork/lnd/tor"
	"golang.org/x/net/proxy"
)

// DialOption customizes the *http.Client a Client dials a node with.
type DialOption func(*http.Transport)

// WithTorSocks routes requests to ".onion" node hosts through a local Tor
// SOCKS5 proxy (spec.md §4.3's node URL may carry a ".onion" host; the
// teacher ships lnd/tor specifically to reach such addresses, see
// lnwire/message_test.go's tor.OnionAddr/tor.OnionSuffix usage).
// Non-onion hosts are dialed directly.
func WithTorSocks(socksAddr string) DialOption {
	return func(t *http.Transport) {
		dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
		if err != nil {
			return
		}
		t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, splitErr := net.SplitHostPort(addr)
			if splitErr == nil && strings.HasSuffix(host, tor.OnionSuffix) {
				return dialer.Dial(network, addr)
			}
			return (&net.Dialer{}).DialContext(ctx, network, addr)
		}
	}
}

// WithPinnedCert restricts the client's TLS trust to exactly the given
// certificate, rather than the system root pool — for nodes serving a
// self-signed certificate out of band (spec.md §4.3's node URL may be
// https:// against a private node deployment). The pack's lnd/cert module
// targets lnd's own self-issued RPC certificate lifecycle (generation,
// rotation) rather than pinning a third party's certificate, so this client
// builds the pinned tls.Config directly from crypto/x509 (see DESIGN.md).
func WithPinnedCert(certPEM []byte) DialOption {
	return func(t *http.Transport) {
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM(certPEM) {
			t.TLSClientConfig = &tls.Config{RootCAs: pool}
		}
	}
}
