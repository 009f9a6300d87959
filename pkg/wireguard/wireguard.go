// Package wireguard wraps wg and wg-quick for a single configured interface.
package wireguard

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/dotkeep/dotkeep/pkg/logging"
	"github.com/dotkeep/dotkeep/pkg/runner"
)

// Peer is one peer line from 'wg show <iface> dump'
type Peer struct {
	PublicKey       string
	Endpoint        string
	LatestHandshake time.Time
	RxBytes         int64
	TxBytes         int64
}

// Status describes the tunnel state
type Status struct {
	Interface string
	Up        bool
	Peers     []Peer
}

// CheckResult reports the outcome of a tunnel health check
type CheckResult struct {
	Up             bool
	HandshakeFresh bool
	HandshakeAge   time.Duration
	EndpointOK     bool
	Healthy        bool
}

// Helper wraps wg operations for one interface
type Helper struct {
	iface  string
	runner runner.Runner
	client *http.Client
	logger zerolog.Logger
}

// New creates a Helper for the named interface
func New(iface string, r runner.Runner, client *http.Client) *Helper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Helper{
		iface:  iface,
		runner: r,
		client: client,
		logger: logging.GetLogger("wireguard"),
	}
}

// Up brings the interface up via wg-quick
func (h *Helper) Up(ctx context.Context) error {
	if _, err := h.runner.Run(ctx, "wg-quick", "up", h.iface); err != nil {
		return errors.Wrapf(err, errors.ErrCommandFailed, "cannot bring %s up", h.iface)
	}
	h.logger.Info().Str("interface", h.iface).Msg("interface up")
	return nil
}

// Down takes the interface down via wg-quick
func (h *Helper) Down(ctx context.Context) error {
	if _, err := h.runner.Run(ctx, "wg-quick", "down", h.iface); err != nil {
		return errors.Wrapf(err, errors.ErrCommandFailed, "cannot bring %s down", h.iface)
	}
	h.logger.Info().Str("interface", h.iface).Msg("interface down")
	return nil
}

// Show reports the tunnel state. An interface that is down is a normal
// Status with Up=false, not an error.
func (h *Helper) Show(ctx context.Context) (Status, error) {
	status := Status{Interface: h.iface}

	res, err := h.runner.Run(ctx, "wg", "show", h.iface, "dump")
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrCommandNotFound) {
			return status, err
		}
		// wg exits non-zero when the interface does not exist
		return status, nil
	}

	peers, err := parseDump(res.Stdout)
	if err != nil {
		return status, err
	}

	status.Up = true
	status.Peers = peers
	return status, nil
}

// parseDump parses 'wg show <iface> dump' output. The first line describes
// the interface, every following line one peer:
//
//	pubkey  psk  endpoint  allowed-ips  latest-handshake  rx  tx  keepalive
func parseDump(out string) ([]Peer, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, nil
	}

	var peers []Peer
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 7 {
			return nil, errors.Newf(errors.ErrInternal, "unexpected wg dump line: %q", line)
		}

		handshake, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrInternal, "bad handshake timestamp in %q", line)
		}
		rx, _ := strconv.ParseInt(fields[5], 10, 64)
		tx, _ := strconv.ParseInt(fields[6], 10, 64)

		// wg prints the literal "(none)" for a peer without an endpoint
		endpoint := fields[2]
		if endpoint == "(none)" {
			endpoint = ""
		}

		peer := Peer{
			PublicKey: fields[0],
			Endpoint:  endpoint,
			RxBytes:   rx,
			TxBytes:   tx,
		}
		if handshake > 0 {
			peer.LatestHandshake = time.Unix(handshake, 0)
		}
		peers = append(peers, peer)
	}
	return peers, nil
}

// Check verifies tunnel health: interface up, a handshake younger than
// maxAge, and (when checkURL is set) a successful GET of checkURL.
func (h *Helper) Check(ctx context.Context, maxAge time.Duration, checkURL string) (CheckResult, error) {
	result := CheckResult{}

	status, err := h.Show(ctx)
	if err != nil {
		return result, err
	}
	result.Up = status.Up
	if !status.Up {
		return result, errors.Newf(errors.ErrCheckFailed, "interface %s is down", h.iface)
	}

	result.HandshakeAge, result.HandshakeFresh = handshakeAge(status.Peers, maxAge)
	if !result.HandshakeFresh {
		return result, errors.Newf(errors.ErrCheckFailed,
			"no handshake in the last %s", maxAge)
	}

	if checkURL != "" {
		if err := h.probe(ctx, checkURL); err != nil {
			return result, err
		}
		result.EndpointOK = true
	}

	result.Healthy = true
	return result, nil
}

// handshakeAge returns the age of the freshest peer handshake and whether
// it is within maxAge
func handshakeAge(peers []Peer, maxAge time.Duration) (time.Duration, bool) {
	var newest time.Time
	for _, p := range peers {
		if p.LatestHandshake.After(newest) {
			newest = p.LatestHandshake
		}
	}
	if newest.IsZero() {
		return 0, false
	}

	age := time.Since(newest)
	return age, age <= maxAge
}

// probe fetches checkURL and requires a 2xx answer
func (h *Helper) probe(ctx context.Context, checkURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, nil)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "bad check URL %s", checkURL)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCheckFailed, "cannot reach %s", checkURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Newf(errors.ErrCheckFailed,
			"%s answered %s", checkURL, resp.Status)
	}
	return nil
}

// FormatTransfer renders a byte count the way 'wg show' does
func FormatTransfer(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
