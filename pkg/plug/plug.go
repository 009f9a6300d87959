// Package plug triggers a Tasmota-style smart plug over HTTP.
//
// Commands go to http://<host>/cm?cmnd=Power%20<verb> and the plug answers
// with JSON like {"POWER":"ON"}.
package plug

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/dotkeep/dotkeep/pkg/logging"
)

// PowerState is the plug's reported relay state
type PowerState string

const (
	PowerOn  PowerState = "ON"
	PowerOff PowerState = "OFF"
)

// Client talks to one smart plug
type Client struct {
	host   string
	http   *http.Client
	logger zerolog.Logger
}

// New creates a Client for the plug at host. A zero timeout defaults to 5s.
func New(host string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		host:   host,
		http:   &http.Client{Timeout: timeout},
		logger: logging.GetLogger("plug"),
	}
}

// NewWithHTTPClient creates a Client with a caller-provided http.Client
func NewWithHTTPClient(host string, httpClient *http.Client) *Client {
	return &Client{
		host:   host,
		http:   httpClient,
		logger: logging.GetLogger("plug"),
	}
}

// On switches the plug on
func (c *Client) On(ctx context.Context) (PowerState, error) {
	return c.command(ctx, "Power On")
}

// Off switches the plug off
func (c *Client) Off(ctx context.Context) (PowerState, error) {
	return c.command(ctx, "Power Off")
}

// Toggle flips the relay state
func (c *Client) Toggle(ctx context.Context) (PowerState, error) {
	return c.command(ctx, "Power Toggle")
}

// Status reads the relay state without changing it
func (c *Client) Status(ctx context.Context) (PowerState, error) {
	return c.command(ctx, "Power")
}

// command sends one cmnd request and parses the POWER field of the answer
func (c *Client) command(ctx context.Context, cmnd string) (PowerState, error) {
	if c.host == "" {
		return "", errors.New(errors.ErrInvalidInput,
			"no plug host configured (set plug.host in config.toml)")
	}

	u := url.URL{
		Scheme:   "http",
		Host:     c.host,
		Path:     "/cm",
		RawQuery: url.Values{"cmnd": {cmnd}}.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "cannot build request")
	}

	c.logger.Debug().Str("host", c.host).Str("cmnd", cmnd).Msg("sending plug command")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrRequestFailed,
			"cannot reach plug at %s", c.host)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf(errors.ErrRequestFailed,
			"plug at %s answered %s", c.host, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrRequestFailed,
			"cannot read answer from %s", c.host)
	}

	var answer struct {
		Power PowerState `json:"POWER"`
	}
	if err := json.Unmarshal(body, &answer); err != nil {
		return "", errors.Wrapf(err, errors.ErrRequestFailed,
			"unexpected answer from %s: %s", c.host, string(body))
	}
	if answer.Power != PowerOn && answer.Power != PowerOff {
		return "", errors.Newf(errors.ErrRequestFailed,
			"unexpected power state %q from %s", answer.Power, c.host)
	}

	c.logger.Info().Str("host", c.host).Str("power", string(answer.Power)).Msg("plug answered")
	return answer.Power, nil
}
