package plug

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPlug spins up a fake Tasmota endpoint and a Client pointed at it
func newTestPlug(t *testing.T, handler http.HandlerFunc) (*Client, *[]string) {
	t.Helper()

	var commands []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		commands = append(commands, r.URL.Query().Get("cmnd"))
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	return NewWithHTTPClient(u.Host, server.Client()), &commands
}

func TestOnOffToggleStatus(t *testing.T) {
	c, commands := newTestPlug(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cmnd") {
		case "Power Off":
			_, _ = w.Write([]byte(`{"POWER":"OFF"}`))
		default:
			_, _ = w.Write([]byte(`{"POWER":"ON"}`))
		}
	})

	ctx := context.Background()

	state, err := c.On(ctx)
	require.NoError(t, err)
	assert.Equal(t, PowerOn, state)

	state, err = c.Off(ctx)
	require.NoError(t, err)
	assert.Equal(t, PowerOff, state)

	state, err = c.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, PowerOn, state)

	state, err = c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, PowerOn, state)

	assert.Equal(t, []string{"Power On", "Power Off", "Power Toggle", "Power"}, *commands)
}

func TestNoHostConfigured(t *testing.T) {
	c := New("", 0)

	_, err := c.Status(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestUnreachablePlug(t *testing.T) {
	// Reserved TEST-NET address, nothing listens there
	c := New("192.0.2.1:1", 1)

	_, err := c.Status(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrRequestFailed))
	assert.Contains(t, err.Error(), "192.0.2.1:1")
}

func TestHTTPError(t *testing.T) {
	c, _ := newTestPlug(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Status(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrRequestFailed))
}

func TestBadAnswers(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "WARNING: need user=&password="},
		{"missing field", `{"Status":"ok"}`},
		{"weird state", `{"POWER":"MAYBE"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestPlug(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Status(context.Background())
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrRequestFailed))
		})
	}
}
