package peer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(ips ...string) lookupFunc {
	return func(context.Context, string) ([]string, error) { return ips, nil }
}

func failing(context.Context, string) ([]string, error) {
	return nil, errors.New("no such host")
}

func TestResolver_IPLiteral(t *testing.T) {
	r := &Resolver{local: failing}
	ip, err := r.Lookup(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)
}

func TestResolver_LocalPrefersIPv4(t *testing.T) {
	r := &Resolver{local: fixed("2001:db8::1", "192.0.2.7")}
	ip, err := r.Lookup(context.Background(), "relay.example.com")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.7", ip)
}

func TestResolver_FallsBackToRace(t *testing.T) {
	slow := func(ctx context.Context, _ string) ([]string, error) {
		select {
		case <-time.After(time.Second):
			return []string{"198.51.100.1"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r := &Resolver{local: failing, remotes: []lookupFunc{failing, slow, fixed("203.0.113.9")}}

	ip, err := r.Lookup(context.Background(), "relay.example.com")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.9", ip)
}

func TestResolver_AllFail(t *testing.T) {
	r := &Resolver{local: failing, remotes: []lookupFunc{failing, failing, fixed()}}
	_, err := r.Lookup(context.Background(), "relay.example.com")
	assert.ErrorContains(t, err, "all 3 public DNS servers failed")

	r = &Resolver{local: failing}
	_, err = r.Lookup(context.Background(), "relay.example.com")
	assert.Error(t, err)
}

func TestTrimBrackets(t *testing.T) {
	assert.Equal(t, "2606:4700:4700::1111", trimBrackets("[2606:4700:4700::1111]"))
	assert.Equal(t, "1.1.1.1", trimBrackets("1.1.1.1"))
}
