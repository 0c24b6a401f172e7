package stripe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
)

func TestNewClientMatchesKeyToMode(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr string
		live    bool
	}{
		{name: "test key", cfg: config.StripeConfig{APIKey: "sk_test_abc", Secret: "whsec_1", Env: "test"}},
		{name: "default mode is test", cfg: config.StripeConfig{APIKey: "rk_test_abc", Secret: "whsec_1"}},
		{name: "live key", cfg: config.StripeConfig{APIKey: "sk_live_abc", Secret: "whsec_1", Env: " LIVE "}, live: true},
		{name: "live key in test mode", cfg: config.StripeConfig{APIKey: "sk_live_abc", Secret: "whsec_1", Env: "test"}, wantErr: "requires a sk_test_ or rk_test_ key"},
		{name: "unknown mode", cfg: config.StripeConfig{APIKey: "sk_test_abc", Secret: "whsec_1", Env: "staging"}, wantErr: "test or live"},
		{name: "missing key", cfg: config.StripeConfig{Secret: "whsec_1"}, wantErr: errAPIKeyRequired.Error()},
		{name: "missing secret", cfg: config.StripeConfig{APIKey: "sk_test_abc"}, wantErr: errSecretRequired.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tc.cfg, nil)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.live, client.Live())
			assert.Equal(t, "whsec_1", client.SigningSecret())
			assert.NotNil(t, client.CheckoutSessions())
		})
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var client *Client
	assert.Nil(t, client.CheckoutSessions())
	assert.Empty(t, client.SigningSecret())
	assert.False(t, client.Live())
}
