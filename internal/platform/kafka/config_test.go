package kafka

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"net/url"
	"strings"
	"testing"

	"github.com/IBM/sarama"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/mskstack/pkg/msk"
)

var testBrokers = []string{"b-1.orders.kafka.eu-west-1.amazonaws.com:9098"}

func staticCredentials() credentials.StaticCredentialsProvider {
	return credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", "")
}

func TestNewConfig_IAM(t *testing.T) {
	t.Parallel()
	sc, err := NewConfig(context.Background(), Options{
		Brokers:     testBrokers,
		Auth:        msk.AuthenticationIAM,
		Region:      "eu-west-1",
		Credentials: staticCredentials(),
	})
	require.NoError(t, err)

	assert.True(t, sc.Net.TLS.Enable)
	assert.True(t, sc.Net.SASL.Enable)
	assert.Equal(t, sarama.SASLMechanism(sarama.SASLTypeOAuth), sc.Net.SASL.Mechanism)
	assert.Equal(t, sarama.SASLHandshakeV1, sc.Net.SASL.Version)
	assert.NotNil(t, sc.Net.SASL.TokenProvider)
	assert.Equal(t, DefaultClientID, sc.ClientID)
	assert.Equal(t, DefaultDialTimeout, sc.Net.DialTimeout)
	assert.Empty(t, sc.Net.TLS.Config.Certificates)
}

func TestNewConfig_MTLS(t *testing.T) {
	t.Parallel()
	cert := tls.Certificate{Certificate: [][]byte{[]byte("der")}}
	sc, err := NewConfig(context.Background(), Options{
		Brokers:     testBrokers,
		Auth:        msk.AuthenticationMTLS,
		Certificate: &cert,
		ClientID:    "doctor",
	})
	require.NoError(t, err)

	assert.True(t, sc.Net.TLS.Enable)
	assert.False(t, sc.Net.SASL.Enable)
	assert.Len(t, sc.Net.TLS.Config.Certificates, 1)
	assert.Equal(t, uint16(tls.VersionTLS12), sc.Net.TLS.Config.MinVersion)
	assert.Equal(t, "doctor", sc.ClientID)
}

func TestNewConfig_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{
			name:    "no brokers",
			opts:    Options{Auth: msk.AuthenticationIAM},
			wantErr: "at least one broker is required",
		},
		{
			name:    "iam without region",
			opts:    Options{Brokers: testBrokers, Auth: msk.AuthenticationIAM, Credentials: staticCredentials()},
			wantErr: "region is required",
		},
		{
			name:    "iam without credentials",
			opts:    Options{Brokers: testBrokers, Auth: msk.AuthenticationIAM, Region: "eu-west-1"},
			wantErr: "credentials are required",
		},
		{
			name:    "mtls without certificate",
			opts:    Options{Brokers: testBrokers, Auth: msk.AuthenticationMTLS},
			wantErr: "client certificate is required",
		},
		{
			name:    "unknown method",
			opts:    Options{Brokers: testBrokers, Auth: "scram"},
			wantErr: "not supported",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewConfig(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIAMTokenProvider_SignsToken(t *testing.T) {
	t.Parallel()
	p, err := newIAMTokenProvider(context.Background(), "eu-west-1", staticCredentials())
	require.NoError(t, err)

	token, err := p.Token()
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)

	raw, err := base64.RawURLEncoding.DecodeString(token.Token)
	require.NoError(t, err)
	u, err := url.Parse(string(raw))
	require.NoError(t, err)
	assert.Equal(t, "kafka.eu-west-1.amazonaws.com", u.Host)
	assert.Equal(t, "kafka-cluster:Connect", u.Query().Get("Action"))
	assert.True(t, strings.HasPrefix(u.Query().Get("X-Amz-Credential"), "AKIDEXAMPLE/"))
}
