package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/aws/aws-msk-iam-sasl-signer-go/signer"
	"github.com/aws/aws-sdk-go-v2/aws"
)

// iamTokenProvider signs an MSK IAM auth token for every broker connection.
type iamTokenProvider struct {
	ctx         context.Context
	region      string
	credentials aws.CredentialsProvider
}

var _ sarama.AccessTokenProvider = (*iamTokenProvider)(nil)

func newIAMTokenProvider(ctx context.Context, region string, credentials aws.CredentialsProvider) (*iamTokenProvider, error) {
	if region == "" {
		return nil, fmt.Errorf("region is required for IAM authentication")
	}
	if credentials == nil {
		return nil, fmt.Errorf("credentials are required for IAM authentication")
	}
	return &iamTokenProvider{ctx: ctx, region: region, credentials: credentials}, nil
}

// Token implements sarama.AccessTokenProvider.
func (p *iamTokenProvider) Token() (*sarama.AccessToken, error) {
	token, _, err := signer.GenerateAuthTokenFromCredentialsProvider(p.ctx, p.region, p.credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to sign msk iam token: %w", err)
	}
	return &sarama.AccessToken{Token: token}, nil
}
