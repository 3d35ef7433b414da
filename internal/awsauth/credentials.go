// Package awsauth builds the authorization clauses used by warehouse bulk
// loads from S3.
package awsauth

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// DefaultProvider returns the AWS default credential chain (environment
// variables, shared config files, instance and container roles).
func DefaultProvider(ctx context.Context, region string) (aws.CredentialsProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Credentials == nil {
		return nil, fmt.Errorf("no AWS credentials provider configured")
	}
	return cfg.Credentials, nil
}

// RoleCredentials returns the credential string for an IAM role.
func RoleCredentials(arn string) string {
	return "aws_iam_role=" + arn
}

// KeyCredentials retrieves access keys from the provider and returns them
// as a credential string. Session tokens are appended when present.
func KeyCredentials(ctx context.Context, provider aws.CredentialsProvider) (string, error) {
	creds, err := provider.Retrieve(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve AWS credentials: %w", err)
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return "", fmt.Errorf("AWS credentials from %s are incomplete", creds.Source)
	}

	s := fmt.Sprintf("aws_access_key_id=%s;aws_secret_access_key=%s",
		creds.AccessKeyID, creds.SecretAccessKey)
	if creds.SessionToken != "" {
		s += ";token=" + creds.SessionToken
	}
	return s, nil
}

var secretPattern = regexp.MustCompile(`(aws_secret_access_key|token)=[^;']*`)

// Redact masks secret keys and session tokens in statement text.
func Redact(s string) string {
	return secretPattern.ReplaceAllString(s, "$1=****")
}
