// Package awssm implements the secret store boundary against AWS Secrets
// Manager. Static payloads map to secrets with JSON string values; dynamic
// credential leases are not a Secrets Manager concept and report as
// unsupported.
package awssm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/sealix-io/sealix/pkg/store"
)

// Store talks to AWS Secrets Manager.
type Store struct {
	client *secretsmanager.Client
}

// New builds a Secrets Manager store from registry options.
func New(ctx context.Context, options map[string]string) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region := options["region"]; region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile := options["profile"]; profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	return &Store{client: secretsmanager.NewFromConfig(cfg)}, nil
}

// Write upserts the payload as the secret's current version. A first write
// creates the secret; later writes put a new version.
func (s *Store) Write(ctx context.Context, path string, payload map[string]any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	value := string(encoded)

	_, err = s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(path),
		SecretString: aws.String(value),
	})
	if err == nil {
		return nil
	}

	var exists *smtypes.ResourceExistsException
	if !errors.As(err, &exists) {
		return fmt.Errorf("failed to create secret %s: %w", path, err)
	}

	_, err = s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(path),
		SecretString: aws.String(value),
	})
	if err != nil {
		return fmt.Errorf("failed to put secret value for %s: %w", path, err)
	}
	return nil
}

// Read fetches and decodes the secret's current JSON value.
func (s *Store) Read(ctx context.Context, path string) (map[string]any, error) {
	resp, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(path),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s: %w", path, err)
	}
	if resp.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", path)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(*resp.SecretString), &payload); err != nil {
		return nil, fmt.Errorf("secret %s is not a JSON object: %w", path, err)
	}
	return payload, nil
}

// IssueLease is not supported by Secrets Manager.
func (s *Store) IssueLease(ctx context.Context, role string) (*store.Lease, error) {
	return nil, fmt.Errorf("awssm store does not issue dynamic credentials")
}

// RevokeLease is not supported by Secrets Manager.
func (s *Store) RevokeLease(ctx context.Context, leaseID string) error {
	return fmt.Errorf("awssm store does not manage leases")
}
