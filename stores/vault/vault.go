// Package vault implements the secret store boundary against HashiCorp
// Vault's HTTP API: KV v2 for static secrets and the database secrets
// engine for dynamic credential leases.
package vault

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sealix-io/sealix/internal/logging"
	"github.com/sealix-io/sealix/pkg/store"
)

const (
	defaultAddress = "http://127.0.0.1:8200"
	defaultMount   = "secret"
	defaultDBMount = "database"
)

// Store talks to a Vault server over its HTTP API.
type Store struct {
	address   string
	token     logging.Secret
	namespace string
	mount     string // KV v2 mount
	dbMount   string // database secrets engine mount
	client    *http.Client
}

// New builds a Vault store from registry options. The token is taken from
// the options or the VAULT_TOKEN environment variable.
func New(options map[string]string) (*Store, error) {
	s := &Store{
		address: defaultAddress,
		mount:   defaultMount,
		dbMount: defaultDBMount,
	}

	if addr := options["address"]; addr != "" {
		s.address = addr
	}
	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		s.address = addr
	}
	s.address = strings.TrimSuffix(s.address, "/")

	s.token = logging.Secret(options["token"])
	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		s.token = logging.Secret(token)
	}
	if s.token == "" {
		return nil, fmt.Errorf("no vault token in options or VAULT_TOKEN environment variable")
	}

	if ns := options["namespace"]; ns != "" {
		s.namespace = ns
	}
	if mount := options["mount"]; mount != "" {
		s.mount = mount
	}
	if mount := options["db_mount"]; mount != "" {
		s.dbMount = mount
	}

	transport := http.DefaultTransport
	if options["tls_skip"] == "true" {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	s.client = &http.Client{Transport: transport}

	return s, nil
}

// Write upserts a KV v2 secret. The payload travels in the request body
// only; nothing is retained on the store after the call returns.
func (s *Store) Write(ctx context.Context, path string, payload map[string]any) error {
	body := map[string]any{"data": payload}
	if _, err := s.do(ctx, http.MethodPost, s.kvPath("data", path), body); err != nil {
		return err
	}
	return nil
}

// Read fetches a KV v2 secret payload.
func (s *Store) Read(ctx context.Context, path string) (map[string]any, error) {
	raw, err := s.do(ctx, http.MethodGet, s.kvPath("data", path), nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Data struct {
			Data map[string]any `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("failed to decode vault response: %w", err)
	}
	if response.Data.Data == nil {
		return nil, fmt.Errorf("no secret at %s", path)
	}
	return response.Data.Data, nil
}

// IssueLease requests dynamic credentials from the database secrets engine.
func (s *Store) IssueLease(ctx context.Context, role string) (*store.Lease, error) {
	raw, err := s.do(ctx, http.MethodGet, fmt.Sprintf("%s/creds/%s", s.dbMount, role), nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		LeaseID       string `json:"lease_id"`
		LeaseDuration int    `json:"lease_duration"`
		Data          struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("failed to decode lease response: %w", err)
	}
	if response.LeaseID == "" {
		return nil, fmt.Errorf("vault returned no lease for role %s", role)
	}

	return &store.Lease{
		Credentials: map[string]string{
			"username": response.Data.Username,
			"password": response.Data.Password,
		},
		LeaseID: response.LeaseID,
		TTL:     time.Duration(response.LeaseDuration) * time.Second,
	}, nil
}

// RevokeLease revokes a lease by id.
func (s *Store) RevokeLease(ctx context.Context, leaseID string) error {
	body := map[string]any{"lease_id": leaseID}
	if _, err := s.do(ctx, http.MethodPut, "sys/leases/revoke", body); err != nil {
		return err
	}
	return nil
}

func (s *Store) kvPath(segment, path string) string {
	return fmt.Sprintf("%s/%s/%s", s.mount, segment, strings.TrimPrefix(path, "/"))
}

// do performs one authenticated request against the Vault API and returns
// the raw response body. 204s return an empty body.
func (s *Store) do(ctx context.Context, method, apiPath string, body map[string]any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	url := fmt.Sprintf("%s/v1/%s", s.address, apiPath)
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Vault-Token", string(s.token))
	if s.namespace != "" {
		req.Header.Set("X-Vault-Namespace", s.namespace)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vault request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read vault response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vault returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}
