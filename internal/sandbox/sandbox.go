// Package sandbox manages a throwaway local development environment: a
// Vault server in dev mode and a Postgres instance, both as Docker
// containers. It exists so lease issuance and write-only transmission can
// be exercised end to end without touching shared infrastructure.
package sandbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/sealix-io/sealix/internal/logging"
)

const (
	labelKey   = "io.sealix.sandbox"
	labelValue = "true"

	vaultImage    = "hashicorp/vault:1.17"
	postgresImage = "postgres:16-alpine"

	// DevRootToken is the Vault root token in dev mode. Sandbox only.
	DevRootToken = "sealix-dev-root"

	// PostgresPassword is the superuser password for the sandbox database.
	PostgresPassword = "sealix-dev"
)

// Sandbox drives the local dev containers.
type Sandbox struct {
	client *client.Client

	VaultPort    string
	PostgresPort string
}

func New() (*Sandbox, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Sandbox{
		client:       cli,
		VaultPort:    "8200",
		PostgresPort: "5432",
	}, nil
}

// Up pulls images and starts the Vault and Postgres containers. It is
// idempotent against name collisions from a previous run: stale sandbox
// containers are removed first.
func (s *Sandbox) Up(ctx context.Context) error {
	if err := s.Down(ctx); err != nil {
		return err
	}

	if err := s.startContainer(ctx, containerSpec{
		name:  "sealix-sandbox-vault",
		image: vaultImage,
		env: []string{
			"VAULT_DEV_ROOT_TOKEN_ID=" + DevRootToken,
			"VAULT_DEV_LISTEN_ADDRESS=0.0.0.0:8200",
		},
		port:        "8200",
		hostPort:    s.VaultPort,
		capAdd:      []string{"IPC_LOCK"},
		healthProbe: nil,
	}); err != nil {
		return err
	}

	if err := s.startContainer(ctx, containerSpec{
		name:  "sealix-sandbox-postgres",
		image: postgresImage,
		env: []string{
			"POSTGRES_PASSWORD=" + PostgresPassword,
			"POSTGRES_DB=sealix",
		},
		port:     "5432",
		hostPort: s.PostgresPort,
		healthProbe: &container.HealthConfig{
			Test:     []string{"CMD-SHELL", "pg_isready -U postgres"},
			Interval: 2 * time.Second,
			Retries:  15,
		},
	}); err != nil {
		return err
	}

	logging.Info("sandbox up",
		"vault", "http://127.0.0.1:"+s.VaultPort,
		"vault_token", DevRootToken,
		"postgres", "127.0.0.1:"+s.PostgresPort)
	return nil
}

// Down stops and removes every sandbox container.
func (s *Sandbox) Down(ctx context.Context) error {
	containers, err := s.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", labelKey+"="+labelValue)),
	})
	if err != nil {
		return fmt.Errorf("failed to list sandbox containers: %w", err)
	}

	for _, c := range containers {
		timeout := 10 // seconds
		_ = s.client.ContainerStop(ctx, c.ID, container.StopOptions{Timeout: &timeout})
		if err := s.client.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			if !client.IsErrNotFound(err) {
				return fmt.Errorf("failed to remove container %s: %w", c.ID, err)
			}
		}
		logging.Debug("removed sandbox container", "id", c.ID)
	}
	return nil
}

type containerSpec struct {
	name        string
	image       string
	env         []string
	port        string // container port, tcp
	hostPort    string
	capAdd      []string
	healthProbe *container.HealthConfig
}

func (s *Sandbox) startContainer(ctx context.Context, spec containerSpec) error {
	reader, err := s.client.ImagePull(ctx, spec.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", spec.image, err)
	}
	io.Copy(os.Stderr, reader)
	reader.Close()

	containerPort := nat.Port(spec.port + "/tcp")
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			containerPort: []nat.PortBinding{
				{HostIP: "127.0.0.1", HostPort: spec.hostPort},
			},
		},
		CapAdd: spec.capAdd,
	}

	config := &container.Config{
		Image:       spec.image,
		Env:         spec.env,
		Labels:      map[string]string{labelKey: labelValue},
		Healthcheck: spec.healthProbe,
		ExposedPorts: nat.PortSet{
			containerPort: struct{}{},
		},
	}

	resp, err := s.client.ContainerCreate(ctx,
		config,
		hostConfig,
		nil,
		&v1.Platform{},
		spec.name,
	)
	if err != nil {
		return fmt.Errorf("failed to create container %s: %w", spec.name, err)
	}

	if err := s.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container %s: %w", spec.name, err)
	}

	logging.Info("started sandbox container", "name", spec.name, "id", resp.ID[:12])
	return nil
}
