package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// ResyncJob periodically submits the full set of running containers to the
// server. It backfills anything lost to dropped events or agent downtime.
type ResyncJob struct {
	client      *Client
	environment string
}

// NewResyncJob creates a resync job delivering through the given client.
func NewResyncJob(c *Client, environment string) *ResyncJob {
	return &ResyncJob{client: c, environment: environment}
}

// Name returns the unique identifier for this job
func (j *ResyncJob) Name() string {
	return "container-resync"
}

// Run collects the inspection payloads of all running containers and posts
// them as one container-status batch.
func (j *ResyncJob) Run(ctx context.Context) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("failed to create Docker client: %w", err)
	}
	defer func() { _ = cli.Close() }()

	host := hostInfo(ctx, cli)

	containerList, err := cli.ContainerList(ctx, containertypes.ListOptions{
		All: false,
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	payloads := make([]json.RawMessage, 0, len(containerList))
	for _, c := range containerList {
		_, raw, err := cli.ContainerInspectWithRaw(ctx, c.ID, false)
		if err != nil {
			log.Printf("Warning: failed to inspect container %s during resync: %v", shortID(c.ID), err)
			continue
		}
		payloads = append(payloads, json.RawMessage(raw))
	}

	if len(payloads) == 0 {
		log.Println("Resync: no running containers to report")
		return nil
	}

	if err := j.client.SubmitContainerStatus(ctx, payloads, host.ID, host.Name, j.environment); err != nil {
		return fmt.Errorf("failed to submit container status: %w", err)
	}

	log.Printf("Resync: reported %d running containers", len(payloads))
	return nil
}
