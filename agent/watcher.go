package agent

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"time"

	"deploytrace/model"

	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// containerActions are the lifecycle events forwarded to the server.
var containerActions = map[string]bool{
	"create":  true,
	"start":   true,
	"die":     true,
	"kill":    true,
	"stop":    true,
	"pause":   true,
	"unpause": true,
	"restart": true,
	"destroy": true,
}

// imageActions are the image events forwarded to the server.
var imageActions = map[string]bool{
	"untag":  true,
	"delete": true,
}

// IsDockerAvailable checks if the Docker daemon is accessible
func IsDockerAvailable() bool {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false
	}
	defer func() { _ = cli.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = cli.Ping(ctx)
	return err == nil
}

// hostInfo identifies this daemon in outgoing reports. It prefers the
// daemon's own identity and falls back to the local hostname.
func hostInfo(ctx context.Context, cli *client.Client) *model.HostInfo {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	info, err := cli.Info(ctx)
	if err != nil {
		log.Printf("Warning: failed to read daemon info, using hostname: %v", err)
		return &model.HostInfo{ID: hostname, Name: hostname}
	}

	host := &model.HostInfo{ID: info.ID, Name: info.Name}
	if host.ID == "" {
		host.ID = hostname
	}
	if host.Name == "" {
		host.Name = hostname
	}
	return host
}

// WatchContainers watches Docker lifecycle events and enqueues a report for
// each. It reconnects when the event stream drops and only returns when the
// context is cancelled.
func WatchContainers(ctx context.Context, submitter *Submitter, environment string) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = cli.Ping(pingCtx)
	cancel()
	if err != nil {
		return err
	}

	log.Println("Docker watcher: connected to Docker daemon")

	host := hostInfo(ctx, cli)

	// Report the containers that were already running before we connected
	if err := syncInitialContainers(ctx, cli, host, submitter, environment); err != nil {
		log.Printf("Warning: initial container sync failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Println("Docker watcher shutting down")
			return nil
		default:
			eventFilters := filters.NewArgs()
			eventFilters.Add("type", "container")
			eventFilters.Add("type", "image")

			eventsChan, errChan := cli.Events(ctx, events.ListOptions{
				Filters: eventFilters,
			})

			log.Println("Docker watcher started")

		eventLoop:
			for {
				select {
				case <-ctx.Done():
					log.Println("Docker watcher shutting down")
					return nil

				case err := <-errChan:
					if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
						log.Printf("Docker events error: %v", err)
					}
					break eventLoop

				case event := <-eventsChan:
					handleEvent(ctx, cli, host, submitter, environment, event)
				}
			}

			log.Println("Docker watcher connection closed, reconnecting...")
			time.Sleep(1 * time.Second)
		}
	}
}

func handleEvent(ctx context.Context, cli *client.Client, host *model.HostInfo, submitter *Submitter, environment string, event events.Message) {
	action := string(event.Action)
	eventTime := event.Time
	if eventTime == 0 {
		eventTime = time.Now().Unix()
	}

	switch event.Type {
	case events.ContainerEventType:
		if !containerActions[action] {
			return
		}
		submitter.Enqueue(containerReport(ctx, cli, host, event.Actor.ID, action, eventTime, environment, event.Actor.Attributes))

	case events.ImageEventType:
		if !imageActions[action] {
			return
		}
		submitter.Enqueue(imageReport(ctx, cli, host, event.Actor.ID, action, eventTime, environment))
	}
}

// containerReport builds a report carrying the container's full inspection
// payload. When the container is already gone (die, destroy) the report
// falls back to the event attributes.
func containerReport(ctx context.Context, cli *client.Client, host *model.HostInfo, containerID, status string, eventTime int64, environment string, attributes map[string]string) *model.Report {
	report := &model.Report{
		Event:       &model.Event{Status: status, ID: containerID, Time: eventTime},
		HostInfo:    host,
		Environment: environment,
	}

	resp, raw, err := cli.ContainerInspectWithRaw(ctx, containerID, false)
	if err != nil {
		log.Printf("Failed to inspect container %s, reporting event only: %v", shortID(containerID), err)
		report.ImageName = attributes["image"]
		return report
	}

	container, err := model.NewContainerInfo(raw)
	if err != nil {
		log.Printf("Failed to parse inspection payload for %s: %v", shortID(containerID), err)
		return report
	}

	report.Container = container
	report.ImageID = resp.Image
	if resp.Config != nil {
		report.ImageName = resp.Config.Image
	}
	return report
}

// imageReport builds a report for an image event. Deleted images can no
// longer be inspected, so the snapshot is best effort.
func imageReport(ctx context.Context, cli *client.Client, host *model.HostInfo, imageID, status string, eventTime int64, environment string) *model.Report {
	report := &model.Report{
		Event:       &model.Event{Status: status, ID: imageID, Time: eventTime},
		HostInfo:    host,
		ImageID:     imageID,
		Environment: environment,
	}

	resp, raw, err := cli.ImageInspectWithRaw(ctx, imageID)
	if err != nil {
		return report
	}

	image, err := model.NewImageInfo(raw)
	if err != nil {
		log.Printf("Failed to parse image inspection payload for %s: %v", shortID(imageID), err)
		return report
	}

	report.Image = image
	report.ImageID = resp.ID
	if len(resp.RepoTags) > 0 {
		report.ImageName = resp.RepoTags[0]
	}
	return report
}

// syncInitialContainers reports all currently running containers
func syncInitialContainers(ctx context.Context, cli *client.Client, host *model.HostInfo, submitter *Submitter, environment string) error {
	log.Println("Docker watcher: performing initial container sync...")

	containerList, err := cli.ContainerList(ctx, containertypes.ListOptions{
		All: false, // Only running containers
	})
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, c := range containerList {
		submitter.Enqueue(containerReport(ctx, cli, host, c.ID, string(model.EventNone), now, environment, nil))
	}

	log.Printf("Docker watcher: initial sync complete: %d containers reported", len(containerList))
	return nil
}
