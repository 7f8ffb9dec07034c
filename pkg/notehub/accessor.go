package notehub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

const pageSize = 100

func (c *Client) projectPath() string {
	return "/v1/projects/" + url.PathEscape(c.projectUID)
}

func (c *Client) devicePath(deviceUID string) string {
	return c.projectPath() + "/devices/" + url.PathEscape(deviceUID)
}

// GetDevices lists every device of the project
func (c *Client) GetDevices(ctx context.Context) ([]Device, error) {
	var devices []Device
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("pageSize", strconv.Itoa(pageSize))
		q.Set("pageNum", strconv.Itoa(page))

		var resp DevicesResponse
		if err := c.get(ctx, c.projectPath()+"/devices?"+q.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("failed to list devices: %w", err)
		}
		devices = append(devices, resp.Devices...)

		if !resp.HasMore || len(resp.Devices) == 0 {
			return devices, nil
		}
	}
}

// GetDevice retrieves one device of the project
func (c *Client) GetDevice(ctx context.Context, deviceUID string) (*Device, error) {
	var device Device
	if err := c.get(ctx, c.devicePath(deviceUID), &device); err != nil {
		return nil, fmt.Errorf("failed to get device %s: %w", deviceUID, err)
	}
	return &device, nil
}

// GetLatestEvents retrieves the latest event of each notefile of a device
func (c *Client) GetLatestEvents(ctx context.Context, deviceUID string) ([]models.RoutedEvent, error) {
	var resp LatestEventsResponse
	if err := c.get(ctx, c.devicePath(deviceUID)+"/latest", &resp); err != nil {
		return nil, fmt.Errorf("failed to get latest events of %s: %w", deviceUID, err)
	}
	return c.withProject(resp.LatestEvents, deviceUID), nil
}

// GetEvents retrieves every project event captured since the given time
func (c *Client) GetEvents(ctx context.Context, since time.Time) ([]models.RoutedEvent, error) {
	var events []models.RoutedEvent
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("pageSize", strconv.Itoa(pageSize))
		q.Set("pageNum", strconv.Itoa(page))
		q.Set("sortBy", "captured")
		q.Set("sortOrder", "asc")
		q.Set("startDate", strconv.FormatInt(since.Unix(), 10))

		// event pages move with time, never served from the cache
		data, err := c.doRequest(ctx, http.MethodGet, c.projectPath()+"/events?"+q.Encode(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get events: %w", err)
		}

		var resp EventsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("%w: failed to parse events: %w", models.ErrUpstreamUnavailable, err)
		}
		events = append(events, c.withProject(resp.Events, "")...)

		if !resp.HasMore || len(resp.Events) == 0 {
			return events, nil
		}
	}
}

// GetRecentEvents retrieves the project events inside the historical window
func (c *Client) GetRecentEvents(ctx context.Context) ([]models.RoutedEvent, error) {
	since := time.Now().Add(-time.Duration(c.historicalMinutes) * time.Minute)
	return c.GetEvents(ctx, since)
}

// withProject fills the envelope fields the event listing endpoints leave out
func (c *Client) withProject(events []models.RoutedEvent, deviceUID string) []models.RoutedEvent {
	for i := range events {
		if events[i].Project == nil {
			events[i].Project = &models.RoutedProject{ID: c.projectUID}
		}
		if events[i].Device == "" {
			events[i].Device = deviceUID
		}
	}
	return events
}

// GetEnvironmentVariables retrieves the environment variables set on a device
func (c *Client) GetEnvironmentVariables(ctx context.Context, deviceUID string) (EnvironmentVariables, error) {
	var resp environmentVariablesBody
	if err := c.get(ctx, c.devicePath(deviceUID)+"/environment_variables", &resp); err != nil {
		return nil, fmt.Errorf("failed to get environment variables of %s: %w", deviceUID, err)
	}
	if resp.EnvironmentVariables == nil {
		resp.EnvironmentVariables = EnvironmentVariables{}
	}
	return resp.EnvironmentVariables, nil
}

// SetEnvironmentVariables sets the given variables on a device, leaving the others untouched
func (c *Client) SetEnvironmentVariables(ctx context.Context, deviceUID string, vars EnvironmentVariables) error {
	body := environmentVariablesBody{EnvironmentVariables: vars}
	if err := c.send(ctx, http.MethodPut, c.devicePath(deviceUID)+"/environment_variables", body, nil); err != nil {
		return fmt.Errorf("failed to set environment variables of %s: %w", deviceUID, err)
	}
	return nil
}

// GetNodeConfig retrieves the config.db note of a node
func (c *Client) GetNodeConfig(ctx context.Context, gatewayUID, nodeID string) (*NodeConfig, error) {
	resp, err := c.deviceRequest(ctx, gatewayUID, noteRequest{Req: "note.get", File: ConfigFile, Note: nodeID})
	if err != nil {
		return nil, fmt.Errorf("failed to get config of node %s: %w", nodeID, err)
	}
	if resp.Body == nil {
		return &NodeConfig{}, nil
	}
	return resp.Body, nil
}

// ListNodeConfigs retrieves every node note in the config.db of a gateway
func (c *Client) ListNodeConfigs(ctx context.Context, gatewayUID string) (map[string]NodeConfig, error) {
	resp, err := c.deviceRequest(ctx, gatewayUID, noteRequest{Req: "note.changes", File: ConfigFile})
	if err != nil {
		if IsNotFound(err) {
			return map[string]NodeConfig{}, nil
		}
		return nil, fmt.Errorf("failed to list node configs of %s: %w", gatewayUID, err)
	}

	configs := make(map[string]NodeConfig, len(resp.Notes))
	for nodeID, note := range resp.Notes {
		configs[nodeID] = note.Body
	}
	return configs, nil
}

// SetNodeConfig writes the config.db note of a node, creating it when absent
func (c *Client) SetNodeConfig(ctx context.Context, gatewayUID, nodeID string, cfg NodeConfig) error {
	_, err := c.deviceRequest(ctx, gatewayUID, noteRequest{Req: "note.update", File: ConfigFile, Note: nodeID, Body: cfg})
	if IsNotFound(err) {
		_, err = c.deviceRequest(ctx, gatewayUID, noteRequest{Req: "note.add", File: ConfigFile, Note: nodeID, Body: cfg})
	}
	if err != nil {
		return fmt.Errorf("failed to set config of node %s: %w", nodeID, err)
	}

	c.invalidate(ctx)
	return nil
}

// deviceRequest relays a notecard request to a device through Notehub.
// Notehub answers these with status 200 and an "err" field on failure.
func (c *Client) deviceRequest(ctx context.Context, deviceUID string, req noteRequest) (*noteResponse, error) {
	q := url.Values{}
	q.Set("project", c.projectUID)
	q.Set("device", deviceUID)

	data, err := c.doRequest(ctx, http.MethodPost, "/req?"+q.Encode(), req)
	if err != nil {
		return nil, err
	}

	var resp noteResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s response: %w", models.ErrUpstreamUnavailable, req.Req, err)
	}

	if resp.Err != "" {
		apiErr := &APIError{Message: resp.Err}
		if strings.Contains(resp.Err, "{note-noexist}") || strings.Contains(resp.Err, "{notefile-noexist}") {
			return nil, fmt.Errorf("%w: %w", models.ErrNotFound, apiErr)
		}
		return nil, fmt.Errorf("%w: %w", models.ErrRemoteRejected, apiErr)
	}

	return &resp, nil
}
