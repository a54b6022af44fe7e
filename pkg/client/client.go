package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/corral-dev/corral/api/proto"
	"github.com/corral-dev/corral/pkg/errdefs"
	"github.com/corral-dev/corral/pkg/types"
	"github.com/hashicorp/go-retryablehttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// ControlPlane is the worker-side client for the control plane's REST
// surface. Registration and heartbeats go over HTTP; lease traffic uses the
// gRPC stream from DialLeases.
type ControlPlane struct {
	baseURL string
	http    *retryablehttp.Client
}

// NewControlPlane creates a client for the REST API at baseURL.
func NewControlPlane(baseURL string) *ControlPlane {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil

	return &ControlPlane{
		baseURL: baseURL,
		http:    rc,
	}
}

// RegisterNode announces the worker to the control plane.
func (c *ControlPlane) RegisterNode(ctx context.Context, node *types.Node) error {
	body := map[string]any{
		"id":       node.ID,
		"metadata": node.Metadata,
		"capacity": node.Capacity,
	}
	return c.post(ctx, "/v1/nodes", body)
}

// Heartbeat reports the node's load and liveness.
func (c *ControlPlane) Heartbeat(ctx context.Context, nodeID string, status types.NodeStatus) error {
	body := map[string]any{
		"state":          status.State,
		"activeRuns":     status.ActiveRuns,
		"availableSlots": status.AvailableSlots,
	}
	return c.post(ctx, "/v1/nodes/"+nodeID+":heartbeat", body)
}

func (c *ControlPlane) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errdefs.Transientf("control plane unreachable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Error == "" {
		apiErr.Error = string(raw)
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return errdefs.Validationf("%s", apiErr.Error)
	case http.StatusNotFound:
		return errdefs.NotFoundf("%s", apiErr.Error)
	case http.StatusConflict:
		return errdefs.Conflictf("%s", apiErr.Error)
	case http.StatusForbidden:
		return errdefs.NotOwnerf("%s", apiErr.Error)
	default:
		return errdefs.Transientf("control plane returned %d: %s", resp.StatusCode, apiErr.Error)
	}
}

// DialLeases opens a gRPC connection to the lease service.
func DialLeases(addr string) (proto.LeaseServiceClient, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial lease service: %w", err)
	}
	return proto.NewLeaseServiceClient(conn), conn, nil
}
