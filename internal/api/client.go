package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vegscan/vegscan/internal/gateway"
)

// Endpoint paths on the analysis backend.
const (
	EndpointScan         = "/scan"
	EndpointDashboard    = "/dashboard"
	EndpointHistory      = "/history"
	EndpointAdminUsers   = "/admin/users"
	EndpointSystemStatus = "/admin/system-status"
	EndpointTestAI       = "/admin/system/test-ai"
	EndpointClearDataset = "/admin/system/clear-dataset"
	EndpointExportData   = "/admin/system/export-data"
)

// Client exposes one method per backend endpoint. All calls are
// authenticated; failures surface as *gateway.Error.
type Client struct {
	gw *gateway.Gateway
}

// NewClient creates a Client over the given gateway.
func NewClient(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

// scanTimeout bounds the scan upload. Image transfer plus model inference
// routinely outlasts the transport's default request timeout.
const scanTimeout = 2 * time.Minute

// Scan uploads an image for analysis and returns the backend's verdict,
// tagged OriginLive.
func (c *Client) Scan(ctx context.Context, filename string, data []byte) (*ScanResult, error) {
	resp, err := c.gw.Call(ctx, EndpointScan, gateway.CallOptions{
		Method:  http.MethodPost,
		Timeout: scanTimeout,
		File: &gateway.FilePayload{
			Field:    "image",
			Filename: filename,
			Data:     data,
		},
	})
	if err != nil {
		return nil, err
	}

	var result ScanResult
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("api: decode scan result: %w", err)
	}
	result.Origin = OriginLive
	return &result, nil
}

// Dashboard fetches the aggregate scan counts and recent scans.
func (c *Client) Dashboard(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.getJSON(ctx, EndpointDashboard, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// History fetches the full scan history, newest first.
func (c *Client) History(ctx context.Context) ([]ScanRecord, error) {
	var records []ScanRecord
	if err := c.getJSON(ctx, EndpointHistory, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Users lists all accounts (admin only).
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.getJSON(ctx, EndpointAdminUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ToggleUserStatus flips a user's active flag (admin only).
func (c *Client) ToggleUserStatus(ctx context.Context, userID string) error {
	endpoint := fmt.Sprintf("%s/%s/toggle-status", EndpointAdminUsers, userID)
	_, err := c.gw.Call(ctx, endpoint, gateway.CallOptions{Method: http.MethodPut})
	return err
}

// DeleteUser removes an account permanently (admin only).
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	endpoint := fmt.Sprintf("%s/%s", EndpointAdminUsers, userID)
	_, err := c.gw.Call(ctx, endpoint, gateway.CallOptions{Method: http.MethodDelete})
	return err
}

// SystemStatus fetches the backend's operational snapshot (admin only).
func (c *Client) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	var status SystemStatus
	if err := c.getJSON(ctx, EndpointSystemStatus, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// TestAI probes the inference backend's connectivity (admin only).
func (c *Client) TestAI(ctx context.Context) (*AITestResult, error) {
	var result AITestResult
	if err := c.getJSON(ctx, EndpointTestAI, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearDataset wipes the collected training dataset (admin only).
func (c *Client) ClearDataset(ctx context.Context) error {
	_, err := c.gw.Call(ctx, EndpointClearDataset, gateway.CallOptions{Method: http.MethodPost})
	return err
}

// ExportData downloads the raw dataset export (admin only).
func (c *Client) ExportData(ctx context.Context) ([]byte, error) {
	resp, err := c.gw.Call(ctx, EndpointExportData, gateway.CallOptions{})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// getJSON performs an authenticated GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	resp, err := c.gw.Call(ctx, endpoint, gateway.CallOptions{})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("api: decode %s response: %w", endpoint, err)
	}
	return nil
}
