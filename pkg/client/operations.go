package client

import (
	"context"
	"fmt"
)

// Pipeline is an entry from a Stream/Edge worker group's pipeline list.
type Pipeline struct {
	ID string `json:"id"`
}

// Route is an entry from a worker group's route list.
type Route struct {
	ID       string `json:"id"`
	Pipeline string `json:"pipeline"`
	Output   string `json:"output"`
	Disabled bool   `json:"disabled"`
}

// Input is an entry from a worker group's input list.
type Input struct {
	ID                 string `json:"id"`
	TLSEnabled         bool   `json:"tlsEnabled"`
	TLSVersion         string `json:"tlsVersion,omitempty"`
	SkipCertValidation bool   `json:"skipCertValidation,omitempty"`
	AuthType           string `json:"authType"`
	RawConfig          string `json:"rawConfig,omitempty"`
}

// Output is an entry from a worker group's output list.
type Output struct {
	ID string `json:"id"`
}

// Lookup is an entry from a worker group's lookup-table list.
type Lookup struct {
	ID string `json:"id"`
}

// Parser is an entry from a worker group's parser list.
type Parser struct {
	ID string `json:"id"`
}

// SystemStatus is the decoded body of the optional /api/v1/system/status
// endpoint, which may 404 on Cloud.
type SystemStatus struct {
	Status string `json:"status"`
}

// HealthStatus is the decoded body of /api/v1/health: overall system
// health plus, where the product exposes one, leader health.
type HealthStatus struct {
	Status string `json:"status"`
	Leader struct {
		Status string `json:"status"`
	} `json:"leader"`
}

// LicenseInfo is the decoded body of the license/limits endpoint.
type LicenseInfo struct {
	AllocatedGB    float64   `json:"allocatedGb"`
	CurrentUsageGB float64   `json:"currentUsageGb"`
	DailyUsageGB   []float64 `json:"dailyUsageGb"`
}

// LakeDataset is an entry from a Lake's dataset list.
type LakeDataset struct {
	ID string `json:"id"`
}

// Lakehouse is an entry from a Lake's lakehouse list.
type Lakehouse struct {
	ID string `json:"id"`
}

// DatasetStats is the decoded body of a single Lake dataset's stats.
type DatasetStats struct {
	SizeGB   float64 `json:"sizeGb"`
	RowCount int64   `json:"rowCount"`
}

// SearchJob is an entry from a Search workspace's job list.
type SearchJob struct {
	ID string `json:"id"`
}

// SearchDataset is an entry from a Search workspace's dataset list.
type SearchDataset struct {
	ID string `json:"id"`
}

// Dashboard is an entry from a Search workspace's dashboard list.
type Dashboard struct {
	ID string `json:"id"`
}

// SavedSearch is an entry from a Search workspace's saved-search list.
type SavedSearch struct {
	ID string `json:"id"`
}

// groupPath composes a worker-group-scoped endpoint,
// /api/v1/m/{group}/{resource}. lakePath and searchPath below build the
// Lake (/api/v1/products/lake/lakes/{lake}/...) and Search
// (/api/v1/m/{workspace}/search/...) scopes.
func (c *Client) groupPath(resource string) string {
	return fmt.Sprintf("/api/v1/m/%s/%s", c.group, resource)
}

func (c *Client) lakePath(lake, resource string) string {
	if lake == "" {
		lake = c.lake
	}
	return fmt.Sprintf("/api/v1/products/lake/lakes/%s/%s", lake, resource)
}

func (c *Client) searchPath(resource string) string {
	return fmt.Sprintf("/api/v1/m/%s/search/%s", c.workspace, resource)
}

// GetPipelines fetches the worker group's pipeline list.
func (c *Client) GetPipelines(ctx context.Context) ([]Pipeline, error) {
	var out []Pipeline
	err := c.Get(ctx, c.groupPath("pipelines"), false, &out)
	return out, err
}

// GetRoutes fetches the worker group's route list.
func (c *Client) GetRoutes(ctx context.Context) ([]Route, error) {
	var out []Route
	err := c.Get(ctx, c.groupPath("routes"), false, &out)
	return out, err
}

// GetInputs fetches the worker group's input list.
func (c *Client) GetInputs(ctx context.Context) ([]Input, error) {
	var out []Input
	err := c.Get(ctx, c.groupPath("inputs"), false, &out)
	return out, err
}

// GetOutputs fetches the worker group's output list.
func (c *Client) GetOutputs(ctx context.Context) ([]Output, error) {
	var out []Output
	err := c.Get(ctx, c.groupPath("outputs"), false, &out)
	return out, err
}

// GetLookups fetches the worker group's lookup-table list.
func (c *Client) GetLookups(ctx context.Context) ([]Lookup, error) {
	var out []Lookup
	err := c.Get(ctx, c.groupPath("lookups"), false, &out)
	return out, err
}

// GetParsers fetches the worker group's parser list.
func (c *Client) GetParsers(ctx context.Context) ([]Parser, error) {
	var out []Parser
	err := c.Get(ctx, c.groupPath("parsers"), false, &out)
	return out, err
}

// GetSystemStatus fetches /api/v1/system/status, which may 404 on Cloud.
func (c *Client) GetSystemStatus(ctx context.Context) (SystemStatus, error) {
	var out SystemStatus
	err := c.Get(ctx, "/api/v1/system/status", true, &out)
	return out, err
}

// GetHealth fetches /api/v1/health: overall and, where exposed, leader health.
func (c *Client) GetHealth(ctx context.Context) (HealthStatus, error) {
	var out HealthStatus
	err := c.Get(ctx, "/api/v1/health", true, &out)
	return out, err
}

// GetMetrics fetches /api/v1/metrics, which may 404 on Cloud.
func (c *Client) GetMetrics(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	err := c.Get(ctx, "/api/v1/metrics", true, &out)
	return out, err
}

// GetLicenseInfo fetches the deployment's license allocation and usage.
func (c *Client) GetLicenseInfo(ctx context.Context) (LicenseInfo, error) {
	var out LicenseInfo
	err := c.Get(ctx, "/api/v1/system/limits", true, &out)
	return out, err
}

// GetLakeDatasets fetches a Lake's dataset list. An empty lake argument
// uses the client's configured default Lake scope.
func (c *Client) GetLakeDatasets(ctx context.Context, lake string) ([]LakeDataset, error) {
	var out []LakeDataset
	err := c.Get(ctx, c.lakePath(lake, "datasets"), false, &out)
	return out, err
}

// GetLakehouses fetches a Lake's lakehouse list.
func (c *Client) GetLakehouses(ctx context.Context, lake string) ([]Lakehouse, error) {
	var out []Lakehouse
	err := c.Get(ctx, c.lakePath(lake, "lakehouses"), false, &out)
	return out, err
}

// GetDatasetStats fetches a single Lake dataset's volume/row statistics.
func (c *Client) GetDatasetStats(ctx context.Context, lake, id string) (DatasetStats, error) {
	var out DatasetStats
	err := c.Get(ctx, c.lakePath(lake, "datasets/"+id+"/stats"), false, &out)
	return out, err
}

// GetSearchJobs fetches the Search workspace's job list.
func (c *Client) GetSearchJobs(ctx context.Context) ([]SearchJob, error) {
	var out []SearchJob
	err := c.Get(ctx, c.searchPath("jobs"), false, &out)
	return out, err
}

// GetSearchDatasets fetches the Search workspace's dataset list.
func (c *Client) GetSearchDatasets(ctx context.Context) ([]SearchDataset, error) {
	var out []SearchDataset
	err := c.Get(ctx, c.searchPath("datasets"), false, &out)
	return out, err
}

// GetDashboards fetches the Search workspace's dashboard list.
func (c *Client) GetDashboards(ctx context.Context) ([]Dashboard, error) {
	var out []Dashboard
	err := c.Get(ctx, c.searchPath("dashboards"), false, &out)
	return out, err
}

// GetSavedSearches fetches the Search workspace's saved-search list.
func (c *Client) GetSavedSearches(ctx context.Context) ([]SavedSearch, error) {
	var out []SavedSearch
	err := c.Get(ctx, c.searchPath("saved-searches"), false, &out)
	return out, err
}
