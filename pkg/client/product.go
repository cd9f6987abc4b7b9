package client

type versionResponse struct {
	Product string `json:"product"`
	Version string `json:"version"`
}
