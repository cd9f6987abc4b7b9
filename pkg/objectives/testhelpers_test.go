package objectives

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cribl-hc/cribl-hc/pkg/client"
	"github.com/cribl-hc/cribl-hc/pkg/ratelimit"
)

// routedTransport dispatches canned JSON bodies by exact request path,
// mirroring the orchestrator package's fakeTransport fixture.
type routedTransport struct {
	byPath map[string]string
	status map[string]int
}

func (r *routedTransport) Do(req *http.Request) (*http.Response, error) {
	status := http.StatusOK
	if s, ok := r.status[req.URL.Path]; ok {
		status = s
	}
	body, ok := r.byPath[req.URL.Path]
	if !ok {
		body = "{}"
		if status == http.StatusOK {
			status = http.StatusNotFound
		}
	}
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header)}, nil
}

func newTestClient(t *testing.T, byPath map[string]string) *client.Client {
	t.Helper()
	return newTestClientAt(t, "https://cribl.example.com", byPath)
}

func newTestClientAt(t *testing.T, baseURL string, byPath map[string]string) *client.Client {
	t.Helper()
	tr := &routedTransport{byPath: byPath}
	c, err := client.New(client.Options{
		BaseURL:   baseURL,
		Transport: tr,
		Limiter:   ratelimit.New(1000, 100),
	})
	require.NoError(t, err)
	return c
}
