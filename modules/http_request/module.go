// Package http_request provides the http_request node type, which performs a
// request when it cooks and outputs the response.
package http_request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/param"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// DefaultTimeout bounds a request made with the default client.
const DefaultTimeout = 30 * time.Second

// Module implements the registry.Module interface for this package. A nil
// Client means NewClient(DefaultTimeout).
type Module struct {
	Client *http.Client
}

// Params are the parameters of an http_request node.
type Params struct {
	URL    string `param:"url"`
	Method string `param:"method"`
}

// NewClient returns a client with a pooled transport.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Cook performs the request and outputs {status_code, body}.
func (m *Module) Cook(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	var p Params
	if err := registry.DecodeParams(ctx, cc, &p); err != nil {
		return cty.NilVal, err
	}
	if p.URL == "" {
		return cty.NilVal, fmt.Errorf("parameter 'url' is empty")
	}
	method := strings.ToUpper(p.Method)
	if method == "" {
		method = http.MethodGet
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("Making HTTP request.", "node", cc.NodePath(), "method", method, "url", p.URL)

	req, err := http.NewRequestWithContext(ctx, method, p.URL, nil)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.Client.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Debug("Received HTTP response.", "node", cc.NodePath(), "status", resp.Status)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to read response body: %w", err)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"body":        cty.StringVal(string(body)),
	}), nil
}

// Register registers the node type with the registry.
func (m *Module) Register(r *registry.Registry) {
	if m.Client == nil {
		m.Client = NewClient(DefaultTimeout)
	}
	r.RegisterNodeType("http_request", func() registry.Kind { return registry.KindFunc(m.Cook) }, registry.TypeOptions{
		Description: "Performs an HTTP request and outputs the response.",
		IO: connection.Declaration{
			Outputs: []connection.Point{connection.NewOutput("response", connection.TypeAny)},
		},
		Params: []param.Spec{
			param.String("url", ""),
			param.String("method", "GET"),
		},
		ParamsStruct: Params{},
	})
}
