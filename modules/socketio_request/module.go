// Package socketio_request provides the socketio_request node type. Cooking
// it connects to a socket.io server, emits one event and outputs the payload
// of the first reply event.
package socketio_request

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vk/cookgrid/internal/connection"
	"github.com/vk/cookgrid/internal/ctxlog"
	"github.com/vk/cookgrid/internal/param"
	"github.com/vk/cookgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/engine.io/v2/types"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params are the parameters of a socketio_request node.
type Params struct {
	URL                string `param:"url"`
	Namespace          string `param:"namespace"`
	EmitEvent          string `param:"emit_event"`
	EmitData           string `param:"emit_data"`
	OnEvent            string `param:"on_event"`
	Timeout            string `param:"timeout"`
	InsecureSkipVerify bool   `param:"insecure_skip_verify"`
}

type request struct {
	timeout time.Duration
	data    any
}

// prepare checks the parameters before anything touches the network.
func (p *Params) prepare() (*request, error) {
	if p.URL == "" {
		return nil, fmt.Errorf("parameter 'url' is empty")
	}
	if p.EmitEvent == "" || p.OnEvent == "" {
		return nil, fmt.Errorf("parameters 'emit_event' and 'on_event' are required")
	}
	timeout, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timeout: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %v", timeout)
	}
	req := &request{timeout: timeout}
	if p.EmitData != "" {
		if err := json.Unmarshal([]byte(p.EmitData), &req.data); err != nil {
			return nil, fmt.Errorf("parameter 'emit_data' is not valid JSON: %w", err)
		}
	}
	return req, nil
}

type opResult struct {
	value cty.Value
	err   error
}

// CookRequest emits emit_event and waits for on_event.
func CookRequest(ctx context.Context, cc registry.CookContext) (cty.Value, error) {
	var p Params
	if err := registry.DecodeParams(ctx, cc, &p); err != nil {
		return cty.NilVal, err
	}
	req, err := p.prepare()
	if err != nil {
		return cty.NilVal, err
	}

	logger := ctxlog.FromContext(ctx).With("node", cc.NodePath(), "url", p.URL)
	opCtx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	client, err := connect(opCtx, logger, &p, req.timeout)
	if err != nil {
		return cty.NilVal, err
	}
	defer client.Disconnect()

	logger = logger.With("sid", client.Id())
	logger.Info("Executing socket.io request.", "emit_event", p.EmitEvent, "on_event", p.OnEvent)

	done := make(chan opResult, 1)
	client.Once(types.EventName(p.OnEvent), func(data ...any) {
		response := cty.NullVal(cty.DynamicPseudoType)
		if len(data) > 0 {
			v, err := interfaceToCtyValue(data[0])
			if err != nil {
				done <- opResult{err: fmt.Errorf("convert %s payload: %w", p.OnEvent, err)}
				return
			}
			response = v
		}
		done <- opResult{value: cty.ObjectVal(map[string]cty.Value{"response": response})}
	})

	logger.Debug("Emitting event.", "event", p.EmitEvent, "data", p.EmitData)
	if req.data != nil {
		client.Emit(p.EmitEvent, req.data)
	} else {
		client.Emit(p.EmitEvent)
	}

	select {
	case <-opCtx.Done():
		if ctx.Err() != nil {
			return cty.NilVal, ctx.Err()
		}
		return cty.NilVal, fmt.Errorf("timed out after %v waiting for event '%s'", req.timeout, p.OnEvent)
	case res := <-done:
		if res.err != nil {
			return cty.NilVal, res.err
		}
		logger.Info("Received response event.", "event", p.OnEvent)
		return res.value, nil
	}
}

// Register registers the node type with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterNodeType("socketio_request", func() registry.Kind { return registry.KindFunc(CookRequest) }, registry.TypeOptions{
		Description: "Emits a socket.io event and outputs the payload of the reply event.",
		IO: connection.Declaration{
			Outputs: []connection.Point{connection.NewOutput("response", connection.TypeAny)},
		},
		Params: []param.Spec{
			param.String("url", ""),
			param.String("namespace", "/"),
			param.String("emit_event", ""),
			param.String("emit_data", "").Describe("JSON payload of the emitted event."),
			param.String("on_event", ""),
			param.String("timeout", "10s"),
			param.Bool("insecure_skip_verify", "false"),
		},
		ParamsStruct: Params{},
	})
}
