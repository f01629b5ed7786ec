package socketio_request

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/cookgrid/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

func TestValueConversion(t *testing.T) {
	in := cty.ObjectVal(map[string]cty.Value{
		"name":  cty.StringVal("probe"),
		"count": cty.NumberIntVal(3),
		"tags":  cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.True}),
	})
	data, err := ctyValueToInterface(in)
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"name":  "probe",
		"count": 3.0,
		"tags":  []any{"a", true},
	}, data)

	back, err := interfaceToCtyValue(data)
	require.NoError(t, err)
	require.True(t, back.GetAttr("count").RawEquals(cty.NumberFloatVal(3)))
	require.True(t, back.GetAttr("tags").RawEquals(in.GetAttr("tags")))

	null, err := interfaceToCtyValue(nil)
	require.NoError(t, err)
	require.True(t, null.IsNull())

	_, err = interfaceToCtyValue(struct{}{})
	require.ErrorContains(t, err, "unsupported type")
}

func TestParams_Prepare(t *testing.T) {
	valid := Params{URL: "http://localhost:3000", EmitEvent: "ping", OnEvent: "pong", Timeout: "2s", EmitData: `{"n": 1}`}
	req, err := valid.prepare()
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, req.timeout)
	require.Equal(t, map[string]any{"n": 1.0}, req.data)

	cases := []struct {
		name string
		edit func(p *Params)
		want string
	}{
		{"no url", func(p *Params) { p.URL = "" }, "'url' is empty"},
		{"no reply event", func(p *Params) { p.OnEvent = "" }, "'on_event' are required"},
		{"bad timeout", func(p *Params) { p.Timeout = "soon" }, "failed to parse timeout"},
		{"zero timeout", func(p *Params) { p.Timeout = "0s" }, "timeout must be positive"},
		{"bad payload", func(p *Params) { p.EmitData = "{" }, "not valid JSON"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.edit(&p)
			_, err := p.prepare()
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestCook_RejectsBadParamsBeforeConnecting(t *testing.T) {
	h := testutil.NewHarness(t, &Module{})
	n := h.Create(t, "socketio_request", "ws")
	h.Set(t, n, "url", "http://127.0.0.1:1")
	h.Set(t, n, "emit_event", "ping")
	h.Set(t, n, "on_event", "pong")
	h.Set(t, n, "timeout", "later")

	_, err := n.Compute(h.Ctx)
	require.ErrorContains(t, err, "failed to parse timeout")

	h.Set(t, n, "timeout", "1s")
	h.Set(t, n, "url", "/socket.io")
	_, err = n.Compute(h.Ctx)
	require.ErrorContains(t, err, "needs a scheme and a host")
}
