package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/wayfarergame/wayfarer/rpc"
)

// Call records one invocation against the fake gateway, with the payload
// round-tripped through JSON for easy assertions.
type Call struct {
	Procedure string
	Payload   map[string]interface{}
}

type scripted struct {
	result json.RawMessage
	err    error
}

// FakeGateway is a scripted rpc.Gateway for tests. Responses are queued
// per procedure; the most recently consumed response stays sticky so a
// procedure can be called repeatedly, while newly queued responses always
// take precedence. Calling an unscripted procedure fails the call, which
// keeps tests honest about which RPCs actually fire.
type FakeGateway struct {
	mu     sync.Mutex
	queues map[string][]scripted
	sticky map[string]scripted
	Calls  []Call
}

// NewFakeGateway creates an empty scripted gateway.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		queues: make(map[string][]scripted),
		sticky: make(map[string]scripted),
	}
}

// Respond queues a successful JSON response for the procedure.
// value is marshalled; pass a raw string via RespondRaw when exact bytes matter.
func (g *FakeGateway) Respond(procedure string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	g.RespondRaw(procedure, data)
}

// RespondRaw queues a successful raw JSON response for the procedure.
func (g *FakeGateway) RespondRaw(procedure string, raw []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queues[procedure] = append(g.queues[procedure], scripted{result: json.RawMessage(raw)})
}

// Fail queues an error response for the procedure.
func (g *FakeGateway) Fail(procedure string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queues[procedure] = append(g.queues[procedure], scripted{err: err})
}

// Call implements rpc.Gateway.
func (g *FakeGateway) Call(_ context.Context, _ *rpc.Session, procedure string, payload interface{}) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var decoded map[string]interface{}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		_ = json.Unmarshal(data, &decoded)
	}
	g.Calls = append(g.Calls, Call{Procedure: procedure, Payload: decoded})

	queue := g.queues[procedure]
	var next scripted
	if len(queue) > 0 {
		next = queue[0]
		g.queues[procedure] = queue[1:]
		g.sticky[procedure] = next
	} else if s, ok := g.sticky[procedure]; ok {
		next = s
	} else {
		return nil, fmt.Errorf("testutil: unscripted procedure %q", procedure)
	}
	if next.err != nil {
		return nil, next.err
	}
	return next.result, nil
}

// CallsTo returns the recorded calls for one procedure, in order.
func (g *FakeGateway) CallsTo(procedure string) []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Call
	for _, c := range g.Calls {
		if c.Procedure == procedure {
			out = append(out, c)
		}
	}
	return out
}
