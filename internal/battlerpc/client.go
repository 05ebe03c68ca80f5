package battlerpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/warsim/internal/simulation"
)

// Client calls BattleService over a client connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a Client over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Run resolves ref remotely. withEvents requests the full event list.
func (c *Client) Run(ctx context.Context, ref string, withEvents bool, opts ...grpc.CallOption) (*simulation.Report, error) {
	in, err := structpb.NewStruct(map[string]any{FieldScenario: ref, FieldEvents: withEvents})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodRun, in, out, opts...); err != nil {
		return nil, err
	}
	return ReportFromStruct(out)
}

// Get loads a stored report remotely.
func (c *Client) Get(ctx context.Context, id uuid.UUID, opts ...grpc.CallOption) (*simulation.Report, error) {
	in, err := structpb.NewStruct(map[string]any{FieldID: id.String()})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGet, in, out, opts...); err != nil {
		return nil, err
	}
	return ReportFromStruct(out)
}
