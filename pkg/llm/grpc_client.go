package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered once at package init so every GRPCClient
// shares the same wire codec without needing protoc-generated message
// types: the analysis contract is small and stable enough that a JSON
// payload over a plain grpc.ClientConn.Invoke call is a reasonable
// alternative to a generated .pb.go stub.
const jsonCodecName = "ticketrouter-json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// GRPCClient is the production LLM adapter: a single unary RPC to the
// classification service's Analyze method.
type GRPCClient struct {
	conn   *grpc.ClientConn
	method string
}

// NewGRPCClient dials addr insecurely (the service is expected to sit
// behind a service-mesh sidecar or private network, matching the
// teacher's own client construction).
func NewGRPCClient(addr string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("llm: dial %s: %w", addr, err)
	}
	return &GRPCClient{conn: conn, method: "/ticketrouter.llm.Analyzer/Analyze"}, nil
}

// Close releases the underlying connection.
func (c *GRPCClient) Close() error { return c.conn.Close() }

type wireRequest struct {
	TicketID            string `json:"ticket_id"`
	ScrubbedDescription string `json:"scrubbed_description"`
	Segment             string `json:"segment"`
}

// Analyze issues one synchronous Analyze call and validates the response
// schema before returning it.
func (c *GRPCClient) Analyze(ctx context.Context, req Request) (Response, error) {
	wireReq := wireRequest{
		TicketID:            req.TicketID,
		ScrubbedDescription: req.ScrubbedDescription,
		Segment:             string(req.Segment),
	}

	var resp Response
	err := c.conn.Invoke(ctx, c.method, wireReq, &resp, grpc.CallContentSubtype(jsonCodecName))
	if err != nil {
		return Response{}, fmt.Errorf("llm: analyze rpc: %w", err)
	}

	if err := ValidateResponse(resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
