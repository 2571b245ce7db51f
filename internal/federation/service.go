package federation

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "sairen.federation.Hub"

// RegisterHubServer wires h into gRPC server s using the package's JSON
// codec, so rigs and the hub exchange plain DualCfcCheckpoint JSON over a
// standard gRPC transport (TLS, deadlines, interceptors) without a
// protobuf-specific schema.
func RegisterHubServer(s *grpc.Server, h *Hub) {
	s.RegisterService(&hubServiceDesc, h)
}

var hubServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Hub)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "UploadCheckpoint", Handler: uploadCheckpointHandler},
		{MethodName: "PullFederatedModel", Handler: pullFederatedModelHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sairen/federation.proto",
}

func uploadCheckpointHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(UploadRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	h := srv.(*Hub)
	if interceptor == nil {
		return hubUpload(ctx, h, req)
	}
	info := &grpc.UnaryServerInfo{Server: h, FullMethod: "/" + serviceName + "/UploadCheckpoint"}
	return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return hubUpload(ctx, h, req.(*UploadRequest))
	})
}

func hubUpload(ctx context.Context, h *Hub, req *UploadRequest) (*UploadResponse, error) {
	accepted, err := h.UploadCheckpoint(ctx, req.Envelope)
	if err != nil {
		return nil, err
	}
	return &UploadResponse{Accepted: accepted}, nil
}

func pullFederatedModelHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(PullRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	h := srv.(*Hub)
	if interceptor == nil {
		return h.PullFederatedModel(ctx, req.LastRound)
	}
	info := &grpc.UnaryServerInfo{Server: h, FullMethod: "/" + serviceName + "/PullFederatedModel"}
	return interceptor(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return h.PullFederatedModel(ctx, req.(*PullRequest).LastRound)
	})
}

// Client is a thin wrapper over a gRPC client connection speaking the Hub
// service with the JSON codec.
type Client struct {
	conn *grpc.ClientConn
}

// NewClient wraps an established connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// UploadCheckpoint uploads a signed envelope to the hub.
func (c *Client) UploadCheckpoint(ctx context.Context, env Envelope) (bool, error) {
	req := &UploadRequest{Envelope: env}
	resp := new(UploadResponse)
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/UploadCheckpoint", req, resp, grpc.CallContentSubtype("json")); err != nil {
		return false, err
	}
	return resp.Accepted, nil
}

// PullFederatedModel requests the latest round newer than lastRound.
func (c *Client) PullFederatedModel(ctx context.Context, lastRound int64) (*PullResponse, error) {
	req := &PullRequest{LastRound: lastRound}
	resp := new(PullResponse)
	if err := c.conn.Invoke(ctx, "/"+serviceName+"/PullFederatedModel", req, resp, grpc.CallContentSubtype("json")); err != nil {
		return nil, err
	}
	return resp, nil
}
