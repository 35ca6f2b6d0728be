package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"classreviews/internal/board"
)

const (
	ServiceName          = "classreviews.Board"
	listReviewsMethod    = "/" + ServiceName + "/ListReviews"
	toggleReactionMethod = "/" + ServiceName + "/ToggleReaction"
)

type ListRequest struct {
	Category string `json:"category"`
	Sort     string `json:"sort"`
}

type ListResponse struct {
	Total int          `json:"total"`
	Items []board.Card `json:"items"`
}

type ToggleRequest struct {
	ReviewID string `json:"review_id"`
	UserID   string `json:"user_id"`
	Kind     string `json:"kind"`
}

type ToggleResponse struct {
	Outcome string     `json:"outcome"`
	Review  board.Card `json:"review"`
}

// BoardServer is the server API of the classreviews.Board service.
type BoardServer interface {
	ListReviews(context.Context, *ListRequest) (*ListResponse, error)
	ToggleReaction(context.Context, *ToggleRequest) (*ToggleResponse, error)
}

func RegisterBoardServer(s grpc.ServiceRegistrar, srv BoardServer) {
	s.RegisterService(&boardServiceDesc, srv)
}

var boardServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BoardServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListReviews", Handler: listReviewsHandler},
		{MethodName: "ToggleReaction", Handler: toggleReactionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "classreviews/board",
}

func listReviewsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BoardServer).ListReviews(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listReviewsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BoardServer).ListReviews(ctx, req.(*ListRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func toggleReactionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ToggleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BoardServer).ToggleReaction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: toggleReactionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BoardServer).ToggleReaction(ctx, req.(*ToggleRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls classreviews.Board with the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ListReviews(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	out := new(ListResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, listReviewsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ToggleReaction(ctx context.Context, in *ToggleRequest, opts ...grpc.CallOption) (*ToggleResponse, error) {
	out := new(ToggleResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, toggleReactionMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
