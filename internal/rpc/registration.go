// Package rpc describes the srpauth.Registration gRPC service declared in
// registration.proto. Messages are protobuf well-known types, so no generated
// code is needed; the descriptor and client stub below follow what
// protoc-gen-go-grpc would emit for that file.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "srpauth.Registration"

const (
	RegisterMethod = "/" + ServiceName + "/Register"
	PingMethod     = "/" + ServiceName + "/Ping"
	WhoAmIMethod   = "/" + ServiceName + "/WhoAmI"
)

// Field names of the Register request struct.
const (
	FieldIdentity = "identity"
	FieldSalt     = "salt"
	FieldVerifier = "verifier"
)

// AccessTokenHeader is the metadata key carrying the token granted by a
// successful handshake.
const AccessTokenHeader = "access_token"

// RegistrationServer is implemented by the server.
type RegistrationServer interface {
	Register(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
	WhoAmI(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// RegisterRegistrationServer attaches srv to s.
func RegisterRegistrationServer(s grpc.ServiceRegistrar, srv RegistrationServer) {
	s.RegisterService(&RegistrationServiceDesc, srv)
}

var RegistrationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RegistrationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Register",
			Handler: unaryHandler(RegisterMethod, func(s RegistrationServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.Register(ctx, in)
			}),
		},
		{
			MethodName: "Ping",
			Handler: unaryHandler(PingMethod, func(s RegistrationServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.Ping(ctx, in)
			}),
		},
		{
			MethodName: "WhoAmI",
			Handler: unaryHandler(WhoAmIMethod, func(s RegistrationServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.WhoAmI(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "registration.proto",
}

func unaryHandler[Req any](fullMethod string, call func(RegistrationServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RegistrationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RegistrationServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegistrationClient is the client API for srpauth.Registration.
type RegistrationClient interface {
	Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	WhoAmI(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type registrationClient struct {
	cc grpc.ClientConnInterface
}

func NewRegistrationClient(cc grpc.ClientConnInterface) RegistrationClient {
	return &registrationClient{cc: cc}
}

func (c *registrationClient) Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, RegisterMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registrationClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, PingMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registrationClient) WhoAmI(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, WhoAmIMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// NewRegisterRequest builds the Register request message.
func NewRegisterRequest(identity, salt, verifierHex string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldIdentity: structpb.NewStringValue(identity),
		FieldSalt:     structpb.NewStringValue(salt),
		FieldVerifier: structpb.NewStringValue(verifierHex),
	}}
}
