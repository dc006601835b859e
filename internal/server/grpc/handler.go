package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/srpauth/internal/common"
	"github.com/dmitrijs2005/srpauth/internal/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *GRPCServer) Register(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {

	identity, err1 := stringField(req, rpc.FieldIdentity)
	salt, err2 := stringField(req, rpc.FieldSalt)
	verifier, err3 := stringField(req, rpc.FieldVerifier)
	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	result, err := s.users.Register(ctx, identity, salt, verifier)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, status.Error(codes.AlreadyExists, "identity already registered")
		default:
			s.logger.Error(ctx, "registration failed", "identity", identity, "error", err)
			return nil, status.Error(codes.Internal, "internal error")
		}
	}

	s.logger.Info(ctx, "Registered", "identity", identity, "id", result.ID)
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *emptypb.Empty) (*wrapperspb.StringValue, error) {

	return wrapperspb.String("OK"), nil

}

// WhoAmI echoes the identity bound to the caller's access token.
func (s *GRPCServer) WhoAmI(ctx context.Context, req *emptypb.Empty) (*wrapperspb.StringValue, error) {
	identity, ok := identityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return wrapperspb.String(identity), nil
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", errors.New("missing " + name)
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok || sv.StringValue == "" {
		return "", errors.New(name + " must be a non-empty string")
	}
	return sv.StringValue, nil
}
