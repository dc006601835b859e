// Package grpc serves the registration API: storing a client-computed salt
// and verifier, plus a liveness ping and a token check.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/srpauth/internal/logging"
	"github.com/dmitrijs2005/srpauth/internal/rpc"
	"github.com/dmitrijs2005/srpauth/internal/server/models"
	"google.golang.org/grpc"
)

// UserRegistrar persists new identities.
type UserRegistrar interface {
	Register(ctx context.Context, username, salt, verifierHex string) (*models.User, error)
}

// TokenVerifier resolves an access token to an identity.
type TokenVerifier interface {
	Identity(token string) (string, error)
}

type GRPCServer struct {
	address string
	users   UserRegistrar
	tokens  TokenVerifier
	logger  logging.Logger
}

var _ rpc.RegistrationServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, us UserRegistrar, tv TokenVerifier) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		users:   us,
		tokens:  tv,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	<-stopped
	return nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))
	rpc.RegisterRegistrationServer(srv, s)
	return srv
}
