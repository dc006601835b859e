// Package service is the client side of srpauth: registration over gRPC and
// login over the WebSocket handshake.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/srpauth/internal/common"
	"github.com/dmitrijs2005/srpauth/internal/rpc"
	"github.com/dmitrijs2005/srpauth/internal/srp"
	"github.com/gorilla/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

// SaltSize is the number of random bytes in a new salt.
const SaltSize = 16

var ErrAlreadyRegistered = errors.New("identity already registered")

type AuthClientService struct {
	registrationAddr string
	handshakeURL     string
	params           *srp.Params
	dialer           *websocket.Dialer
	dialOpts         []grpc.DialOption

	conn        *grpc.ClientConn
	client      rpc.RegistrationClient
	accessToken string
}

// Option configures an AuthClientService.
type Option func(*AuthClientService)

// WithDialOptions adds gRPC dial options, e.g. a bufconn dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(s *AuthClientService) { s.dialOpts = append(s.dialOpts, opts...) }
}

func NewAuthClientService(registrationAddr, handshakeURL string, opts ...Option) *AuthClientService {
	s := &AuthClientService{
		registrationAddr: registrationAddr,
		handshakeURL:     handshakeURL,
		params:           srp.DefaultParams(),
		dialer:           websocket.DefaultDialer,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *AuthClientService) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	if s.accessToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, rpc.AccessTokenHeader, s.accessToken)
	}

	return invoker(ctx, method, req, reply, cc, opts...)
}

func (s *AuthClientService) InitGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, s.dialOpts...)

	conn, err := grpc.NewClient(s.registrationAddr, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewRegistrationClient(conn)
	return nil
}

func (s *AuthClientService) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Register derives a verifier from password with a fresh salt and stores it
// on the server. password is wiped before returning.
func (s *AuthClientService) Register(ctx context.Context, identity string, password []byte) error {
	defer common.WipeByteArray(password)

	salt, err := srp.GenerateSalt(SaltSize)
	if err != nil {
		return err
	}
	v := srp.ComputeVerifier(s.params, salt, string(password))

	_, err = s.client.Register(ctx, rpc.NewRegisterRequest(identity, salt, srp.FormatInt(v)))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

func (s *AuthClientService) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return err
	}
	if resp.GetValue() != "OK" {
		return fmt.Errorf("unexpected ping reply %q", resp.GetValue())
	}
	return nil
}

// WhoAmI asks the server which identity the current access token belongs to.
func (s *AuthClientService) WhoAmI(ctx context.Context) (string, error) {
	if s.accessToken == "" {
		return "", common.ErrorUnauthorized
	}
	resp, err := s.client.WhoAmI(ctx, &emptypb.Empty{})
	if err != nil {
		if status.Code(err) == codes.Unauthenticated {
			return "", fmt.Errorf("%w: %s", common.ErrorUnauthorized, status.Convert(err).Message())
		}
		return "", err
	}
	return resp.GetValue(), nil
}

// AccessToken returns the token granted by the last successful Login.
func (s *AuthClientService) AccessToken() string {
	return s.accessToken
}
