package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/srpauth/internal/common"
	"github.com/dmitrijs2005/srpauth/internal/logging"
	"github.com/dmitrijs2005/srpauth/internal/rpc"
	"github.com/dmitrijs2005/srpauth/internal/server/auth"
	"github.com/dmitrijs2005/srpauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/srpauth/internal/server/services"
	"github.com/dmitrijs2005/srpauth/internal/srp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
)

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Nop(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error from Run on bad address, got nil")
	}
}

// startBufconn serves a real service stack over an in-memory listener.
func startBufconn(t *testing.T) (rpc.RegistrationClient, *auth.Issuer) {
	t.Helper()

	issuer := auth.NewIssuer([]byte("secret"), time.Hour)
	us := services.NewUserService(nil, repomanager.NewMemoryRepositoryManager(), srp.DefaultParams())
	srv := NewGRPCServer("bufconn", logging.Nop(), us, issuer)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufconn",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})

	return rpc.NewRegistrationClient(conn), issuer
}

func TestBufconn_RegisterFlow(t *testing.T) {
	client, _ := startBufconn(t)
	ctx := context.Background()

	pong, err := client.Ping(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "OK", pong.GetValue())

	_, err = client.Register(ctx, rpc.NewRegisterRequest("alice", "beef", "abc123"))
	require.NoError(t, err)

	_, err = client.Register(ctx, rpc.NewRegisterRequest("alice", "beef", "abc123"))
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = client.Register(ctx, rpc.NewRegisterRequest("bob", "beef", "not-hex"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestBufconn_WhoAmI(t *testing.T) {
	client, issuer := startBufconn(t)

	_, err := client.WhoAmI(context.Background(), &emptypb.Empty{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	tok, err := issuer.Issue("alice")
	require.NoError(t, err)

	ctx := metadata.AppendToOutgoingContext(context.Background(), rpc.AccessTokenHeader, tok)
	who, err := client.WhoAmI(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "alice", who.GetValue())
}

func TestBufconn_ErrorSentinelsStayServerSide(t *testing.T) {
	client, _ := startBufconn(t)

	_, err := client.Register(context.Background(), rpc.NewRegisterRequest("alice", "beef", "0"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorValidation, "clients see status codes only")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
