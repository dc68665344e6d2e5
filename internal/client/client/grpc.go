package client

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/carpool/internal/client/auth"
	"github.com/dmitrijs2005/carpool/internal/client/classify"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// AuthorizationMetadataKey carries the bearer token on gRPC calls.
const AuthorizationMetadataKey = "authorization"

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(AuthorizationMetadataKey)
	if token != "" {
		md.Set(AuthorizationMetadataKey, "Bearer "+token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

// UnaryAuthInterceptor attaches the session token to every unary call. An
// Unauthenticated reply triggers one refresh through coord and one retry.
// Failures are returned as apperr.AppError values.
func UnaryAuthInterceptor(coord *auth.Coordinator) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		token, err := coord.Authorize(ctx)
		if err != nil {
			return classify.FromGRPC(err, method)
		}

		err = invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
		if err == nil {
			return nil
		}
		if status.Code(err) != codes.Unauthenticated {
			return classify.FromGRPC(err, method)
		}

		token, rerr := coord.Refresh(ctx, token)
		if rerr != nil {
			if errors.Is(rerr, auth.ErrNoRefreshToken) {
				return classify.FromGRPC(err, method)
			}
			return classify.FromGRPC(rerr, method)
		}

		// tokens refreshed, one more try with the new access token
		if err := invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...); err != nil {
			return classify.FromGRPC(err, method)
		}
		return nil
	}
}

// NewGRPCConn opens a plaintext connection to target with the auth
// interceptor installed. Extra dial options are appended.
func NewGRPCConn(target string, coord *auth.Coordinator, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(UnaryAuthInterceptor(coord)),
	}, extra...)
	return grpc.NewClient(target, opts...)
}

// Health asks the backend behind a gRPC channel for its serving status with
// the standard health protocol. The call goes through the channel's
// interceptors, so it carries the session token.
type Health struct {
	client  healthpb.HealthClient
	service string
}

// NewHealth checks service on conn. An empty service means the server as a
// whole.
func NewHealth(conn grpc.ClientConnInterface, service string) *Health {
	return &Health{client: healthpb.NewHealthClient(conn), service: service}
}

// Check returns the serving status, e.g. "SERVING" or "NOT_SERVING".
func (h *Health) Check(ctx context.Context) (string, error) {
	resp, err := h.client.Check(ctx, &healthpb.HealthCheckRequest{Service: h.service})
	if err != nil {
		return "", classify.FromGRPC(err, healthpb.Health_Check_FullMethodName)
	}
	return resp.GetStatus().String(), nil
}
