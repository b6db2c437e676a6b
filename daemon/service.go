package daemon

import (
	"context"

	"google.golang.org/grpc"
)

// serviceName matches the fully-qualified name a generated
// witflo/daemon/session.proto would have used, kept here so the
// hand-written descriptor below looks the way protoc-gen-go-grpc output
// would, absent a retrieved .proto to regenerate it from.
const serviceName = "witflo.daemon.Session"

// SessionServer is implemented by the session custody handler.
type SessionServer interface {
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	GetSession(context.Context, *GetSessionRequest) (*GetSessionResponse, error)
}

// RegisterSessionServer is the hand-written analogue of a generated
// RegisterSessionServer function.
func RegisterSessionServer(s grpc.ServiceRegistrar, srv SessionServer) {
	s.RegisterService(&sessionServiceDesc, srv)
}

func sessionLoginHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LoginRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(SessionServer).Login(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/Login"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServer).Login(ctx, req.(*LoginRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func sessionLogoutHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LogoutRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(SessionServer).Logout(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/Logout"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServer).Logout(ctx, req.(*LogoutRequest))
	}

	return interceptor(ctx, in, info, handler)
}

func sessionGetSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(SessionServer).GetSession(ctx, in)
	}

	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/GetSession"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServer).GetSession(ctx, req.(*GetSessionRequest))
	}

	return interceptor(ctx, in, info, handler)
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: sessionLoginHandler},
		{MethodName: "Logout", Handler: sessionLogoutHandler},
		{MethodName: "GetSession", Handler: sessionGetSessionHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "witflo/daemon/session.go",
}

// sessionClient is the hand-written analogue of a generated
// sessionClient/NewSessionClient pair.
type sessionClient struct {
	cc grpc.ClientConnInterface
}

// newRawSessionClient wraps cc as a SessionServer-shaped RPC client. Most
// callers want the higher-level [NewSessionClient]/[Client] in client.go
// instead.
func newRawSessionClient(cc grpc.ClientConnInterface) SessionServer {
	return &sessionClient{cc: cc}
}

func (c *sessionClient) Login(ctx context.Context, in *LoginRequest) (*LoginResponse, error) {
	out := new(LoginResponse)
	if err := c.cc.Invoke(ctx, serviceName+"/Login", in, out, grpc.CallContentSubtype(codecSubtype)); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *sessionClient) Logout(ctx context.Context, in *LogoutRequest) (*LogoutResponse, error) {
	out := new(LogoutResponse)
	if err := c.cc.Invoke(ctx, serviceName+"/Logout", in, out, grpc.CallContentSubtype(codecSubtype)); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *sessionClient) GetSession(ctx context.Context, in *GetSessionRequest) (*GetSessionResponse, error) {
	out := new(GetSessionResponse)
	if err := c.cc.Invoke(ctx, serviceName+"/GetSession", in, out, grpc.CallContentSubtype(codecSubtype)); err != nil {
		return nil, err
	}

	return out, nil
}
