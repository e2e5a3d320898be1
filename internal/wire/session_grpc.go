package wire

import (
	"context"

	"google.golang.org/grpc"
)

const (
	SessionService_GetSessionStatus_FullMethodName = "/vitalchat.v1.SessionService/GetSessionStatus"
	SessionService_SetCredentials_FullMethodName   = "/vitalchat.v1.SessionService/SetCredentials"
	SessionService_ClearCredentials_FullMethodName = "/vitalchat.v1.SessionService/ClearCredentials"
	SessionService_ListDiagnostics_FullMethodName  = "/vitalchat.v1.SessionService/ListDiagnostics"
	SessionService_ListJournal_FullMethodName      = "/vitalchat.v1.SessionService/ListJournal"
	SessionService_WatchDiagnostics_FullMethodName = "/vitalchat.v1.SessionService/WatchDiagnostics"
)

// SessionServiceServer reports daemon status, manages credentials and exposes
// the diagnostics and send journal.
type SessionServiceServer interface {
	GetSessionStatus(context.Context, *GetSessionStatusRequest) (*GetSessionStatusResponse, error)
	SetCredentials(context.Context, *SetCredentialsRequest) (*SetCredentialsResponse, error)
	ClearCredentials(context.Context, *ClearCredentialsRequest) (*ClearCredentialsResponse, error)
	ListDiagnostics(context.Context, *ListDiagnosticsRequest) (*ListDiagnosticsResponse, error)
	ListJournal(context.Context, *ListJournalRequest) (*ListJournalResponse, error)
	WatchDiagnostics(*WatchDiagnosticsRequest, grpc.ServerStreamingServer[Diagnostic]) error
}

// SessionService_ServiceDesc is the grpc.ServiceDesc for SessionService.
var SessionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "vitalchat.v1.SessionService",
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSessionStatus", Handler: unary(SessionService_GetSessionStatus_FullMethodName, SessionServiceServer.GetSessionStatus)},
		{MethodName: "SetCredentials", Handler: unary(SessionService_SetCredentials_FullMethodName, SessionServiceServer.SetCredentials)},
		{MethodName: "ClearCredentials", Handler: unary(SessionService_ClearCredentials_FullMethodName, SessionServiceServer.ClearCredentials)},
		{MethodName: "ListDiagnostics", Handler: unary(SessionService_ListDiagnostics_FullMethodName, SessionServiceServer.ListDiagnostics)},
		{MethodName: "ListJournal", Handler: unary(SessionService_ListJournal_FullMethodName, SessionServiceServer.ListJournal)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchDiagnostics",
			Handler:       serverStream(SessionServiceServer.WatchDiagnostics),
			ServerStreams: true,
		},
	},
	Metadata: "vitalchat/v1/session.proto",
}

// RegisterSessionServiceServer registers srv on s.
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionService_ServiceDesc, srv)
}

// SessionServiceClient is the client API for SessionService.
type SessionServiceClient interface {
	GetSessionStatus(ctx context.Context, in *GetSessionStatusRequest, opts ...grpc.CallOption) (*GetSessionStatusResponse, error)
	SetCredentials(ctx context.Context, in *SetCredentialsRequest, opts ...grpc.CallOption) (*SetCredentialsResponse, error)
	ClearCredentials(ctx context.Context, in *ClearCredentialsRequest, opts ...grpc.CallOption) (*ClearCredentialsResponse, error)
	ListDiagnostics(ctx context.Context, in *ListDiagnosticsRequest, opts ...grpc.CallOption) (*ListDiagnosticsResponse, error)
	ListJournal(ctx context.Context, in *ListJournalRequest, opts ...grpc.CallOption) (*ListJournalResponse, error)
	WatchDiagnostics(ctx context.Context, in *WatchDiagnosticsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Diagnostic], error)
}

type sessionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionServiceClient returns a SessionService client on cc.
func NewSessionServiceClient(cc grpc.ClientConnInterface) SessionServiceClient {
	return &sessionServiceClient{cc}
}

func (c *sessionServiceClient) GetSessionStatus(ctx context.Context, in *GetSessionStatusRequest, opts ...grpc.CallOption) (*GetSessionStatusResponse, error) {
	return invoke[GetSessionStatusResponse](ctx, c.cc, SessionService_GetSessionStatus_FullMethodName, in, opts)
}

func (c *sessionServiceClient) SetCredentials(ctx context.Context, in *SetCredentialsRequest, opts ...grpc.CallOption) (*SetCredentialsResponse, error) {
	return invoke[SetCredentialsResponse](ctx, c.cc, SessionService_SetCredentials_FullMethodName, in, opts)
}

func (c *sessionServiceClient) ClearCredentials(ctx context.Context, in *ClearCredentialsRequest, opts ...grpc.CallOption) (*ClearCredentialsResponse, error) {
	return invoke[ClearCredentialsResponse](ctx, c.cc, SessionService_ClearCredentials_FullMethodName, in, opts)
}

func (c *sessionServiceClient) ListDiagnostics(ctx context.Context, in *ListDiagnosticsRequest, opts ...grpc.CallOption) (*ListDiagnosticsResponse, error) {
	return invoke[ListDiagnosticsResponse](ctx, c.cc, SessionService_ListDiagnostics_FullMethodName, in, opts)
}

func (c *sessionServiceClient) ListJournal(ctx context.Context, in *ListJournalRequest, opts ...grpc.CallOption) (*ListJournalResponse, error) {
	return invoke[ListJournalResponse](ctx, c.cc, SessionService_ListJournal_FullMethodName, in, opts)
}

func (c *sessionServiceClient) WatchDiagnostics(ctx context.Context, in *WatchDiagnosticsRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Diagnostic], error) {
	return openStream[WatchDiagnosticsRequest, Diagnostic](ctx, c.cc, &SessionService_ServiceDesc.Streams[0], SessionService_WatchDiagnostics_FullMethodName, in, opts)
}
