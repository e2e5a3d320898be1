package wire

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ChatService_ListConversations_FullMethodName = "/vitalchat.v1.ChatService/ListConversations"
	ChatService_GetHistory_FullMethodName        = "/vitalchat.v1.ChatService/GetHistory"
	ChatService_MarkRead_FullMethodName          = "/vitalchat.v1.ChatService/MarkRead"
	ChatService_SendMessage_FullMethodName       = "/vitalchat.v1.ChatService/SendMessage"
	ChatService_ReloadHistory_FullMethodName     = "/vitalchat.v1.ChatService/ReloadHistory"
	ChatService_CloseConversation_FullMethodName = "/vitalchat.v1.ChatService/CloseConversation"
	ChatService_OpenConversation_FullMethodName  = "/vitalchat.v1.ChatService/OpenConversation"
)

// ChatServiceServer serves the conversation directory and mounted views.
type ChatServiceServer interface {
	ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error)
	GetHistory(context.Context, *GetHistoryRequest) (*GetHistoryResponse, error)
	MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	ReloadHistory(context.Context, *ReloadHistoryRequest) (*ReloadHistoryResponse, error)
	CloseConversation(context.Context, *CloseConversationRequest) (*CloseConversationResponse, error)
	// OpenConversation mounts a view for the lifetime of the stream.
	OpenConversation(*OpenConversationRequest, grpc.ServerStreamingServer[ViewEvent]) error
}

// ChatService_ServiceDesc is the grpc.ServiceDesc for ChatService.
var ChatService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "vitalchat.v1.ChatService",
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListConversations", Handler: unary(ChatService_ListConversations_FullMethodName, ChatServiceServer.ListConversations)},
		{MethodName: "GetHistory", Handler: unary(ChatService_GetHistory_FullMethodName, ChatServiceServer.GetHistory)},
		{MethodName: "MarkRead", Handler: unary(ChatService_MarkRead_FullMethodName, ChatServiceServer.MarkRead)},
		{MethodName: "SendMessage", Handler: unary(ChatService_SendMessage_FullMethodName, ChatServiceServer.SendMessage)},
		{MethodName: "ReloadHistory", Handler: unary(ChatService_ReloadHistory_FullMethodName, ChatServiceServer.ReloadHistory)},
		{MethodName: "CloseConversation", Handler: unary(ChatService_CloseConversation_FullMethodName, ChatServiceServer.CloseConversation)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "OpenConversation",
			Handler:       serverStream(ChatServiceServer.OpenConversation),
			ServerStreams: true,
		},
	},
	Metadata: "vitalchat/v1/chat.proto",
}

// RegisterChatServiceServer registers srv on s.
func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ChatService_ServiceDesc, srv)
}

// ChatServiceClient is the client API for ChatService.
type ChatServiceClient interface {
	ListConversations(ctx context.Context, in *ListConversationsRequest, opts ...grpc.CallOption) (*ListConversationsResponse, error)
	GetHistory(ctx context.Context, in *GetHistoryRequest, opts ...grpc.CallOption) (*GetHistoryResponse, error)
	MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error)
	ReloadHistory(ctx context.Context, in *ReloadHistoryRequest, opts ...grpc.CallOption) (*ReloadHistoryResponse, error)
	CloseConversation(ctx context.Context, in *CloseConversationRequest, opts ...grpc.CallOption) (*CloseConversationResponse, error)
	OpenConversation(ctx context.Context, in *OpenConversationRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ViewEvent], error)
}

type chatServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewChatServiceClient returns a ChatService client on cc.
func NewChatServiceClient(cc grpc.ClientConnInterface) ChatServiceClient {
	return &chatServiceClient{cc}
}

func (c *chatServiceClient) ListConversations(ctx context.Context, in *ListConversationsRequest, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return invoke[ListConversationsResponse](ctx, c.cc, ChatService_ListConversations_FullMethodName, in, opts)
}

func (c *chatServiceClient) GetHistory(ctx context.Context, in *GetHistoryRequest, opts ...grpc.CallOption) (*GetHistoryResponse, error) {
	return invoke[GetHistoryResponse](ctx, c.cc, ChatService_GetHistory_FullMethodName, in, opts)
}

func (c *chatServiceClient) MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	return invoke[MarkReadResponse](ctx, c.cc, ChatService_MarkRead_FullMethodName, in, opts)
}

func (c *chatServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c.cc, ChatService_SendMessage_FullMethodName, in, opts)
}

func (c *chatServiceClient) ReloadHistory(ctx context.Context, in *ReloadHistoryRequest, opts ...grpc.CallOption) (*ReloadHistoryResponse, error) {
	return invoke[ReloadHistoryResponse](ctx, c.cc, ChatService_ReloadHistory_FullMethodName, in, opts)
}

func (c *chatServiceClient) CloseConversation(ctx context.Context, in *CloseConversationRequest, opts ...grpc.CallOption) (*CloseConversationResponse, error) {
	return invoke[CloseConversationResponse](ctx, c.cc, ChatService_CloseConversation_FullMethodName, in, opts)
}

func (c *chatServiceClient) OpenConversation(ctx context.Context, in *OpenConversationRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ViewEvent], error) {
	return openStream[OpenConversationRequest, ViewEvent](ctx, c.cc, &ChatService_ServiceDesc.Streams[0], ChatService_OpenConversation_FullMethodName, in, opts)
}
