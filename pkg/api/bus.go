// Package api описывает gRPC-сервис mbus.v1.Bus, через который демон
// отдаёт шину другим процессам. Сообщения — стандартные обёртки protobuf,
// поэтому отдельный .proto не нужен.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// TopicKey — ключ метаданных с именем темы для Send. Суффикс -bin
// позволяет передавать имя побайтно, без ограничений ASCII.
const TopicKey = "mbus-topic-bin"

// StreamIDKey — ключ заголовка ответа Subscribe с id потока на сервере.
const StreamIDKey = "mbus-stream-id"

const (
	Bus_Send_FullMethodName      = "/mbus.v1.Bus/Send"
	Bus_Peek_FullMethodName      = "/mbus.v1.Bus/Peek"
	Bus_Subscribe_FullMethodName = "/mbus.v1.Bus/Subscribe"
)

// BusServer — серверная часть сервиса.
type BusServer interface {
	Send(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error)
	Peek(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	Subscribe(*wrapperspb.StringValue, Bus_SubscribeServer) error
}

// Bus_SubscribeServer — серверный поток подписки.
type Bus_SubscribeServer interface {
	Send(*wrapperspb.BytesValue) error
	grpc.ServerStream
}

type busSubscribeServer struct {
	grpc.ServerStream
}

func (x *busSubscribeServer) Send(m *wrapperspb.BytesValue) error {
	return x.ServerStream.SendMsg(m)
}

func RegisterBusServer(s grpc.ServiceRegistrar, srv BusServer) {
	s.RegisterService(&Bus_ServiceDesc, srv)
}

func _Bus_Send_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BusServer).Send(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Bus_Send_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BusServer).Send(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Bus_Peek_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BusServer).Peek(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: Bus_Peek_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BusServer).Peek(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Bus_Subscribe_Handler(srv interface{}, stream grpc.ServerStream) error {
	in := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(BusServer).Subscribe(in, &busSubscribeServer{stream})
}

// Bus_ServiceDesc — описание сервиса для grpc.Server.
var Bus_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "mbus.v1.Bus",
	HandlerType: (*BusServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Send", Handler: _Bus_Send_Handler},
		{MethodName: "Peek", Handler: _Bus_Peek_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: _Bus_Subscribe_Handler, ServerStreams: true},
	},
	Metadata: "mbus/v1/bus",
}

// BusClient — клиентская часть сервиса.
type BusClient interface {
	Send(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Peek(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Subscribe(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (Bus_SubscribeClient, error)
}

type busClient struct {
	cc grpc.ClientConnInterface
}

func NewBusClient(cc grpc.ClientConnInterface) BusClient {
	return &busClient{cc}
}

func (c *busClient) Send(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, Bus_Send_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *busClient) Peek(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, Bus_Peek_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *busClient) Subscribe(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (Bus_SubscribeClient, error) {
	stream, err := c.cc.NewStream(ctx, &Bus_ServiceDesc.Streams[0], Bus_Subscribe_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &busSubscribeClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// Bus_SubscribeClient — клиентский поток подписки.
type Bus_SubscribeClient interface {
	Recv() (*wrapperspb.BytesValue, error)
	grpc.ClientStream
}

type busSubscribeClient struct {
	grpc.ClientStream
}

func (x *busSubscribeClient) Recv() (*wrapperspb.BytesValue, error) {
	m := new(wrapperspb.BytesValue)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// WithTopic кладёт имя темы в исходящие метаданные для Send.
func WithTopic(ctx context.Context, topic string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, TopicKey, topic)
}

// TopicFromContext достаёт имя темы из входящих метаданных.
func TopicFromContext(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	vals := md.Get(TopicKey)
	if len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}
