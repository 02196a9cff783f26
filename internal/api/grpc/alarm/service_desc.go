package alarm

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "alarmee.v1.AlarmService"

// Full method names, as seen by interceptors.
const (
	FullMethodSchedule        = "/" + ServiceName + "/Schedule"
	FullMethodCancel          = "/" + ServiceName + "/Cancel"
	FullMethodCancelAll       = "/" + ServiceName + "/CancelAll"
	FullMethodList            = "/" + ServiceName + "/List"
	FullMethodReportAction    = "/" + ServiceName + "/ReportAction"
	FullMethodReportPushToken = "/" + ServiceName + "/ReportPushToken"
	FullMethodWatch           = "/" + ServiceName + "/Watch"
)

// AlarmServiceServer is the server API of the alarm service.
type AlarmServiceServer interface {
	Schedule(ctx context.Context, req *ScheduleRequest) (*ScheduleResponse, error)
	Cancel(ctx context.Context, req *CancelRequest) (*CancelResponse, error)
	CancelAll(ctx context.Context, req *CancelAllRequest) (*CancelAllResponse, error)
	List(ctx context.Context, req *ListRequest) (*ListResponse, error)
	ReportAction(ctx context.Context, req *ReportActionRequest) (*ReportActionResponse, error)
	ReportPushToken(ctx context.Context, req *ReportPushTokenRequest) (*ReportPushTokenResponse, error)
	Watch(req *WatchRequest, stream WatchServer) error
}

// WatchServer is the server side of the Watch stream.
type WatchServer interface {
	Send(event *Event) error
	grpc.ServerStream
}

// RegisterAlarmServiceServer registers srv on registrar.
func RegisterAlarmServiceServer(registrar grpc.ServiceRegistrar, srv AlarmServiceServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes the alarm service for grpc.Server.
//
//nolint:gochecknoglobals // Service descriptors are registered by address.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AlarmServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Schedule", Handler: unaryHandler(FullMethodSchedule, AlarmServiceServer.Schedule)},
		{MethodName: "Cancel", Handler: unaryHandler(FullMethodCancel, AlarmServiceServer.Cancel)},
		{MethodName: "CancelAll", Handler: unaryHandler(FullMethodCancelAll, AlarmServiceServer.CancelAll)},
		{MethodName: "List", Handler: unaryHandler(FullMethodList, AlarmServiceServer.List)},
		{MethodName: "ReportAction", Handler: unaryHandler(FullMethodReportAction, AlarmServiceServer.ReportAction)},
		{
			MethodName: "ReportPushToken",
			Handler:    unaryHandler(FullMethodReportPushToken, AlarmServiceServer.ReportPushToken),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "alarmee/v1/alarm.json",
}

// unaryHandler adapts a typed server method to grpc.MethodHandler.
func unaryHandler[Req, Resp any](
	fullMethod string,
	call func(AlarmServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}

		if interceptor == nil {
			return call(srv.(AlarmServiceServer), ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AlarmServiceServer), ctx, req.(*Req))
		}

		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}

	return srv.(AlarmServiceServer).Watch(in, &watchServer{ServerStream: stream})
}

type watchServer struct {
	grpc.ServerStream
}

func (s *watchServer) Send(event *Event) error {
	return s.ServerStream.SendMsg(event)
}

// AlarmServiceClient is the client API of the alarm service.
type AlarmServiceClient interface {
	Schedule(ctx context.Context, in *ScheduleRequest, opts ...grpc.CallOption) (*ScheduleResponse, error)
	Cancel(ctx context.Context, in *CancelRequest, opts ...grpc.CallOption) (*CancelResponse, error)
	CancelAll(ctx context.Context, in *CancelAllRequest, opts ...grpc.CallOption) (*CancelAllResponse, error)
	List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error)
	ReportAction(ctx context.Context, in *ReportActionRequest, opts ...grpc.CallOption) (*ReportActionResponse, error)
	ReportPushToken(
		ctx context.Context,
		in *ReportPushTokenRequest,
		opts ...grpc.CallOption,
	) (*ReportPushTokenResponse, error)
	Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (WatchClient, error)
}

// WatchClient is the client side of the Watch stream.
type WatchClient interface {
	Recv() (*Event, error)
	grpc.ClientStream
}

type alarmServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAlarmServiceClient returns a client that always negotiates the JSON codec.
func NewAlarmServiceClient(cc grpc.ClientConnInterface) AlarmServiceClient {
	return &alarmServiceClient{cc: cc}
}

func invoke[Resp any](
	ctx context.Context,
	cc grpc.ClientConnInterface,
	method string,
	in any,
	opts []grpc.CallOption,
) (*Resp, error) {
	out := new(Resp)

	if err := cc.Invoke(ctx, method, in, out, append([]grpc.CallOption{CallOption()}, opts...)...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alarmServiceClient) Schedule(
	ctx context.Context,
	in *ScheduleRequest,
	opts ...grpc.CallOption,
) (*ScheduleResponse, error) {
	return invoke[ScheduleResponse](ctx, c.cc, FullMethodSchedule, in, opts)
}

func (c *alarmServiceClient) Cancel(
	ctx context.Context,
	in *CancelRequest,
	opts ...grpc.CallOption,
) (*CancelResponse, error) {
	return invoke[CancelResponse](ctx, c.cc, FullMethodCancel, in, opts)
}

func (c *alarmServiceClient) CancelAll(
	ctx context.Context,
	in *CancelAllRequest,
	opts ...grpc.CallOption,
) (*CancelAllResponse, error) {
	return invoke[CancelAllResponse](ctx, c.cc, FullMethodCancelAll, in, opts)
}

func (c *alarmServiceClient) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c.cc, FullMethodList, in, opts)
}

func (c *alarmServiceClient) ReportAction(
	ctx context.Context,
	in *ReportActionRequest,
	opts ...grpc.CallOption,
) (*ReportActionResponse, error) {
	return invoke[ReportActionResponse](ctx, c.cc, FullMethodReportAction, in, opts)
}

func (c *alarmServiceClient) ReportPushToken(
	ctx context.Context,
	in *ReportPushTokenRequest,
	opts ...grpc.CallOption,
) (*ReportPushTokenResponse, error) {
	return invoke[ReportPushTokenResponse](ctx, c.cc, FullMethodReportPushToken, in, opts)
}

func (c *alarmServiceClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (WatchClient, error) {
	stream, err := c.cc.NewStream(
		ctx,
		&ServiceDesc.Streams[0],
		FullMethodWatch,
		append([]grpc.CallOption{CallOption()}, opts...)...,
	)
	if err != nil {
		return nil, err
	}

	client := &watchClient{ClientStream: stream}

	if err = client.SendMsg(in); err != nil {
		return nil, err
	}

	if err = client.CloseSend(); err != nil {
		return nil, err
	}

	return client, nil
}

type watchClient struct {
	grpc.ClientStream
}

func (c *watchClient) Recv() (*Event, error) {
	event := new(Event)
	if err := c.ClientStream.RecvMsg(event); err != nil {
		return nil, err
	}

	return event, nil
}
