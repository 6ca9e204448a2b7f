package jobcontrol

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "orchestrator.v1.JobControl"

const (
	MethodDecide    = "/" + ServiceName + "/Decide"
	MethodSubmit    = "/" + ServiceName + "/Submit"
	MethodList      = "/" + ServiceName + "/List"
	MethodGet       = "/" + ServiceName + "/Get"
	MethodCancel    = "/" + ServiceName + "/Cancel"
	MethodWait      = "/" + ServiceName + "/Wait"
	MethodReport    = "/" + ServiceName + "/Report"
	MethodResources = "/" + ServiceName + "/Resources"
	MethodPrune     = "/" + ServiceName + "/Prune"
	MethodWatch     = "/" + ServiceName + "/Watch"
)

// JobControlServer is the server API for the JobControl service.
type JobControlServer interface {
	Decide(context.Context, *DecideRequest) (*DecideResponse, error)
	Submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	Get(context.Context, *GetRequest) (*JobResponse, error)
	Cancel(context.Context, *CancelRequest) (*CancelResponse, error)
	Wait(context.Context, *WaitRequest) (*JobResponse, error)
	Report(context.Context, *ReportRequest) (*ReportResponse, error)
	Resources(context.Context, *ResourcesRequest) (*ResourcesResponse, error)
	Prune(context.Context, *PruneRequest) (*PruneResponse, error)
	Watch(*WatchRequest, JobControl_WatchServer) error
}

type JobControl_WatchServer interface {
	Send(*EventMessage) error
	grpc.ServerStream
}

type jobControlWatchServer struct {
	grpc.ServerStream
}

func (x *jobControlWatchServer) Send(m *EventMessage) error {
	return x.ServerStream.SendMsg(m)
}

func RegisterJobControlServer(s grpc.ServiceRegistrar, srv JobControlServer) {
	s.RegisterService(&JobControl_ServiceDesc, srv)
}

// unaryHandler adapts one typed server method to the grpc.MethodDesc handler signature.
func unaryHandler[Req, Resp any](fullMethod string, call func(JobControlServer, context.Context, *Req) (*Resp, error)) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(JobControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(JobControlServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(WatchRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(JobControlServer).Watch(m, &jobControlWatchServer{stream})
}

var JobControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*JobControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decide", Handler: unaryHandler(MethodDecide, JobControlServer.Decide)},
		{MethodName: "Submit", Handler: unaryHandler(MethodSubmit, JobControlServer.Submit)},
		{MethodName: "List", Handler: unaryHandler(MethodList, JobControlServer.List)},
		{MethodName: "Get", Handler: unaryHandler(MethodGet, JobControlServer.Get)},
		{MethodName: "Cancel", Handler: unaryHandler(MethodCancel, JobControlServer.Cancel)},
		{MethodName: "Wait", Handler: unaryHandler(MethodWait, JobControlServer.Wait)},
		{MethodName: "Report", Handler: unaryHandler(MethodReport, JobControlServer.Report)},
		{MethodName: "Resources", Handler: unaryHandler(MethodResources, JobControlServer.Resources)},
		{MethodName: "Prune", Handler: unaryHandler(MethodPrune, JobControlServer.Prune)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "jobcontrol/service.go",
}

// JobControlClient is the client API for the JobControl service. Every call
// is sent with the JSON content subtype.
type JobControlClient interface {
	Decide(ctx context.Context, in *DecideRequest, opts ...grpc.CallOption) (*DecideResponse, error)
	Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error)
	List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error)
	Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*JobResponse, error)
	Cancel(ctx context.Context, in *CancelRequest, opts ...grpc.CallOption) (*CancelResponse, error)
	Wait(ctx context.Context, in *WaitRequest, opts ...grpc.CallOption) (*JobResponse, error)
	Report(ctx context.Context, in *ReportRequest, opts ...grpc.CallOption) (*ReportResponse, error)
	Resources(ctx context.Context, in *ResourcesRequest, opts ...grpc.CallOption) (*ResourcesResponse, error)
	Prune(ctx context.Context, in *PruneRequest, opts ...grpc.CallOption) (*PruneResponse, error)
	Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (JobControl_WatchClient, error)
}

type JobControl_WatchClient interface {
	Recv() (*EventMessage, error)
	grpc.ClientStream
}

type jobControlClient struct {
	cc grpc.ClientConnInterface
}

func NewJobControlClient(cc grpc.ClientConnInterface) JobControlClient {
	return &jobControlClient{cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *jobControlClient) Decide(ctx context.Context, in *DecideRequest, opts ...grpc.CallOption) (*DecideResponse, error) {
	return invoke[DecideRequest, DecideResponse](ctx, c.cc, MethodDecide, in, opts)
}

func (c *jobControlClient) Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error) {
	return invoke[SubmitRequest, SubmitResponse](ctx, c.cc, MethodSubmit, in, opts)
}

func (c *jobControlClient) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListRequest, ListResponse](ctx, c.cc, MethodList, in, opts)
}

func (c *jobControlClient) Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*JobResponse, error) {
	return invoke[GetRequest, JobResponse](ctx, c.cc, MethodGet, in, opts)
}

func (c *jobControlClient) Cancel(ctx context.Context, in *CancelRequest, opts ...grpc.CallOption) (*CancelResponse, error) {
	return invoke[CancelRequest, CancelResponse](ctx, c.cc, MethodCancel, in, opts)
}

func (c *jobControlClient) Wait(ctx context.Context, in *WaitRequest, opts ...grpc.CallOption) (*JobResponse, error) {
	return invoke[WaitRequest, JobResponse](ctx, c.cc, MethodWait, in, opts)
}

func (c *jobControlClient) Report(ctx context.Context, in *ReportRequest, opts ...grpc.CallOption) (*ReportResponse, error) {
	return invoke[ReportRequest, ReportResponse](ctx, c.cc, MethodReport, in, opts)
}

func (c *jobControlClient) Resources(ctx context.Context, in *ResourcesRequest, opts ...grpc.CallOption) (*ResourcesResponse, error) {
	return invoke[ResourcesRequest, ResourcesResponse](ctx, c.cc, MethodResources, in, opts)
}

func (c *jobControlClient) Prune(ctx context.Context, in *PruneRequest, opts ...grpc.CallOption) (*PruneResponse, error) {
	return invoke[PruneRequest, PruneResponse](ctx, c.cc, MethodPrune, in, opts)
}

func (c *jobControlClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (JobControl_WatchClient, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &JobControl_ServiceDesc.Streams[0], MethodWatch, opts...)
	if err != nil {
		return nil, err
	}
	x := &jobControlWatchClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type jobControlWatchClient struct {
	grpc.ClientStream
}

func (x *jobControlWatchClient) Recv() (*EventMessage, error) {
	m := new(EventMessage)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
