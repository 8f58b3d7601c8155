package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const serviceName = "viewings.v1.AppointmentRequests"

// AppointmentRequestsHandler is the server side of viewings.v1.AppointmentRequests.
type AppointmentRequestsHandler interface {
	CreateAppointment(context.Context, *CreateAppointmentRequest) (*CreateAppointmentResponse, error)
	GetAppointment(context.Context, *GetAppointmentRequest) (*GetAppointmentResponse, error)
	ListOutbox(context.Context, *ListAppointmentsRequest) (*ListAppointmentsResponse, error)
	ListInbox(context.Context, *ListAppointmentsRequest) (*ListAppointmentsResponse, error)
	AcceptAppointment(context.Context, *SetStatusRequest) (*SetStatusResponse, error)
	RejectAppointment(context.Context, *SetStatusRequest) (*SetStatusResponse, error)
}

func RegisterAppointmentRequestsServer(s grpc.ServiceRegistrar, srv AppointmentRequestsHandler) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*AppointmentRequestsHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateAppointment", Handler: unaryHandler("CreateAppointment", AppointmentRequestsHandler.CreateAppointment)},
		{MethodName: "GetAppointment", Handler: unaryHandler("GetAppointment", AppointmentRequestsHandler.GetAppointment)},
		{MethodName: "ListOutbox", Handler: unaryHandler("ListOutbox", AppointmentRequestsHandler.ListOutbox)},
		{MethodName: "ListInbox", Handler: unaryHandler("ListInbox", AppointmentRequestsHandler.ListInbox)},
		{MethodName: "AcceptAppointment", Handler: unaryHandler("AcceptAppointment", AppointmentRequestsHandler.AcceptAppointment)},
		{MethodName: "RejectAppointment", Handler: unaryHandler("RejectAppointment", AppointmentRequestsHandler.RejectAppointment)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "viewings/v1/appointment_requests.json",
}

// unaryHandler adapts a typed method to grpc.MethodDesc the same way generated stubs do.
func unaryHandler[Req, Resp any](method string, call func(AppointmentRequestsHandler, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		h := srv.(AppointmentRequestsHandler)
		if interceptor == nil {
			return call(h, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(h, ctx, req.(*Req))
		})
	}
}
