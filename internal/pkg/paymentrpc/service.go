// Package paymentrpc is the wire contract between the order service and the
// payment initiator: a single unary method carried as google.protobuf.Struct.
package paymentrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName          = "payment.v1.PaymentInitiator"
	InitiateFullMethod   = "/payment.v1.PaymentInitiator/Initiate"
	initiateMethodName   = "Initiate"
	serviceMetadataProto = "payment/v1/initiator.proto"
)

// InitiatorServer is implemented by the payment initiator.
type InitiatorServer interface {
	Initiate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes PaymentInitiator for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InitiatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: initiateMethodName, Handler: initiateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: serviceMetadataProto,
}

// RegisterInitiatorServer registers srv on s.
func RegisterInitiatorServer(s grpc.ServiceRegistrar, srv InitiatorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func initiateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InitiatorServer).Initiate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InitiateFullMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InitiatorServer).Initiate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// InitiatorClient calls PaymentInitiator over a client connection.
type InitiatorClient struct {
	cc grpc.ClientConnInterface
}

func NewInitiatorClient(cc grpc.ClientConnInterface) *InitiatorClient {
	return &InitiatorClient{cc: cc}
}

func (c *InitiatorClient) Initiate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, InitiateFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
