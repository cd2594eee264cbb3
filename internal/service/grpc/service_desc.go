package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Имена сервиса и методов на проводе.
const (
	ServiceName         = "orderguard.v1.OrderValidationService"
	MethodValidateOrder = "/" + ServiceName + "/ValidateOrder"
)

// OrderValidationServer: серверная сторона OrderValidationService.
// Запрос и ответ передаются как google.protobuf.Struct.
type OrderValidationServer interface {
	ValidateOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func validateOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderValidationServer).ValidateOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodValidateOrder,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderValidationServer).ValidateOrder(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc описывает OrderValidationService для grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderValidationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ValidateOrder",
			Handler:    validateOrderHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orderguard/v1/order_validation.proto",
}

// RegisterOrderValidationServer регистрирует реализацию на сервере.
func RegisterOrderValidationServer(s grpc.ServiceRegistrar, srv OrderValidationServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client: клиент OrderValidationService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient создаёт клиента поверх готового соединения.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// ValidateOrder вызывает удалённую проверку.
func (c *Client) ValidateOrder(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodValidateOrder, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
