package server

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/foodgram/internal/common"
	"github.com/joseph-ayodele/foodgram/internal/export"
	"github.com/joseph-ayodele/foodgram/internal/users"
)

const (
	// ShoppingListServiceName is the fully qualified gRPC service name.
	ShoppingListServiceName = "foodgram.v1.ShoppingListService"
	downloadMethod          = "/" + ShoppingListServiceName + "/Download"

	// userIDMetadataKey mirrors UserIDHeader for gRPC callers.
	userIDMetadataKey = "x-user-id"
	// requestIDMetadataKey is honoured when present, otherwise a fresh id is assigned.
	requestIDMetadataKey = "x-request-id"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec lets the hand-written service exchange plain JSON messages.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

type DownloadRequest struct {
	Format string `json:"format"`
	Date   string `json:"date"`
}

type DownloadResponse struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type ShoppingListServer interface {
	Download(ctx context.Context, req *DownloadRequest) (*DownloadResponse, error)
}

// ShoppingListService serves cart downloads over gRPC.
type ShoppingListService struct {
	exports *export.Service
	users   *users.Service
	logger  *zap.Logger
	now     func() time.Time
}

func NewShoppingListService(exports *export.Service, users *users.Service, logger *zap.Logger) *ShoppingListService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShoppingListService{exports: exports, users: users, logger: logger, now: time.Now}
}

// NewGRPCServer builds a gRPC server with health, reflection and the
// shopping list service registered.
func NewGRPCServer(svc ShoppingListServer, logger *zap.Logger) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ShoppingListServiceName, healthpb.HealthCheckResponse_SERVING)

	// Reflection for grpcurl; covers health, ShoppingListService is list-only.
	reflection.Register(grpcServer)

	RegisterShoppingListService(grpcServer, svc)
	return grpcServer, hs
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		ctx = common.WithRequestID(ctx, incomingRequestID(ctx))
		resp, err := handler(ctx, req)
		logger.Debug("grpc request",
			zap.String("request_id", common.RequestIDFromContext(ctx)),
			zap.String("method", info.FullMethod),
			zap.Stringer("code", status.Code(err)),
			zap.Duration("elapsed", time.Since(start)),
		)
		return resp, err
	}
}

func incomingRequestID(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if vals := md.Get(requestIDMetadataKey); len(vals) > 0 && strings.TrimSpace(vals[0]) != "" {
		return strings.TrimSpace(vals[0])
	}
	return uuid.NewString()
}

// RegisterShoppingListService attaches srv to a gRPC server.
func RegisterShoppingListService(s grpc.ServiceRegistrar, srv ShoppingListServer) {
	s.RegisterService(&shoppingListServiceDesc, srv)
}

func (s *ShoppingListService) Download(ctx context.Context, req *DownloadRequest) (*DownloadResponse, error) {
	userID, err := s.callerFromMetadata(ctx)
	if err != nil {
		return nil, common.ToGRPC(err)
	}

	art, err := renderShoppingList(ctx, s.exports, userID, req.Format, req.Date, s.now())
	if err != nil {
		s.logger.Warn("export.failed",
			zap.String("request_id", common.RequestIDFromContext(ctx)),
			zap.Stringer("user_id", userID),
			zap.Error(err))
		return nil, common.ToGRPC(err)
	}
	return &DownloadResponse{Filename: art.Filename, ContentType: art.ContentType, Body: art.Body}, nil
}

func (s *ShoppingListService) callerFromMetadata(ctx context.Context) (uuid.UUID, error) {
	unauthorized := common.NewAppError("UNAUTHORIZED", "authentication credentials were not provided", common.ErrUnauthorized)

	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(userIDMetadataKey)
	if len(vals) == 0 {
		return uuid.Nil, unauthorized
	}
	id, err := uuid.Parse(strings.TrimSpace(vals[0]))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, unauthorized
	}
	exists, err := s.users.Exists(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	if !exists {
		return uuid.Nil, unauthorized
	}
	return id, nil
}

func downloadHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DownloadRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ShoppingListServer).Download(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: downloadMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ShoppingListServer).Download(ctx, req.(*DownloadRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// shoppingListServiceDesc carries no file descriptor: reflection lists the
// service but cannot describe its messages, which are JSON rather than protobuf.
var shoppingListServiceDesc = grpc.ServiceDesc{
	ServiceName: ShoppingListServiceName,
	HandlerType: (*ShoppingListServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Download", Handler: downloadHandler},
	},
	Streams: []grpc.StreamDesc{},
}

// ShoppingListClient calls ShoppingListService using the JSON codec.
type ShoppingListClient struct {
	cc grpc.ClientConnInterface
}

func NewShoppingListClient(cc grpc.ClientConnInterface) *ShoppingListClient {
	return &ShoppingListClient{cc: cc}
}

// Download fetches the cart of the user named in userID.
func (c *ShoppingListClient) Download(ctx context.Context, userID uuid.UUID, req *DownloadRequest, opts ...grpc.CallOption) (*DownloadResponse, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, userIDMetadataKey, userID.String())
	out := new(DownloadResponse)
	opts = append(opts, grpc.CallContentSubtype(jsonCodec{}.Name()))
	if err := c.cc.Invoke(ctx, downloadMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
