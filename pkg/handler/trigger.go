package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/AccelByte/extend-stream-duels/pkg/common"
	"github.com/AccelByte/extend-stream-duels/pkg/trigger"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// TriggerServiceServer receives chat commands and gifts from the stream bridge.
type TriggerServiceServer interface {
	OnMessage(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// RegisterTriggerServiceServer registers srv on s.
func RegisterTriggerServiceServer(s grpc.ServiceRegistrar, srv TriggerServiceServer) {
	s.RegisterService(&TriggerServiceDesc, srv)
}

func triggerServiceOnMessageHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TriggerServiceServer).OnMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/streamduels.TriggerService/OnMessage",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TriggerServiceServer).OnMessage(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// TriggerServiceDesc describes streamduels.TriggerService. Payloads are well-known
// Struct messages so the bridge needs no generated stubs.
var TriggerServiceDesc = grpc.ServiceDesc{
	ServiceName: "streamduels.TriggerService",
	HandlerType: (*TriggerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "OnMessage",
			Handler:    triggerServiceOnMessageHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "streamduels/trigger.proto",
}

// Trigger listens for stream trigger events.
type Trigger struct {
	orchestrator Orchestrator
}

// NewTrigger creates a new trigger listener
func NewTrigger(orchestrator Orchestrator) *Trigger {
	return &Trigger{orchestrator: orchestrator}
}

// OnMessage handles one trigger event.
// Dropped duplicates and queued requests both succeed; the overlay learns the outcome from broadcasts.
func (s *Trigger) OnMessage(ctx context.Context, msg *structpb.Struct) (*emptypb.Empty, error) {
	scope := common.GetScopeFromContext(ctx, "Trigger.OnMessage")
	defer scope.Finish()

	event := eventFromStruct(msg)
	if event.ActorID == "" {
		scope.Log.Warn("received trigger event with empty actorId")
		return &emptypb.Empty{}, status.Error(codes.InvalidArgument, "actorId is required")
	}
	scope.SetAttributes("actor_id", event.ActorID)
	scope.SetAttributes("trigger_label", event.TriggerLabel)

	result, err := s.orchestrator.HandleTrigger(scope.Ctx, event)
	if err != nil {
		scope.TraceError(err)
		_, code := classify(err)
		if code == codes.Internal {
			logrus.Errorf("trigger processing failed for %s: %v", event.ActorID, err)
		}
		return &emptypb.Empty{}, status.Errorf(code, "trigger rejected: %v", err)
	}

	scope.Log.Infof("trigger from %s handled: game=%s dropped=%t queued=%t position=%d",
		event.ActorID, result.GameType, result.Dropped, result.Queued, result.Position)
	return &emptypb.Empty{}, nil
}

// eventFromStruct reads the bridge payload. Gift ids may arrive as numbers.
func eventFromStruct(msg *structpb.Struct) trigger.Event {
	fields := msg.GetFields()
	str := func(key string) string {
		v, ok := fields[key]
		if !ok {
			return ""
		}
		switch kind := v.GetKind().(type) {
		case *structpb.Value_StringValue:
			return strings.TrimSpace(kind.StringValue)
		case *structpb.Value_NumberValue:
			return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
		default:
			return ""
		}
	}

	e := trigger.Event{
		ActorID:          str("actorId"),
		ActorDisplayName: str("actorName"),
		GameType:         str("gameType"),
		TriggerLabel:     str("triggerLabel"),
		GiftID:           str("giftId"),
	}
	if v, ok := fields["isStreakFinal"]; ok {
		if b, isBool := v.GetKind().(*structpb.Value_BoolValue); isBool {
			final := b.BoolValue
			e.IsStreakFinal = &final
		}
	}
	return e
}
