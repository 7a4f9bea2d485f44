// Пакет main, потому что компилируем бинарник.
package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Leegeev/mbus/pkg/api"
	"github.com/Leegeev/mbus/pkg/logger"
	"github.com/Leegeev/mbus/pkg/mbus"
)

// busServer реализует api.BusServer поверх одного движка шины.
type busServer struct {
	bus    *mbus.Engine
	logger *slog.Logger

	mu   sync.Mutex              // защищает pubs
	pubs map[string]*mbus.Handle // издатель на тему, живёт до Exit
}

// NewServer создаёт и настраивает gRPC-сервис.
func NewServer(bus *mbus.Engine, log *slog.Logger) *busServer {
	return &busServer{
		bus:    bus,
		logger: log.With(logger.Component("grpc")),
		pubs:   make(map[string]*mbus.Handle),
	}
}

// publisher возвращает закэшированного издателя темы. Вызывается только из Send.
func (s *busServer) publisher(topic string) (*mbus.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.pubs[topic]; ok {
		return h, nil
	}
	h, err := s.bus.Publish(topic)
	if err != nil {
		return nil, err
	}
	s.pubs[topic] = h
	return h, nil
}

// Send — unary RPC, имя темы приходит в метаданных.
func (s *busServer) Send(ctx context.Context, req *wrapperspb.BytesValue) (*emptypb.Empty, error) {
	topic, ok := api.TopicFromContext(ctx)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "missing %s metadata", api.TopicKey)
	}
	pub, err := s.publisher(topic)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := pub.Send(req.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Debug("sent", logger.Topic(topic), slog.Int("bytes", len(req.GetValue())))
	return &emptypb.Empty{}, nil
}

// Peek — последнее значение темы. Тему не создаёт и издателя не заводит.
func (s *busServer) Peek(_ context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	var out *wrapperspb.BytesValue
	if err := s.bus.Peek(req.GetValue(), func(data []byte) {
		out = wrapperspb.Bytes(append([]byte(nil), data...))
	}); err != nil {
		return nil, toStatus(err)
	}
	return out, nil
}

// Subscribe — server-stream RPC: одна очередь подписчика на поток.
func (s *busServer) Subscribe(req *wrapperspb.StringValue, stream api.Bus_SubscribeServer) error {
	topic := req.GetValue()
	sub, err := s.bus.Subscribe(topic)
	if err != nil {
		return toStatus(err)
	}

	streamID := uuid.NewString()
	log := s.logger.With(logger.Topic(topic), logger.ID("stream_id", streamID))
	defer func() {
		if err := sub.Close(); err != nil && !errors.Is(err, mbus.ErrNotInitialized) {
			log.Warn("close subscription", logger.Error(err))
		}
		log.Info("subscriber disconnected")
	}()

	// id потока уходит клиенту в заголовке, чтобы сопоставлять его с логами сервера
	if err := stream.SendHeader(metadata.Pairs(api.StreamIDKey, streamID)); err != nil {
		return err
	}
	log.Info("subscriber connected")

	ctx := stream.Context()
	for {
		var sendErr error
		err := sub.RecvContext(ctx, func(data []byte) {
			// Send сериализует сообщение сразу, data не переживает вызов
			sendErr = stream.Send(wrapperspb.Bytes(data))
		})
		switch {
		case err == nil:
			if sendErr != nil {
				return sendErr
			}
		case errors.Is(err, mbus.ErrShuttingDown):
			// шина остановлена — закрываем поток штатно
			return nil
		case ctx.Err() != nil:
			return status.FromContextError(ctx.Err()).Err()
		default:
			return toStatus(err)
		}
	}
}

// toStatus переводит ошибку шины в gRPC-статус.
func toStatus(err error) error {
	code := codes.Internal
	switch mbus.StatusOf(err) {
	case mbus.StatusInvalidArgument:
		code = codes.InvalidArgument
	case mbus.StatusNotFound:
		code = codes.NotFound
	case mbus.StatusTimeout:
		code = codes.DeadlineExceeded
	case mbus.StatusNotInitialized, mbus.StatusShuttingDown, mbus.StatusClosed:
		code = codes.Unavailable
	case mbus.StatusResourceExhausted:
		code = codes.ResourceExhausted
	case mbus.StatusAlreadyInitialized:
		code = codes.FailedPrecondition
	case mbus.StatusCanceled:
		code = codes.Canceled
	}
	return status.Error(code, err.Error())
}
