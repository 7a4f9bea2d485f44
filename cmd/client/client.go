package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/Leegeev/mbus/pkg/api"
)

// runPublish публикует одно сообщение и возвращается.
func runPublish(ctx context.Context, client api.BusClient, key, msg string) error {
	if _, err := client.Send(api.WithTopic(ctx, key), wrapperspb.Bytes([]byte(msg))); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	fmt.Printf("-> published %q to %q\n", msg, key)
	return nil
}

// runSubscribe подписывается и читает поток до отмены ctx или закрытия сервером.
func runSubscribe(ctx context.Context, client api.BusClient, key string) error {
	stream, err := client.Subscribe(ctx, wrapperspb.String(key))
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if md, err := stream.Header(); err == nil {
		if ids := md.Get(api.StreamIDKey); len(ids) > 0 {
			fmt.Printf("subscribed to %q, stream %s\n", key, ids[0])
		}
	}
	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			fmt.Println("stream closed by server")
			return nil
		}
		if status.Code(err) == codes.Canceled && ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("recv: %w", err)
		}
		fmt.Printf("<- event on %q: %q\n", key, evt.GetValue())
	}
}

// runPeek печатает последнее значение темы.
func runPeek(ctx context.Context, client api.BusClient, key string) error {
	v, err := client.Peek(ctx, wrapperspb.String(key))
	if status.Code(err) == codes.NotFound {
		fmt.Printf("%q has no value yet\n", key)
		return nil
	}
	if err != nil {
		return fmt.Errorf("peek: %w", err)
	}
	fmt.Printf("== last on %q: %q\n", key, v.GetValue())
	return nil
}
