package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Leegeev/mbus/pkg/api"
	"github.com/Leegeev/mbus/pkg/logger"
)

var (
	addr = flag.String("addr", "localhost:50051", "адрес демона")
	mode = flag.String("mode", "sub", "pub, sub или peek")
	key  = flag.String("key", "default", "имя темы")
	msg  = flag.String("msg", "", "сообщение для pub")
)

func main() {
	flag.Parse()
	log := logger.New("info", "text", os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1) подключаемся к серверу
	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Error("cannot connect to gRPC server", logger.Error(err))
		os.Exit(1)
	}
	defer conn.Close()
	client := api.NewBusClient(conn)

	// 2) решаем, что делаем
	switch *mode {
	case "pub":
		err = runPublish(ctx, client, *key, *msg)
	case "sub":
		err = runSubscribe(ctx, client, *key)
	case "peek":
		err = runPeek(ctx, client, *key)
	default:
		log.Error("неизвестный режим: используйте pub, sub или peek", slog.String("mode", *mode))
		os.Exit(2)
	}
	if err != nil {
		log.Error("request failed", slog.String("mode", *mode), logger.Topic(*key), logger.Error(err))
		os.Exit(1)
	}
	log.Info("Client exiting")
}
