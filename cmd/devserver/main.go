package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/fiverow/lobby-client/internal/config"
	"github.com/fiverow/lobby-client/internal/devserver"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	state := devserver.NewState(context.Background(), logger)
	srv := devserver.NewServer(state, devserver.NewAuthenticator(cfg.JWTSecret), logger)

	logger.Info("dev lobby server listening", zap.String("addr", cfg.DevAddr))
	if err := http.ListenAndServe(cfg.DevAddr, srv.Routes()); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
