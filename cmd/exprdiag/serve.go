package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/danielpatrickdp/exprdiag/internal/rpc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

// #region serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve diagnostics over gRPC",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, err := service()
	if err != nil {
		return err
	}
	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.GRPCAddr
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	srv := rpc.NewGRPCServer(svc, logger.Named("rpc"))
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Info("shutting down")
		srv.GracefulStop()
	}()

	logger.Info("grpc listening", zap.String("addr", lis.Addr().String()), zap.String("service", rpc.ServiceName))
	return srv.Serve(lis)
}

// #endregion serve
