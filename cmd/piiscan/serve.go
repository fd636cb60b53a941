package piiscan

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/governable/piiscan/internal/server"
)

var (
	flagAddr      string
	flagMaxUpload int64
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan API over HTTP",
		RunE:  runServe,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default :8080)")
	cmd.Flags().Int64Var(&flagMaxUpload, "max-upload-bytes", 0, "reject request bodies larger than this (default 25MiB)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cwd, _ := filepath.Abs(".")
	local, global, err := loadConfigs(cwd)
	if err != nil {
		return err
	}
	st, err := resolve(cmd, local, global)
	if err != nil {
		return err
	}
	log, err := newLogger(st, "info", "json")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	b, err := buildEngine(cmdContext(cmd), st, log)
	if err != nil {
		log.Error("failed to build engine", zap.Error(err))
		return err
	}
	defer b.Close()

	var opts []server.Option
	if b.http != nil {
		opts = append(opts, server.WithHealthChecker(b.http))
	}
	srv := server.New(server.Config{
		Addr:           st.addr,
		MaxUploadBytes: st.maxUploadBytes,
		Entities:       st.entities,
		Language:       st.language,
		MinScore:       st.minScore,
	}, b.engine, log, opts...)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		log.Error("server error", zap.Error(err))
		return err
	case sig := <-shutdown:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.Error("failed to shutdown server gracefully", zap.Error(err))
			return err
		}
	}
	return nil
}
