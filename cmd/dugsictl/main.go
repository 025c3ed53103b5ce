package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dugsihub/dugsihub/backend/go-services/internal/config"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/database"
	"github.com/dugsihub/dugsihub/backend/go-services/internal/users"
	"github.com/dugsihub/dugsihub/backend/go-services/pkg/logger"
)

// env holds the collaborators commands need; tests swap them out.
type env struct {
	loadConfig func() (*config.Config, error)
	openUsers  func(ctx context.Context, cfg *config.Config) (users.UserRepository, func(), error)
	out        io.Writer
}

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := &env{loadConfig: config.LoadConfig, openUsers: openMongoUsers, out: os.Stdout}
	if err := newRootCmd(e).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dugsictl",
		Short:         "Administrative tasks for the Dugsi Hub papers service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(e.out)
	cmd.AddCommand(newSuperadminCmd(e), newTokenCmd(e))
	return cmd
}

func openMongoUsers(ctx context.Context, cfg *config.Config) (users.UserRepository, func(), error) {
	if cfg.MongoDB.URI == "" {
		return nil, nil, fmt.Errorf("MONGODB_URI is required")
	}
	pool := database.NewPool(cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Timeout, 1)
	col, err := pool.Collection(ctx, "users")
	if err != nil {
		return nil, nil, err
	}
	repo := users.NewMongoUserRepository(col)
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = pool.Close(context.Background())
		return nil, nil, err
	}
	return repo, func() { _ = pool.Close(context.Background()) }, nil
}
