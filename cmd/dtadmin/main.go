// Command dtadmin administers a tracker database directly: setup, status
// checks, and user and API key provisioning.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dalemusser/datatracker/internal/app/admin"
	"github.com/dalemusser/datatracker/internal/app/system/trackerconfig"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type globalFlags struct {
	configFile string
	mongoURI   string
	database   string
	timeout    time.Duration
	verbose    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "dtadmin",
		Short:         "Administer a datatracker database",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "tracker settings file (default: search config.yaml)")
	pf.StringVar(&g.mongoURI, "mongo-uri", envOr("DATATRACKER_MONGO_URI", ""), "MongoDB URI, overrides the settings file")
	pf.StringVar(&g.database, "db", envOr("DATATRACKER_MONGO_DATABASE", ""), "database name, overrides the settings file")
	pf.DurationVar(&g.timeout, "timeout", 2*time.Minute, "overall time limit")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "log progress")

	root.AddCommand(
		newInitDBCommand(g),
		newCheckDBCommand(g),
		newAddUserCommand(g),
		newAPIKeyCommand(g),
		newAuditCommand(g),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// session holds what every subcommand needs.
type session struct {
	admin  *admin.Admin
	client *mongo.Client
	log    *zap.Logger
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
	_ = s.log.Sync()
}

// connect resolves the connection settings (flags over settings file over
// defaults) and opens the database.
func connect(ctx context.Context, g *globalFlags) (*session, error) {
	uri, dbName := "mongodb://localhost:27017", "datatracker"

	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	path, err := trackerconfig.Find(g.configFile, wd)
	switch {
	case errors.Is(err, trackerconfig.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		f, err := trackerconfig.Load(path)
		if err != nil {
			return nil, err
		}
		if u := f.Mongo.URI(); u != "" {
			uri = u
		}
		if f.Mongo.DB != "" {
			dbName = f.Mongo.DB
		}
	}
	if g.mongoURI != "" {
		uri = g.mongoURI
	}
	if g.database != "" {
		dbName = g.database
	}

	logger := zap.NewNop()
	if g.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetAppName("dtadmin"))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	logger.Debug("connected", zap.String("database", dbName))

	return &session{
		admin:  admin.New(client.Database(dbName), logger),
		client: client,
		log:    logger,
	}, nil
}

// run wraps a subcommand body with the timeout and connection handling.
func run(g *globalFlags, fn func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
		defer cancel()

		s, err := connect(ctx, g)
		if err != nil {
			return err
		}
		defer s.close()
		return fn(ctx, cmd, s, args)
	}
}
