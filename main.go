package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"basic-cleaning/config"
	"basic-cleaning/services"
	"basic-cleaning/storage"
	"basic-cleaning/utils"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var p services.Params

	cmd := &cobra.Command{
		Use:           "basic_cleaning",
		Short:         "A very basic data cleaning",
		Long:          "Download the raw dataset artifact, drop price outliers, convert last_review to a date and publish the result as a new artifact.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), out, p)
		},
	}

	f := cmd.Flags()
	f.StringVar(&p.InputArtifact, "input_artifact", "", "The input artifact")
	f.StringVar(&p.OutputArtifact, "output_artifact", "", "The name of the output artifact")
	f.StringVar(&p.OutputType, "output_type", "", "The type of the output artifact")
	f.StringVar(&p.OutputDescription, "output_description", "", "A description of the output artifact")
	f.Float64Var(&p.MinPrice, "min_price", 0, "The minimum price to consider")
	f.Float64Var(&p.MaxPrice, "max_price", 0, "The maximum price to consider")
	for _, name := range []string{"input_artifact", "output_artifact", "output_type", "output_description", "min_price", "max_price"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func run(ctx context.Context, out io.Writer, p services.Params) error {
	cfg := config.Load()
	logger := utils.NewLoggerTo(out, cfg.Verbose)
	if !cfg.EnvFileLoaded {
		logger.Debug("No .env file found, falling back to system env vars")
	}

	store, err := newArtifactStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	tracker, err := newRunTracker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer tracker.Close()

	step := services.NewStep(store, tracker, logger,
		services.WithStagingFile(cfg.StagingFile),
		services.WithReport(out),
	)
	_, err = step.Run(ctx, p)
	return err
}

func newArtifactStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.ArtifactStore, error) {
	switch cfg.ArtifactStore {
	case config.StoreLocal:
		store, err := storage.NewLocalStore(cfg.ArtifactRoot, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreS3:
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.S3Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.S3Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.S3Endpoint)
				o.UsePathStyle = true
			}
		})
		store, err := storage.NewS3Store(client, storage.S3StoreConfig{Bucket: cfg.S3Bucket, Prefix: cfg.S3Prefix}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown ARTIFACT_STORE %q (want %q or %q)", cfg.ArtifactStore, config.StoreLocal, config.StoreS3)
	}
}

func newRunTracker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.RunTracker, error) {
	if cfg.TrackingDSN == "" {
		return storage.NewLogTracker(logger), nil
	}
	tracker, err := storage.NewPostgresTracker(ctx, cfg.TrackingDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to run tracking database: %w", err)
	}
	return tracker, nil
}
