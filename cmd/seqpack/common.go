package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/seqpack"
	"github.com/hupe1980/seqpack/blobstore"
	minioblob "github.com/hupe1980/seqpack/blobstore/minio"
	s3blob "github.com/hupe1980/seqpack/blobstore/s3"
	"github.com/hupe1980/seqpack/checkpoint"
	"github.com/hupe1980/seqpack/codec"
	"github.com/hupe1980/seqpack/collective"
	"github.com/hupe1980/seqpack/collective/dynamo"
	"github.com/hupe1980/seqpack/internal/config"
)

// flagBindings maps config keys to persistent flag names.
var flagBindings = map[string]string{
	"packer.capacity":   "capacity",
	"packer.targetBins": "target-bins",
	"log.level":         "log-level",
	"log.format":        "log-format",
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path, func(v *viper.Viper) error {
		for key, name := range flagBindings {
			if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func newLogger(cfg *config.Config) (*seqpack.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	if cfg.Log.Format == "json" {
		return seqpack.NewJSONLogger(level), nil
	}
	return seqpack.NewTextLogger(level), nil
}

func packerOptions(cfg *config.Config, logger *seqpack.Logger, mc seqpack.MetricsCollector) ([]seqpack.Option, error) {
	side, err := seqpack.ParsePaddingSide(cfg.Packer.PaddingSide)
	if err != nil {
		return nil, err
	}
	return []seqpack.Option{
		seqpack.WithPadValue(cfg.Packer.PadValue),
		seqpack.WithPaddingSide(side),
		seqpack.WithMaxLeftoverBins(cfg.Packer.MaxLeftoverBins),
		seqpack.WithLogger(logger),
		seqpack.WithMetricsCollector(mc),
	}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (blobstore.Store, error) {
	switch cfg.Type {
	case "memory":
		return blobstore.NewMemoryStore(), nil
	case "local":
		return blobstore.NewLocalStore(cfg.Path), nil
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = &cfg.Endpoint
				o.UsePathStyle = true
			}
		})
		return s3blob.NewStore(client, cfg.Bucket, cfg.Prefix), nil
	case "minio":
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create MinIO client: %w", err)
		}
		return minioblob.NewStore(client, cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

// newGatherer returns nil when no collective backend is configured.
func newGatherer(ctx context.Context, cfg *config.Config, store blobstore.Store, logger *slog.Logger) (collective.Gatherer, error) {
	c := cfg.Collective
	switch c.Backend {
	case "none":
		return nil, nil
	case "store":
		return collective.NewStoreGatherer(store, c.Run, c.Rank, c.World,
			collective.WithPollInterval(c.PollInterval),
			collective.WithLogger(logger),
		)
	case "dynamo":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return dynamo.NewGatherer(dynamodb.NewFromConfig(awsCfg), c.Table, c.Run, c.Rank, c.World,
			dynamo.WithPollInterval(c.PollInterval),
			dynamo.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unknown collective backend %q", c.Backend)
	}
}

func newCheckpointStore(store blobstore.Store, cfg config.CheckpointConfig) (*checkpoint.Store, error) {
	c, ok := codec.ByName(cfg.Codec)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q, want one of %s", cfg.Codec, strings.Join(codec.Names(), ", "))
	}
	compression, err := checkpoint.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return checkpoint.NewStore(store,
		checkpoint.WithPrefix(cfg.Prefix),
		checkpoint.WithCodec(c),
		checkpoint.WithCompression(compression),
	), nil
}

// readCorpus reads a JSON Lines file of samples. "-" reads stdin.
func readCorpus(path string) ([]seqpack.Sample, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // G304: corpus path is user input
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var corpus []seqpack.Sample
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(strings.TrimSpace(string(data))) == 0 {
			continue
		}
		var s seqpack.Sample
		if err := codec.Default.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		corpus = append(corpus, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return corpus, nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}
