package main

import (
	"io"

	"github.com/rawbytedev/songbird/internal/config"
	"github.com/rawbytedev/songbird/internal/logutil"
	"github.com/rawbytedev/songbird/pkg/blob"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs. Tests swap the filesystem and
// the standard streams.
type app struct {
	fs     afero.Fs
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "songbird",
		Short:         "Blob storage and framed messaging on songbird containers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level, overrides the config file")

	root.AddCommand(blobCommand(a), echoCommand(a))
	return root
}

func (a *app) setup() error {
	a.cfg = config.Default()
	if a.configPath != "" {
		cfg, err := config.Load(a.fs, a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	if a.logger == nil {
		logger, err := logutil.New(a.cfg.Log.Level)
		if err != nil {
			return err
		}
		a.logger = logger
	}
	return nil
}

func (a *app) openStore() (*blob.FSStore, error) {
	root := a.cfg.Storage.Root
	if err := a.fs.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return blob.NewFSStore(afero.NewBasePathFs(a.fs, root),
		blob.WithLogger(a.logger),
		blob.WithCompression(a.cfg.Storage.Compression))
}
