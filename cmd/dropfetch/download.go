package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dropkit/dropfetch/pkg/drop"
	"github.com/dropkit/dropfetch/pkg/httpcatalog"
	"github.com/dropkit/dropfetch/pkg/logging"
)

var (
	configFilePath string
	debug          bool
)

func newDownloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download [reference...]",
		Short: "Download one or more artifact drops",
		Long:  "Downloads the artifacts named by the given #/<containerId>/<rootName> references, or by the artifact_references config key when no arguments are supplied.",
		Run: func(cmd *cobra.Command, args []string) {
			runDownload(cmd, args)
		},
	}

	cmd.Flags().StringVarP(&configFilePath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")

	return cmd
}

func runDownload(cmd *cobra.Command, args []string) {
	options := []fx.Option{
		configProvider(cmd),
		logging.Module,
		fx.Provide(newCatalog),
		drop.Module,
	}

	options = append(options, fx.Invoke(func(lc fx.Lifecycle, l *zap.Logger, sh fx.Shutdowner, downloader *drop.Downloader, v *viper.Viper) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					if err := downloadArtifacts(downloader, v, args); err != nil {
						l.Error("artifact download failed", zap.Error(err))
						os.Exit(1)
					}
					if err := sh.Shutdown(); err != nil {
						l.Error("failed to shut down", zap.Error(err))
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return nil
			},
		})
	}))

	app := fx.New(fx.Options(options...))
	app.Run()
	_ = app.Stop(context.Background())
}

func downloadArtifacts(downloader *drop.Downloader, v *viper.Viper, args []string) error {
	rawRefs := args
	if len(rawRefs) == 0 {
		rawRefs = v.GetStringSlice("artifact_references")
	}

	refs := make([]drop.ContainerReference, 0, len(rawRefs))
	for _, raw := range rawRefs {
		ref, err := drop.ParseContainerReference(raw)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err := downloader.DownloadAll(ctx, refs)
	return err
}

func newCatalog(v *viper.Viper, logger logging.Interface) (drop.ItemCatalog, error) {
	return httpcatalog.New(httpcatalog.Options{
		BaseURL: v.GetString("catalog_endpoint"),
		Token:   v.GetString("catalog_token"),
	}, logger)
}
