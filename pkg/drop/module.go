package drop

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/dropkit/dropfetch/pkg/logging"
)

// downloaderParams are the dependencies injected into the Downloader.
type downloaderParams struct {
	fx.In

	AnotherLogger logging.Interface `name:"download_logger" optional:"true"`
	Logger        logging.Interface
	Catalog       ItemCatalog
	Store         ContentStore `optional:"true"`
}

// Module provides a Downloader configured from the "download" viper key.
var Module fx.Option = fx.Provide(
	func(v *viper.Viper, params downloaderParams) (*Downloader, error) {
		logger := params.Logger
		if params.AnotherLogger != nil {
			logger = params.AnotherLogger
		}

		config, err := NewConfig(
			WithViper(v),
			WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("error reading download configuration: %w", err)
		}

		return NewDownloader(config, params.Catalog, params.Store)
	},
)
