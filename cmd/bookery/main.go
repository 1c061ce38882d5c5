package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"

	"github.com/bookerybooks/bookery/pkg/catalog"
	"github.com/bookerybooks/bookery/pkg/config"
	"github.com/bookerybooks/bookery/pkg/database"
	"github.com/bookerybooks/bookery/pkg/httpclient"
	"github.com/bookerybooks/bookery/pkg/migrations"
	"github.com/bookerybooks/bookery/pkg/openlibrary"
	"github.com/bookerybooks/bookery/pkg/version"
)

func main() {
	log := logger.New()

	app := &cli.App{
		Name:    "bookery",
		Usage:   "CLI-first ebook library manager",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to an alternate config file",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "path to the library database (overrides database.path)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			matchCommand(),
			importCommand(),
			inspectCommand(),
			lookupCommand(),
			searchCommand(),
			lsCommand(),
			infoCommand(),
			tagCommand(),
			verifyCommand(),
			inventoryCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}

// loadConfig reads the configuration and applies the global command line
// overrides on top of it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.New(config.Options{Path: c.String("config")})
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.Database.Path = db
	}
	if c.Bool("verbose") {
		cfg.Database.Debug = true
	}
	return cfg, nil
}

// runContext returns the command context with a logger attached.
func runContext(c *cli.Context) context.Context {
	log := logger.New()
	if c.Bool("verbose") {
		log = logger.NewWithLevel("debug")
	}
	return log.WithContext(c.Context)
}

// openCatalog opens the library database and brings the schema up to
// date. The database file is created on first use.
func openCatalog(ctx context.Context, cfg *config.Config) (*catalog.Service, *bun.DB, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	if _, err := migrations.BringUpToDate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return catalog.NewService(db), db, nil
}

// newProvider builds the Open Library provider from the configuration.
func newProvider(cfg *config.Config) *openlibrary.Provider {
	client := httpclient.New(httpclient.Options{
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Burst:             cfg.HTTP.Burst,
		MaxRetries:        cfg.HTTP.MaxRetries,
		RetryDelay:        cfg.HTTP.RetryDelay,
		Timeout:           cfg.HTTP.Timeout,
	})
	return openlibrary.NewWithOptions(client, openlibrary.Options{
		BaseURL:     cfg.Provider.BaseURL,
		SearchLimit: cfg.Provider.SearchLimit,
		EnrichLimit: cfg.Provider.EnrichLimit,
	})
}

// orElse returns value, or alt when value is empty.
func orElse(value, alt string) string {
	if value == "" {
		return alt
	}
	return value
}

// seriesDisplay renders a series column as "Name #1.5", dropping the
// index when it is unknown.
func seriesDisplay(series string, index *float64) string {
	if series == "" {
		return ""
	}
	if index == nil {
		return series
	}
	return fmt.Sprintf("%s #%g", series, *index)
}

// errorLabel pluralizes an error counter for summary lines.
func errorLabel(n int) string {
	if n == 1 {
		return "error"
	}
	return "errors"
}

// identifierList renders an identifier map as "scheme=value" pairs in
// scheme order.
func identifierList(ids map[string]string) string {
	schemes := make([]string, 0, len(ids))
	for scheme := range ids {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)

	pairs := make([]string, 0, len(schemes))
	for _, scheme := range schemes {
		pairs = append(pairs, scheme+"="+ids[scheme])
	}
	return strings.Join(pairs, ", ")
}
