/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

// Command reindex is an admin tool for the search index: it can rebuild
// the index for a kind from the documents in Cloud Datastore, or purge a
// kind from both the datastore and the index.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	ds "cloud.google.com/go/datastore"
	"github.com/urfave/cli/v2"
	"google.golang.org/api/option"

	gaejs "github.com/VivekRajagopal/gae-js"
	"github.com/VivekRajagopal/gae-js/config"
	"github.com/VivekRajagopal/gae-js/datastore"
	"github.com/VivekRajagopal/gae-js/search"
)

const pageSize = 100

func main() {
	app := &cli.App{
		Name:    "reindex",
		Usage:   "Search index administration for gae-js repositories",
		Version: gaejs.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Set logging level (debug, info, warn, error)",
				Value: "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "reindex",
				Usage:  "Rebuild the search index for a kind from the datastore",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "kind",
						Usage:    "Entity kind to read",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "index",
						Usage: "Search index name (defaults to the kind)",
					},
					&cli.StringFlag{
						Name:     "fields",
						Usage:    "Comma-separated list of properties to index",
						Required: true,
					},
				},
			},
			{
				Name:   "purge",
				Usage:  "Delete every document of a kind and clear its search index",
				Action: purgeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "kind",
						Usage:    "Entity kind to purge",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "index",
						Usage: "Search index name (defaults to the kind)",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return fmt.Errorf("invalid log level %q", c.String("log-level"))
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

func open(c *cli.Context) (*datastore.CloudDriver, search.Service, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	if cfg.Datastore.EmulatorHost != "" {
		// The client library picks the emulator up from the environment.
		os.Setenv(config.EnvEmulatorHost, cfg.Datastore.EmulatorHost)
	}

	var clientOpts []option.ClientOption
	var cloudOpts []datastore.CloudOption
	if cfg.Datastore.Namespace != "" {
		cloudOpts = append(cloudOpts, datastore.WithNamespace(cfg.Datastore.Namespace))
	}
	driver, err := datastore.NewCloudDriver(c.Context, cfg.Datastore.ProjectID, clientOpts, cloudOpts...)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Search.Endpoint == "" {
		driver.Close()
		return nil, nil, fmt.Errorf("search endpoint is required (set %s or search.endpoint)", config.EnvSearchEndpoint)
	}
	var httpOpts []search.HTTPOption
	if cfg.Search.APIKey != "" {
		httpOpts = append(httpOpts, search.WithAPIKey(cfg.Search.APIKey))
	}
	svc, err := search.NewHTTPService(cfg.Search.Endpoint, httpOpts...)
	if err != nil {
		driver.Close()
		return nil, nil, err
	}
	return driver, svc, nil
}

func indexName(c *cli.Context) string {
	if name := c.String("index"); name != "" {
		return name
	}
	return c.String("kind")
}

func reindexCommand(c *cli.Context) error {
	driver, svc, err := open(c)
	if err != nil {
		return err
	}
	defer driver.Close()

	kind := c.String("kind")
	index := indexName(c)
	fields := strings.Split(c.String("fields"), ",")

	total := 0
	cursor := ""
	for {
		q := datastore.NewQuery(kind).WithLimit(pageSize)
		if cursor != "" {
			q = q.Start(cursor)
		}
		records, endCursor, err := driver.RunQuery(c.Context, q)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			break
		}

		entries := make([]search.Entry, len(records))
		for i, rec := range records {
			entries[i] = entry(rec, fields)
		}
		if err := svc.Index(c.Context, index, entries); err != nil {
			return err
		}

		total += len(records)
		slog.Debug("indexed page", "kind", kind, "count", len(records))
		if len(records) < pageSize {
			break
		}
		cursor = endCursor
	}

	slog.Info("reindex complete", "kind", kind, "index", index, "entries", total)
	return nil
}

func entry(rec datastore.Record, fields []string) search.Entry {
	values := make(map[string]any, len(fields))
	for _, name := range fields {
		for _, prop := range rec.Properties {
			if prop.Name == name {
				values[name] = prop.Value
				break
			}
		}
	}
	return search.Entry{ID: rec.Key.Name, Fields: values}
}

func purgeCommand(c *cli.Context) error {
	driver, svc, err := open(c)
	if err != nil {
		return err
	}
	defer driver.Close()

	kind := c.String("kind")
	total := 0
	for {
		q := datastore.NewQuery(kind).Select(datastore.KeyField).WithLimit(pageSize)
		records, _, err := driver.RunQuery(c.Context, q)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			break
		}
		keys := make([]*ds.Key, len(records))
		for i, rec := range records {
			keys[i] = rec.Key
		}
		if err := driver.Delete(c.Context, keys); err != nil {
			return err
		}
		total += len(keys)
		if len(records) < pageSize {
			break
		}
	}

	if err := svc.DeleteAll(c.Context, indexName(c)); err != nil {
		return err
	}
	slog.Info("purge complete", "kind", kind, "deleted", total)
	return nil
}
