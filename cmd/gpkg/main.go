// Command gpkg inspects and maintains GeoPackage containers.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/geopackage/core/geopackage"
	"github.com/FocuswithJustin/geopackage/internal/logging"
)

const version = "0.1.0"

// CLI defines the command-line interface for gpkg.
type CLI struct {
	Config    kong.ConfigFlag `help:"JSON configuration file" type:"path"`
	LogLevel  string          `name:"log-level" help:"Log level" default:"warn" enum:"debug,info,warn,error"`
	LogFormat string          `name:"log-format" help:"Log format" default:"text" enum:"text,json"`
	CacheSize int             `name:"cache-size" help:"Feature row cache capacity" default:"1000"`
	Tolerance float64         `help:"Spatial query tolerance" default:"1e-14"`
	ChunkSize int             `name:"chunk-size" help:"Rows per page for full-table scans" default:"1000"`

	Info     InfoCmd     `cmd:"" help:"Show container metadata"`
	Tables   TablesCmd   `cmd:"" help:"List user tables"`
	Count    CountCmd    `cmd:"" help:"Count the rows of a table"`
	Index    IndexGroup  `cmd:"" help:"Spatial index maintenance"`
	Query    QueryGroup  `cmd:"" help:"Spatial queries"`
	Checksum ChecksumCmd `cmd:"" help:"BLAKE3 digest of a table's rows"`
	Dump     DumpCmd     `cmd:"" help:"Export a table as JSON lines"`
	Version  VersionCmd  `cmd:"" help:"Print version information"`
}

// IndexGroup contains spatial index operations.
type IndexGroup struct {
	Create IndexCreateCmd `cmd:"" help:"Build the R-tree index of a feature table"`
	Delete IndexDeleteCmd `cmd:"" help:"Drop the R-tree index of a feature table"`
	Status IndexStatusCmd `cmd:"" help:"Show the R-tree index state of a feature table"`
}

// QueryGroup contains spatial query operations.
type QueryGroup struct {
	BBox QueryBBoxCmd `cmd:"" name:"bbox" help:"Features whose envelopes overlap a bounding box"`
}

// App carries what every command needs.
type App struct {
	Ctx    context.Context
	Out    io.Writer
	Logger *slog.Logger
	Config geopackage.Config
}

func (a *App) open(path string, readOnly bool) (*geopackage.GeoPackage, error) {
	cfg := a.Config
	cfg.ReadOnly = readOnly
	return geopackage.Open(a.Ctx, path, cfg)
}

func newParser(cli *CLI, stdout, stderr io.Writer) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("gpkg"),
		kong.Description("GeoPackage inspection and spatial index maintenance"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Configuration(kong.JSON),
		kong.Writers(stdout, stderr),
	)
}

// run parses args and executes the selected command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var cli CLI
	parser, err := newParser(&cli, stdout, stderr)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cli.LogLevel),
		Format: logging.ParseFormat(cli.LogFormat),
		Output: stderr,
	})
	cfg := geopackage.DefaultConfig()
	cfg.Logger = logger
	cfg.CacheSize = cli.CacheSize
	cfg.Tolerance = cli.Tolerance
	cfg.ChunkSize = cli.ChunkSize

	app := &App{Ctx: logging.WithLogger(ctx, logger), Out: stdout, Logger: logger, Config: cfg}
	return kctx.Run(app)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "gpkg:", err)
		os.Exit(1)
	}
}
