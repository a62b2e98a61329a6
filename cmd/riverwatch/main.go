package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/riverwatch/internal/api"
	"github.com/lox/riverwatch/internal/config"
	"github.com/lox/riverwatch/internal/geocode"
	"github.com/lox/riverwatch/internal/ingest"
	"github.com/lox/riverwatch/internal/models"
	"github.com/lox/riverwatch/internal/monitor"
	"github.com/lox/riverwatch/internal/report"
	"github.com/lox/riverwatch/internal/store"
	"github.com/lox/riverwatch/internal/wizard"
)

type Globals struct {
	ConfigDir string `help:"Directory holding config files." default:"." env:"RIVERWATCH_CONFIG_DIR"`
	Config    string `short:"c" help:"Named configuration to use." default:"config" env:"RIVERWATCH_CONFIG"`
	DB        string `help:"Path to the SQLite history cache." default:"data/riverwatch.db" env:"RIVERWATCH_DB"`
}

type CLI struct {
	Globals

	Monitor MonitorCmd `cmd:"" default:"1" help:"Run one monitoring pass and print the conditions report."`
	Serve   ServeCmd   `cmd:"" help:"Monitor continuously and serve results over HTTP."`
	Setup   SetupCmd   `cmd:"" help:"Interactive setup: find and select gauges to monitor."`
	Sites   SitesCmd   `cmd:"" help:"List active stream gauges near a location."`
	Configs ConfigsCmd `cmd:"" help:"List available configuration files."`
}

func main() {
	runCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("riverwatch"),
		kong.Description("River level extreme conditions monitor using USGS gauge data."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
		kong.UsageOnError(),
		kong.BindTo(runCtx, (*context.Context)(nil)),
	)

	if err := ctx.Run(&cli.Globals); err != nil {
		log.Fatalf("riverwatch: %v", err)
	}
}

func (g *Globals) configPath() string {
	return config.Path(g.ConfigDir, g.Config)
}

// loadConfig reads the named config, pointing the user at setup when
// it does not exist yet.
func (g *Globals) loadConfig() (*config.Config, error) {
	path := g.configPath()
	cfg, err := config.Load(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration %s not found, run: riverwatch setup", path)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (g *Globals) openStore() (*store.Store, func(), error) {
	if dir := filepath.Dir(g.DB); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}

	db, err := sql.Open("sqlite", g.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	return st, func() { db.Close() }, nil
}

// buildEvaluator wires the NWIS client, cache and thresholds from a
// loaded config. When the config has a location but no site roster it
// discovers nearby gauges and monitors the closest few, matching the
// original setup-free flow.
func buildEvaluator(ctx context.Context, cfg *config.Config, st *store.Store) (*monitor.Evaluator, error) {
	if err := cfg.Thresholds.Validate(); err != nil {
		log.Printf("warning: thresholds are misconfigured (%v); classification precedence still applies", err)
	}

	nwis := ingest.NewNWIS(cfg.ParameterCode)

	sites := cfg.Sites
	if len(sites) == 0 && cfg.Location.Set() {
		log.Println("no sites configured, finding nearby gauges")
		found, err := nwis.FindSites(ctx, *cfg.Location.Latitude, *cfg.Location.Longitude, cfg.SearchRadiusMiles)
		if err != nil {
			return nil, fmt.Errorf("find nearby sites: %w", err)
		}
		for i, site := range found {
			if i >= 5 {
				break
			}
			sites = append(sites, site.SiteNo)
			if err := st.UpsertSite(site); err != nil {
				return nil, fmt.Errorf("upsert site %s: %w", site.SiteNo, err)
			}
		}
		log.Printf("monitoring top %d of %d nearby gauges", len(sites), len(found))
	}

	if len(sites) == 0 {
		return nil, fmt.Errorf("no monitoring sites configured, run: riverwatch setup")
	}

	return monitor.New(nwis, st, sites, cfg.Thresholds, cfg.HistoricalStartYear), nil
}

type MonitorCmd struct{}

func (m *MonitorCmd) Run(g *Globals, ctx context.Context) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	st, closeStore, err := g.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	evaluator, err := buildEvaluator(ctx, cfg, st)
	if err != nil {
		return err
	}

	results := evaluator.CheckAll(ctx)
	if len(results) == 0 {
		fmt.Println("No data available for configured sites")
		return nil
	}

	report.Print(os.Stdout, results, report.Unit(cfg.ParameterCode), time.Now())
	return nil
}

type ServeCmd struct {
	Port     string        `help:"HTTP server port." default:"8080" env:"RIVERWATCH_PORT"`
	Interval time.Duration `help:"Time between monitoring passes." default:"1h" env:"RIVERWATCH_INTERVAL"`
}

func (s *ServeCmd) Run(g *Globals, ctx context.Context) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	st, closeStore, err := g.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	evaluator, err := buildEvaluator(ctx, cfg, st)
	if err != nil {
		return err
	}

	server := api.NewServer(st, s.Port)
	scheduler := monitor.NewScheduler(evaluator, s.Interval, server.SetConditions)
	go scheduler.Run(ctx)

	log.Printf("starting server on :%s", s.Port)
	return server.Run(ctx)
}

type SetupCmd struct{}

func (s *SetupCmd) Run(g *Globals, ctx context.Context) error {
	path := g.configPath()
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Configuration %s already exists and will be overwritten if you complete setup.\n", path)
	}

	cfg := config.Default()
	nwis := ingest.NewNWIS(cfg.ParameterCode)
	w := wizard.New(os.Stdin, os.Stdout, geocode.NewClient(), nwis, report.Unit(cfg.ParameterCode))

	done, err := w.Run(ctx, path)
	if err != nil {
		return err
	}
	if !done {
		fmt.Println("\nSetup incomplete. Edit the config or run setup again.")
		return nil
	}

	fmt.Println("\nSetup complete! Run: riverwatch monitor")
	if g.Config != "config" {
		fmt.Printf("(or with this config: riverwatch monitor -c %s)\n", g.Config)
	}
	return nil
}

type SitesCmd struct {
	Address string  `help:"Address or place to search near (geocoded via Nominatim)."`
	Lat     float64 `help:"Latitude to search near."`
	Lon     float64 `help:"Longitude to search near."`
	Radius  float64 `help:"Search radius in miles." default:"25"`
}

func (s *SitesCmd) Run(g *Globals, ctx context.Context) error {
	lat, lon := s.Lat, s.Lon

	if s.Address != "" {
		result, found, err := geocode.NewClient().Forward(ctx, s.Address)
		if err != nil {
			return fmt.Errorf("geocode: %w", err)
		}
		if !found {
			return fmt.Errorf("location %q not found", s.Address)
		}
		fmt.Printf("Found: %s\n", result.DisplayName)
		lat, lon = result.Latitude, result.Longitude
	}

	if lat == 0 && lon == 0 {
		return fmt.Errorf("provide --address or --lat/--lon")
	}

	nwis := ingest.NewNWIS(config.ParameterDischarge)
	sites, err := nwis.FindSites(ctx, lat, lon, s.Radius)
	if err != nil {
		return fmt.Errorf("find sites: %w", err)
	}
	if len(sites) == 0 {
		fmt.Println("No active gauges found in this area")
		return nil
	}

	fmt.Printf("Found %d active gauges within %.0f miles\n", len(sites), s.Radius)
	report.PrintSiteList(os.Stdout, sites, previewSites(ctx, nwis, sites))
	return nil
}

// previewSites fetches a recent reading per gauge for the listing.
func previewSites(ctx context.Context, nwis *ingest.NWIS, sites []models.Site) map[string]string {
	previews := make(map[string]string, len(sites))
	for _, site := range sites {
		readings, err := nwis.FetchCurrent(ctx, site.SiteNo)
		if err != nil {
			previews[site.SiteNo] = "Data unavailable"
			continue
		}
		previews[site.SiteNo] = report.FormatPreview(ingest.Latest(readings), report.Unit(config.ParameterDischarge))
	}
	return previews
}

type ConfigsCmd struct{}

func (c *ConfigsCmd) Run(g *Globals, ctx context.Context) error {
	names, err := config.List(g.ConfigDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No configuration files found. Run: riverwatch setup")
		return nil
	}

	fmt.Println("Available configurations:")
	for _, name := range names {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("\nUse: riverwatch monitor -c <name>")
	return nil
}
