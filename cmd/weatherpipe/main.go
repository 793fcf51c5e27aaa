package main

import (
	"context"
	"database/sql"
	"errors"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/bostonweather/pipeline/internal/api"
	"github.com/bostonweather/pipeline/internal/extract"
	"github.com/bostonweather/pipeline/internal/observability"
	"github.com/bostonweather/pipeline/internal/schedule"
	"github.com/bostonweather/pipeline/internal/store"
	"github.com/bostonweather/pipeline/internal/transform"
)

var cli struct {
	DB     string `help:"Path to SQLite database." default:"data/weather.db" env:"WEATHER_DB"`
	Listen string `help:"HTTP listen address." default:":8080" env:"WEATHER_LISTEN"`

	Lat       float64 `help:"Location latitude." default:"42.3601" env:"WEATHER_LAT"`
	Lon       float64 `help:"Location longitude." default:"-71.0589" env:"WEATHER_LON"`
	UserAgent string  `help:"User-Agent sent to the NWS API." default:"weatherpipe (ops@bostonweather.example)" env:"NWS_USER_AGENT"`

	ExtractCron string `help:"Cron spec for the frequent extract+transform." default:"*/10 * * * *" env:"EXTRACT_CRON"`
	DailyCron   string `help:"Cron spec for the daily forecast extract." default:"0 6 * * *" env:"DAILY_CRON"`

	LogLevel string `help:"Log level." default:"info" env:"LOG_LEVEL"`

	Once          bool `help:"Run one extract+transform cycle and exit."`
	TransformOnly bool `help:"Rebuild derived tables from existing raw data and exit."`
	NoPoll        bool `help:"Disable scheduling (HTTP server only)."`
}

// pipeline binds the extract and transform stages the scheduler drives. The
// transform always reruns after an extract so the derived tables track the
// raw ones.
type pipeline struct {
	extractor *extract.Extractor
	runner    *transform.Runner
}

func (p *pipeline) RunFrequent(ctx context.Context) error {
	if err := p.extractor.ExtractCurrentAndHourly(ctx); err != nil {
		return err
	}
	return p.runner.Run(ctx)
}

func (p *pipeline) RunDaily(ctx context.Context) error {
	if err := p.extractor.ExtractDaily(ctx); err != nil {
		return err
	}
	return p.runner.Run(ctx)
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("weatherpipe"),
		kong.Description("Weather ETL pipeline: NWS extraction, cleaning, aggregation and analytics."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	log, err := observability.NewLogger(cli.LogLevel)
	kctx.FatalIfErrorf(err)
	defer log.Sync()

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db, log)
	if err := st.Migrate(); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}
	log.Info("database migrated", zap.String("path", cli.DB))

	client := extract.NewClient(cli.Lat, cli.Lon, cli.UserAgent, log)
	extractor := extract.NewExtractor(client, st, log)
	runner := transform.NewRunner(st, log)
	p := &pipeline{extractor: extractor, runner: runner}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cli.TransformOnly {
		if err := runner.Run(ctx); err != nil {
			log.Fatal("transform", zap.Error(err))
		}
		return
	}

	if cli.Once {
		if err := p.RunDaily(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal("daily extract", zap.Error(err))
		}
		if err := p.RunFrequent(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal("extract", zap.Error(err))
		}
		return
	}

	if !cli.NoPoll {
		sched := schedule.New(log)
		if err := sched.Register(ctx, p, cli.ExtractCron, cli.DailyCron); err != nil {
			log.Fatal("register schedules", zap.Error(err))
		}

		// Prime the tables at startup rather than waiting for the first tick.
		go func() {
			if err := p.RunFrequent(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("initial pipeline run failed", zap.Error(err))
			}
		}()
		go sched.Start(ctx)
	} else {
		log.Info("polling disabled (--no-poll)")
	}

	server := api.NewServer(st, cli.Listen, log)
	if err := server.Run(ctx); err != nil {
		log.Fatal("server", zap.Error(err))
	}
}
