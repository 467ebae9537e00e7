package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "sieve",
		Usage:   "moderation policy daemon (sifts the feed)",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "platform-host",
			Usage:   "method, hostname, and port of the platform API",
			Value:   "https://api.platform.example",
			EnvVars: []string{"SIEVE_PLATFORM_HOST"},
		},
		&cli.StringFlag{
			Name:    "platform-token",
			Usage:   "API token with moderation privileges",
			EnvVars: []string{"SIEVE_PLATFORM_TOKEN"},
		},
		&cli.IntFlag{
			Name:    "platform-rate-limit",
			Usage:   "max number of requests per second to the platform API",
			Value:   20,
			EnvVars: []string{"SIEVE_PLATFORM_RATE_LIMIT"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for counters and removal records; in-memory fallback when empty",
			EnvVars: []string{"SIEVE_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "settings-file",
			Usage:   "path to per-installation settings JSON",
			Value:   "settings.json",
			EnvVars: []string{"SIEVE_SETTINGS_FILE"},
		},
		&cli.StringSliceFlag{
			Name:    "install",
			Usage:   "installation(s) to run the periodic feed scan for",
			EnvVars: []string{"SIEVE_INSTALLS"},
		},
		&cli.DurationFlag{
			Name:    "scan-interval",
			Usage:   "how often the periodic feed scan runs",
			Value:   10 * time.Minute,
			EnvVars: []string{"SIEVE_SCAN_INTERVAL"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for webhook APIs",
			Value:   ":3985",
			EnvVars: []string{"SIEVE_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3984",
			EnvVars: []string{"SIEVE_METRICS_LISTEN"},
		},
		&cli.IntFlag{
			Name:    "action-attempts",
			Usage:   "max attempts for the moderation action sequence",
			Value:   6,
			EnvVars: []string{"SIEVE_ACTION_ATTEMPTS"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("sieve"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		srv, err := NewServer(Config{
			PlatformHost:      cctx.String("platform-host"),
			PlatformToken:     cctx.String("platform-token"),
			PlatformRateLimit: cctx.Int("platform-rate-limit"),
			RedisURL:          cctx.String("redis-url"),
			SettingsFile:      cctx.String("settings-file"),
			Installs:          cctx.StringSlice("install"),
			ScanInterval:      cctx.Duration("scan-interval"),
			ActionAttempts:    cctx.Int("action-attempts"),
			Logger:            logger,
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
			}
		}()

		return srv.Run(ctx, cctx.String("bind"))
	},
}
