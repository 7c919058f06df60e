package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightstate/internal/app"
	"github.com/dokzlo13/lightstate/internal/config"
	"github.com/dokzlo13/lightstate/internal/lua"
	"github.com/dokzlo13/lightstate/internal/wire"
)

const usage = `usage: lightctl [-c config.yaml] <subcommand> [args]

subcommands:
  state [id]                 print the state of one or all lights
  apply <id> <command> ...   apply a command to a light
  run <script.lua>           run a Lua script against the lights
  serve                      run the MQTT bridge and HTTP endpoint
  history [limit]            print recent ledger entries

`

func main() {
	// Support both -c and --config for config path
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage+commandUsage+"\n\nflags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Unable to load .env")
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logging
	setupLogging(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Colors)

	if err := run(cfg, args[0], args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n\n%s\n", err, commandUsage)
			os.Exit(2)
		}
		log.Fatal().Err(err).Str("subcommand", args[0]).Msg("Command failed")
	}
}

func run(cfg *config.Config, subcommand string, args []string, out io.Writer) error {
	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	switch subcommand {
	case "serve":
		return serve(application)
	}

	services := application.Services()
	defer func() {
		if err := services.Stop(); err != nil {
			log.Error().Err(err).Msg("Error during shutdown")
		}
	}()

	switch subcommand {
	case "state":
		return printState(services, args, out)
	case "apply":
		if len(args) < 2 {
			return fmt.Errorf("%w: apply needs a light id and a command", errUsage)
		}
		change, err := parseCommand(args[1:])
		if err != nil {
			return err
		}
		if err := services.Lights.Update(args[0], change); err != nil {
			return err
		}
		services.WriteMetrics()
		return printState(services, args[:1], out)
	case "run":
		if len(args) != 1 {
			return fmt.Errorf("%w: run needs a script path", errUsage)
		}
		rt := lua.NewRuntime(services.Lights)
		defer rt.Close()
		if err := rt.RunFile(app.SignalContext(), args[0]); err != nil {
			return err
		}
		services.WriteMetrics()
		return nil
	case "history":
		limit := 20
		if len(args) > 0 {
			if limit, err = strconv.Atoi(args[0]); err != nil || limit <= 0 {
				return fmt.Errorf("%w: history limit must be a positive number", errUsage)
			}
		}
		entries, err := services.Ledger.Recent(limit)
		if err != nil {
			return err
		}
		return writeJSON(out, entries)
	default:
		return fmt.Errorf("%w: unknown subcommand %q", errUsage, subcommand)
	}
}

func serve(application *app.App) error {
	// Create context that cancels on shutdown signal
	ctx := app.SignalContext()

	if err := application.Start(ctx); err != nil {
		if stopErr := application.Stop(); stopErr != nil {
			log.Error().Err(stopErr).Msg("Error during shutdown")
		}
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Wait for shutdown
	application.Wait()

	// Graceful shutdown
	return application.Stop()
}

type stateOutput struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	wire.State
}

func printState(services *app.Services, ids []string, out io.Writer) error {
	if len(ids) == 0 {
		ids = services.Lights.IDs()
	}
	states := make([]stateOutput, 0, len(ids))
	for _, id := range ids {
		m, err := services.Lights.View(id)
		if err != nil {
			return err
		}
		name, _ := services.Lights.Name(id)
		states = append(states, stateOutput{ID: id, Name: name, State: wire.StateFromModel(m)})
	}
	if len(states) == 1 {
		return writeJSON(out, states[0])
	}
	return writeJSON(out, states)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
