// Command bearoffserver runs the bear-off simulator REST API server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/yourusername/bearoffsim/internal/config"
	"github.com/yourusername/bearoffsim/pkg/api"
)

const version = "0.1.0"

// serverEnv holds the environment defaults; flags override them.
type serverEnv struct {
	Host           string        `env:"BEAROFF_HOST" envDefault:"localhost"`
	Port           int           `env:"BEAROFF_PORT" envDefault:"8080"`
	ReadTimeout    time.Duration `env:"BEAROFF_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout   time.Duration `env:"BEAROFF_WRITE_TIMEOUT" envDefault:"5m"`
	IdleTimeout    time.Duration `env:"BEAROFF_IDLE_TIMEOUT" envDefault:"60s"`
	MaxFastWorkers int           `env:"BEAROFF_MAX_FAST_WORKERS" envDefault:"100"`
	MaxSlowWorkers int           `env:"BEAROFF_MAX_SLOW_WORKERS" envDefault:"4"`
	MaxIterations  int           `env:"BEAROFF_MAX_ITERATIONS" envDefault:"1000000"`
	MaxTurns       int           `env:"BEAROFF_MAX_TURNS" envDefault:"200"`
}

// parseConfig reads the environment, then applies command line flags.
func parseConfig(fs *flag.FlagSet, args []string) (api.ServerConfig, bool, error) {
	var cfg serverEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return api.ServerConfig{}, false, err
	}

	fs.StringVar(&cfg.Host, "host", cfg.Host, "Host to bind to (use 0.0.0.0 for all interfaces)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Port to listen on")
	fs.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "HTTP read timeout")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "HTTP write timeout")
	fs.IntVar(&cfg.MaxSlowWorkers, "slow-workers", cfg.MaxSlowWorkers, "Max concurrent simulations")
	fs.IntVar(&cfg.MaxIterations, "max-iterations", cfg.MaxIterations, "Max games per simulation request")
	showVersion := fs.Bool("version", false, "Show version and exit")
	if err := fs.Parse(args); err != nil {
		return api.ServerConfig{}, false, err
	}

	return api.ServerConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxFastWorkers: cfg.MaxFastWorkers,
		MaxSlowWorkers: cfg.MaxSlowWorkers,
		MaxIterations:  cfg.MaxIterations,
		MaxTurns:       cfg.MaxTurns,
	}, *showVersion, nil
}

func main() {
	cfg, showVersion, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	if showVersion {
		fmt.Printf("Bear-off API Server v%s\n", version)
		os.Exit(0)
	}

	log.Printf("Bear-off API Server v%s", version)
	log.Printf("Limits: %d games per simulation, %d concurrent simulations", cfg.MaxIterations, cfg.MaxSlowWorkers)

	server := api.NewServer(cfg, version)

	if err := server.ListenAndServeWithGracefulShutdown(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
