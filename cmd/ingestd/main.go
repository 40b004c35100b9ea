package main

import (
	"context"
	"log"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"ingestd/internal/app"
	"ingestd/pkg/config"
	"ingestd/pkg/logger"
)

func main() {
	// build metadata - set via ldflags during build/release
	var version = "dev"

	_ = godotenv.Load(".env")
	addrVal, cfgVal, setFlags := config.ParseCommandFlags()

	// Resolve config path (flag wins over env)
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	envUsed := config.LoadEnvOverrides(cfg)

	// Flags win over config/env when explicitly provided.
	if setFlags["addr"] && addrVal != "" {
		host, port, ok := strings.Cut(addrVal, ":")
		if !ok {
			log.Fatalf("invalid -addr %q, want host:port", addrVal)
		}
		p, perr := strconv.Atoi(port)
		if perr != nil {
			log.Fatalf("invalid port in -addr %q: %v", addrVal, perr)
		}
		cfg.Server.Address = host
		cfg.Server.Port = p
	}

	source := "defaults"
	switch {
	case setFlags["addr"]:
		source = "flags"
	case envUsed:
		source = "env"
	case cfgPath != "":
		source = "config"
	}

	logger.InitWithLevel(cfg.Logging.Level)

	a, err := app.New(cfg, source, version)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}
