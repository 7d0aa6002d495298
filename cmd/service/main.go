package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/blogposts/internal"
	"github.com/2beens/blogposts/internal/config"
	"github.com/2beens/blogposts/internal/logging"
	"github.com/2beens/blogposts/pkg"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development | test]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	// .env is optional, real env vars take precedence
	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file loaded, using system environment variables")
	}

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	loggingShutdown := logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    cfg.LogFormatJSON,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        os.Getenv("SENTRY_DSN"),
		SentryServerName: "blog-posts-service",
	})
	defer loggingShutdown()

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	if cfg.GopsEnabled {
		// no ShutdownCleanup, signals are handled below
		if err := agent.Listen(agent.Options{}); err != nil {
			log.WithField("err", err).Warn("could not start gops agent")
		} else {
			defer agent.Close()
		}
	}

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	redisPassword := os.Getenv("REDIS_PASS")
	if cfg.RedisEnabled() && redisPassword == "" {
		log.Warnln("redis password not set. use REDIS_PASS")
	}

	honeycombEnabled := os.Getenv("HONEYCOMB_ENABLED") == "true"
	if honeycombEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			VersionInfo:             versionInfo,
			RedisPassword:           redisPassword,
			HoneycombTracingEnabled: honeycombEnabled,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	if err := server.Serve(ctx, cfg.Host, cfg.Port); err != nil {
		log.Fatalf("serve: %s", err)
	}

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, killing everything ...", receivedSig)
	cancel()

	if err := server.GracefulShutdown(); err != nil {
		log.Errorf("graceful shutdown: %s", err)
	}
}

// tryGetLastCommitHash will try to get the last commit hash
// assumes that the built main executable is in project root
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return pkg.BytesToString(stdout), nil
}
