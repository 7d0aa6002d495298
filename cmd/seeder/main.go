package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/blogposts/internal/blogposts"
	"github.com/2beens/blogposts/internal/config"
	"github.com/2beens/blogposts/internal/logging"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development | test]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	count := flag.Int("count", 10, "number of fake blog posts to insert")
	drop := flag.Bool("drop", false, "remove all the existing posts first")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("no .env file loaded, using system environment variables")
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %s\n", err)
		os.Exit(1)
	}

	loggingShutdown := logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    cfg.LogLevel,
		Environment: cfg.Environment,
	})
	defer loggingShutdown()

	if err := run(cfg, *count, *drop); err != nil {
		log.Errorf("seeding failed: %s", err)
		loggingShutdown()
		os.Exit(1)
	}
}

func run(cfg *config.Config, count int, drop bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo, err := blogposts.OpenRepo(ctx, blogposts.OpenRepoParams{DatabaseURL: cfg.DatabaseURL})
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(context.Background()); err != nil {
			log.Warnf("close repo: %s", err)
		}
	}()

	if drop {
		if err := repo.Drop(ctx); err != nil {
			return fmt.Errorf("drop: %w", err)
		}
	}

	if _, err := blogposts.SeedFakePosts(ctx, repo, count); err != nil {
		return err
	}

	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	log.Infof("inserted %d fake blog posts, %d in total", count, total)

	return nil
}
