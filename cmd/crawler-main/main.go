// Command crawler-main drives the crawl engine to completion.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yasu-a/manaba-clone/internal/cert"
	"github.com/yasu-a/manaba-clone/internal/config"
	"github.com/yasu-a/manaba-clone/internal/crawler"
	"github.com/yasu-a/manaba-clone/internal/database"
	"github.com/yasu-a/manaba-clone/internal/fetcher"
	"github.com/yasu-a/manaba-clone/internal/logger"
	"github.com/yasu-a/manaba-clone/internal/manaba"
)

var cfgFile string

func main() {
	cmd := &cobra.Command{
		Use:   "crawler-main",
		Short: "Drive the manaba crawl engine to completion",
		RunE:  run,
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	_ = v.ReadInConfig()

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseLog, err := logger.New(logger.Config{Development: cfg.GetCrawlerConfig().Debug})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	log := baseLog.With("run_id", uuid.New().String())

	db, err := database.Open(cfg.GetDatabaseConfig())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	rateLimiter := fetcher.NewRateLimiter(float64(cfg.GetCrawlerConfig().SleepSeconds), nil)
	cookieFetcher, err := fetcher.NewCookie(
		cfg.GetFetcherConfig().CookieJarFile,
		manaba.HomeURL(manaba.PeriodCurrent),
		rateLimiter,
		log,
	)
	if err != nil {
		return fmt.Errorf("build cookie fetcher: %w", err)
	}
	defer cookieFetcher.Save()

	if err := loginCookieFetcher(cmd.Context(), cookieFetcher, cfg.GetFetcherConfig().CredentialsFile, log); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	engine := crawler.New(db, manaba.Family(), cookieFetcher, log)

	if promptNewSession() {
		jobID, err := engine.Initialize(cmd.Context(), manaba.InitialURLs(), false)
		if err != nil {
			return fmt.Errorf("initialize crawl job: %w", err)
		}
		log.Info("initialized new job", "job_id", jobID)
	}

	policy := database.ResumeOldest
	if err := engine.Crawl(cmd.Context(), policy); err != nil {
		return fmt.Errorf("crawl: %w", err)
	}

	log.Info("crawl complete")
	return nil
}

func loginCookieFetcher(ctx context.Context, f *fetcher.Cookie, credentialsFile string, log logger.Interface) error {
	creds, err := cert.LoadJSON(credentialsFile)
	if err != nil {
		log.Warn("no credentials file, skipping login", "error", err)
		return nil
	}
	pair, err := creds.Request(manaba.Host)
	if err != nil {
		return err
	}
	return f.Login(ctx, fetcher.Credentials{UID: pair.UID, Password: pair.Password})
}

func promptNewSession() bool {
	fmt.Print("new session [y/n]: ")
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}
