// Command downloader-main downloads every attachment discovered in
// scraper entry bodies.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yasu-a/manaba-clone/internal/cert"
	"github.com/yasu-a/manaba-clone/internal/config"
	"github.com/yasu-a/manaba-clone/internal/database"
	"github.com/yasu-a/manaba-clone/internal/downloader"
	"github.com/yasu-a/manaba-clone/internal/fetcher"
	"github.com/yasu-a/manaba-clone/internal/logger"
	"github.com/yasu-a/manaba-clone/internal/manaba"
)

var cfgFile string

func main() {
	cmd := &cobra.Command{
		Use:   "downloader-main",
		Short: "Download every attachment discovered in scraper entry bodies",
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

	rateLimiter := fetcher.NewRateLimiter(float64(cfg.GetDownloaderConfig().SleepSeconds), nil)
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

	creds, err := cert.LoadJSON(cfg.GetFetcherConfig().CredentialsFile)
	if err != nil {
		log.Warn("no credentials file, skipping login", "error", err)
	} else {
		pair, err := creds.Request(manaba.Host)
		if err != nil {
			return fmt.Errorf("request credentials: %w", err)
		}
		if err := cookieFetcher.Login(cmd.Context(), fetcher.Credentials{UID: pair.UID, Password: pair.Password}); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	d := downloader.New(db, cookieFetcher, log)
	if err := d.DownloadAll(cmd.Context()); err != nil {
		return fmt.Errorf("download all: %w", err)
	}

	log.Info("download complete")
	return nil
}
