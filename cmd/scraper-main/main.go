// Command scraper-main walks a finished crawl job's task graph and
// persists its scraper entries.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yasu-a/manaba-clone/internal/config"
	"github.com/yasu-a/manaba-clone/internal/database"
	"github.com/yasu-a/manaba-clone/internal/logger"
	"github.com/yasu-a/manaba-clone/internal/scraper"
	"github.com/yasu-a/manaba-clone/internal/session"
)

var (
	cfgFile string
	latest  bool
	reset   bool
)

func main() {
	cmd := &cobra.Command{
		Use:   "scraper-main",
		Short: "Walk a finished crawl job and persist its scraper entries",
		RunE:  run,
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	cmd.Flags().BoolVar(&latest, "latest", true, "select the most recently finished job (oldest if false)")
	cmd.Flags().BoolVar(&reset, "reset", false, "truncate scraper tables before walking")

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

	if reset {
		if err := database.ResetScraperTables(cmd.Context(), db); err != nil {
			return fmt.Errorf("reset scraper tables: %w", err)
		}
		log.Info("scraper tables reset")
	}

	policy := database.ResumeOldest
	if latest {
		policy = database.ResumeLatest
	}

	jobID, err := selectFinishedJob(cmd.Context(), db, policy)
	if err != nil {
		return fmt.Errorf("select finished job: %w", err)
	}
	log.Info("selected finished job", "job_id", jobID)

	s := scraper.New(db, log)
	if err := s.Walk(cmd.Context(), jobID); err != nil {
		return fmt.Errorf("walk job %d: %w", jobID, err)
	}

	log.Info("scrape complete", "job_id", jobID)
	return nil
}

func selectFinishedJob(ctx context.Context, db *sqlx.DB, policy database.ResumePolicy) (int64, error) {
	jobs := database.NewJobRepository()
	var jobID int64
	err := session.Run(ctx, db, func(sctx *session.Context) error {
		sctx.ReadOnly()
		id, err := jobs.SelectFinished(ctx, sctx.Tx, policy)
		if err != nil {
			return err
		}
		jobID = id
		return nil
	})
	return jobID, err
}
