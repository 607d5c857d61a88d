package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yasu-a/manaba-clone/internal/config"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{
			name:    "default configuration is valid",
			mutate:  func(*config.Config) {},
			wantErr: false,
		},
		{
			name: "missing database driver",
			mutate: func(c *config.Config) {
				c.Database.Driver = ""
			},
			wantErr: true,
		},
		{
			name: "negative crawler sleep",
			mutate: func(c *config.Config) {
				c.Crawler.SleepSeconds = -1
			},
			wantErr: true,
		},
		{
			name: "missing fetcher credentials file",
			mutate: func(c *config.Config) {
				c.Fetcher.CredentialsFile = ""
			},
			wantErr: true,
		},
		{
			name: "nil downloader section",
			mutate: func(c *config.Config) {
				c.Downloader = nil
			},
			wantErr: true,
		},
	}

	for i := range tests {
		test := &tests[i]
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			test.mutate(cfg)

			err := cfg.Validate()
			if test.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	require.Equal(t, config.DefaultDatabaseDriver, cfg.GetDatabaseConfig().Driver)
	require.Equal(t, config.DefaultCrawlerSleep, cfg.GetCrawlerConfig().SleepSeconds)
	require.Equal(t, config.DefaultDownloaderSleep, cfg.GetDownloaderConfig().SleepSeconds)
	require.False(t, cfg.GetCrawlerConfig().Debug)
}
