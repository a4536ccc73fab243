package config

import (
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides lets secrets and store identifiers come from the environment
// instead of the config file, so the file can be committed without tokens.
type envOverrides struct {
	MastodonServer string `env:"MASTODON_BASE_URL"`
	MastodonToken  string `env:"MASTODON_ACCESS_TOKEN"`

	SpreadsheetID   string `env:"SHEETS_SPREADSHEET_ID"`
	BagSpreadsheet  string `env:"SHEETS_BAG_SPREADSHEET_ID"`
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	Timezone string `env:"TZ"`
}

// applyEnv overlays environment values onto cfg. Environment wins over file.
func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return err
	}
	if s := strings.TrimSpace(o.MastodonServer); s != "" {
		cfg.Mastodon.Server = s
	}
	if s := strings.TrimSpace(o.MastodonToken); s != "" {
		cfg.Mastodon.AccessToken = s
	}
	if s := strings.TrimSpace(o.SpreadsheetID); s != "" {
		cfg.Sheets.Spreadsheet = s
	}
	if s := strings.TrimSpace(o.BagSpreadsheet); s != "" {
		cfg.Sheets.BagSpreadsheet = s
	}
	if s := strings.TrimSpace(o.CredentialsFile); s != "" {
		cfg.Sheets.CredentialsFile = s
	}
	if s := strings.TrimSpace(o.Timezone); s != "" {
		cfg.Bot.Timezone = s
	}
	return nil
}
