package config

// Config is the process configuration loaded from a JSON (or YAML) file.
//
// Game-behavior tunables (reward amounts, keyword gates, display policy) do
// NOT live here: they live in the 설정 worksheet and are cached/refreshed at
// runtime. This file only holds wiring: endpoints, credentials, queue sizes,
// pacing gaps and TTLs.
type Config struct {
	Mastodon MastodonConfig `json:"mastodon"`
	Sheets   SheetsConfig   `json:"sheets"`
	Bot      BotConfig      `json:"bot"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  *StorageConfig `json:"storage,omitempty"`
}

type MastodonConfig struct {
	Server      string `json:"server"`
	AccessToken string `json:"access_token"`

	// RatePerSec bounds REST calls made by the adapter (status fetches, sends).
	// The outbound pacing gaps in BotConfig are enforced separately.
	RatePerSec int `json:"rate_per_sec,omitempty"`

	// Visibility for reply statuses. Default "public".
	Visibility string `json:"visibility,omitempty"`
}

type SheetsConfig struct {
	// Spreadsheet is the spreadsheet ID of the game document.
	Spreadsheet     string `json:"spreadsheet"`
	CredentialsFile string `json:"credentials_file"`

	// BagSpreadsheet holds the inventory matrix. Empty disables currency/item grants.
	BagSpreadsheet string `json:"bag_spreadsheet,omitempty"`

	// UserColumnStyle selects how bag columns are headed: "with_at" | "without_at".
	UserColumnStyle string `json:"user_column_style,omitempty"`

	// CacheTTL is the read cache window for table snapshots (Go duration, default "3s").
	CacheTTL string `json:"cache_ttl,omitempty"`
	// ConfigTTL is the cache window for the 설정 worksheet (default "30m").
	ConfigTTL string `json:"config_ttl,omitempty"`
	// ConfigReload is a cron spec forcing a 설정 reload regardless of TTL
	// (robfig/cron syntax, default "@every 20m").
	ConfigReload string `json:"config_reload,omitempty"`

	RetryMax  int    `json:"retry_max,omitempty"`  // attempts on transient faults, default 4
	RetryBase string `json:"retry_base,omitempty"` // first backoff delay, default "500ms"

	Worksheets WorksheetNames `json:"worksheets,omitempty"`
}

// WorksheetNames maps logical tables to worksheet titles.
// Defaults match the live community spreadsheet.
type WorksheetNames struct {
	Runner        string `json:"runner,omitempty"`        // 러너
	Limits        string `json:"limits,omitempty"`        // 제한
	Explore       string `json:"explore,omitempty"`       // 탐색
	Session       string `json:"session,omitempty"`       // 세션
	Participation string `json:"participation,omitempty"` // 참여기록
	Config        string `json:"config,omitempty"`        // 설정
	Bag           string `json:"bag,omitempty"`           // 가방
}

type BotConfig struct {
	Workers       int    `json:"workers,omitempty"`        // default 6
	InboxSize     int    `json:"inbox_size,omitempty"`     // default 10000
	SubmitTimeout string `json:"submit_timeout,omitempty"` // default "1s"

	// GapGlobal / GapPerUser are the minimum spacing between outbound replies,
	// overall and per recipient. Defaults "8s".
	GapGlobal  string `json:"gap_global,omitempty"`
	GapPerUser string `json:"gap_per_user,omitempty"`

	// ResendOnce re-enqueues a failed send exactly once through the pacer.
	// Default false: failed sends are logged and dropped so a sustained outage
	// cannot grow the backlog without bound.
	ResendOnce bool `json:"resend_once,omitempty"`

	// ThreadHopLimit bounds reply-chain walking when resolving a thread root.
	ThreadHopLimit int `json:"thread_hop_limit,omitempty"` // default 10

	Timezone string `json:"timezone,omitempty"` // default "Asia/Seoul"
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the optional local audit log.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./marchbot_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	// RetainDays prunes audit rows older than this many days (0 keeps everything).
	RetainDays int `json:"retain_days,omitempty"`
}

// Normalize fills defaults in place. Call after Parse and env overrides.
func (c *Config) Normalize() {
	if c.Mastodon.RatePerSec <= 0 {
		c.Mastodon.RatePerSec = 2
	}
	if c.Mastodon.Visibility == "" {
		c.Mastodon.Visibility = "public"
	}

	if c.Sheets.UserColumnStyle == "" {
		c.Sheets.UserColumnStyle = "without_at"
	}
	if c.Sheets.CacheTTL == "" {
		c.Sheets.CacheTTL = "3s"
	}
	if c.Sheets.ConfigTTL == "" {
		c.Sheets.ConfigTTL = "30m"
	}
	if c.Sheets.ConfigReload == "" {
		c.Sheets.ConfigReload = "@every 20m"
	}
	if c.Sheets.RetryMax <= 0 {
		c.Sheets.RetryMax = 4
	}
	if c.Sheets.RetryBase == "" {
		c.Sheets.RetryBase = "500ms"
	}

	ws := &c.Sheets.Worksheets
	if ws.Runner == "" {
		ws.Runner = "러너"
	}
	if ws.Limits == "" {
		ws.Limits = "제한"
	}
	if ws.Explore == "" {
		ws.Explore = "탐색"
	}
	if ws.Session == "" {
		ws.Session = "세션"
	}
	if ws.Participation == "" {
		ws.Participation = "참여기록"
	}
	if ws.Config == "" {
		ws.Config = "설정"
	}
	if ws.Bag == "" {
		ws.Bag = "가방"
	}

	if c.Bot.Workers <= 0 {
		c.Bot.Workers = 6
	}
	if c.Bot.InboxSize <= 0 {
		c.Bot.InboxSize = 10000
	}
	if c.Bot.SubmitTimeout == "" {
		c.Bot.SubmitTimeout = "1s"
	}
	if c.Bot.GapGlobal == "" {
		c.Bot.GapGlobal = "8s"
	}
	if c.Bot.GapPerUser == "" {
		c.Bot.GapPerUser = "8s"
	}
	if c.Bot.ThreadHopLimit <= 0 {
		c.Bot.ThreadHopLimit = 10
	}
	if c.Bot.Timezone == "" {
		c.Bot.Timezone = "Asia/Seoul"
	}
}
