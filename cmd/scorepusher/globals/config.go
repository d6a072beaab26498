package globals

import (
	"context"
	"fmt"
	"scorepusher/lib/configutil"
	"scorepusher/lib/notify"
	"scorepusher/lib/platforms/webvpn"
	"scorepusher/lib/restyutil"
	"scorepusher/lib/scores"
	"scorepusher/lib/scorestore"
	"scorepusher/lib/telemetry"
	"scorepusher/lib/validation"
	"scorepusher/services/pusher"
	"time"
)

type Config struct {
	DataDir  string `json:"data_dir" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	// "auto", "on", "off" or a boolean
	WebVpnMode any `json:"web_vpn_mode"`
	// defaults to 60
	IntervalMinutes float64 `json:"interval_minutes" validate:"omitempty,gt=0"`
	SsoLoginUrl     string  `json:"sso_login_url" validate:"omitempty,url"`
	// "last_wins" (default) or "reject"
	Duplicates string            `json:"duplicates" validate:"omitempty,oneof=last_wins reject"`
	Store      scorestore.Config `json:"store"`
	Pushers    []map[string]any  `json:"pushers"`
	Telemetry  telemetry.Config  `json:"telemetry"`
	// each debug run dumps into a new subdirectory of it
	HttpDumpDir string `json:"http_dump_dir"`
}

func ReadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	err = validation.Struct(config)
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Interval() pusher.Interval {
	interval := pusher.DefaultInterval
	if c.IntervalMinutes > 0 {
		interval.Base = time.Duration(c.IntervalMinutes * float64(time.Minute))
	}
	return interval
}

func (c Config) DiffOptions() (scores.DiffOptions, error) {
	policy, err := scores.ParseDuplicatePolicy(c.Duplicates)
	if err != nil {
		return scores.DiffOptions{}, err
	}
	return scores.DiffOptions{Duplicates: policy}, nil
}

func (c Config) OpenStore(ctx context.Context) (scorestore.Store, error) {
	return scorestore.Open(ctx, c.Store, c.DataDir)
}

// Fetcher builds the portal fetcher, HTTP exchanges are only dumped when
// debug is set.
func (c Config) Fetcher(debug bool) (pusher.PortalFetcher, error) {
	var dump restyutil.InstrumentOutput
	if debug && c.HttpDumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(c.HttpDumpDir)
		if err != nil {
			return pusher.PortalFetcher{}, err
		}
		dump = output
	}
	return pusher.NewPortalFetcher(pusher.PortalOptions{
		Username:   c.Username,
		Password:   c.Password,
		WebVpnMode: webvpn.ParseMode(c.WebVpnMode),
		LoginUrl:   c.SsoLoginUrl,
		Dump:       dump,
	}), nil
}

// Channels builds the configured channels, skipping broken entries. A dry
// run builds none.
func (c Config) Channels(dry bool) []notify.Channel {
	if dry {
		return nil
	}
	channels, _ := notify.Default().Build(c.Pushers)
	return channels
}
