package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load loads and validates configuration from:
// 1. Default values
// 2. The config file at path (optional)
// 3. BOT_* environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials have no defaults, so their keys must be registered
	// explicitly for Unmarshal to see environment-only values.
	for _, key := range []string{"line.channel_secret", "line.channel_token", "gemini.api_key"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	// Allow missing config file; defaults plus environment must suffice then.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

// setDefaults sets default values for optional configuration parameters.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	v.SetDefault("server.addr", ":5000")

	v.SetDefault("timezone", "Asia/Tokyo")

	// Candidate models in priority order, fastest and cheapest first.
	v.SetDefault("gemini.models", []string{
		"gemini-2.5-flash",
		"gemini-2.0-flash-lite",
		"gemini-2.0-flash",
		"gemini-pro-latest",
	})
	v.SetDefault("gemini.max_wait", time.Duration(0))

	v.SetDefault("database.path", "bot_memory.sqlite")

	v.SetDefault("scheduler.tasks.nightly_checkin.enabled", true)
	v.SetDefault("scheduler.tasks.nightly_checkin.schedule", "0 21 * * *")
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 4 * * 1")

	v.SetDefault("messages.daily_question",
		"こんばんは！今日の就活・勉強・生活はどうでしたか？\n"+
			"例：『今日就活した。大手企業調べは何から勉強すればいいかわからない』\n"+
			"そのまま送ってOKです。")
	v.SetDefault("messages.no_user_id", "ユーザーIDが取得できなかったよ。1:1トークで試してね。")
	v.SetDefault("messages.report_quota_fallback",
		"ごめん、今AIの回数制限に当たってる…%s後にもう一回送って！\n"+
			"（先にメモだけ残すね：そのまま続き送ってOK）")
	v.SetDefault("messages.profile_quota_fallback", "ごめん、今AIの回数制限に当たってる…%s後にもう一回お願い！")
	v.SetDefault("messages.wait_shortly", "しばらく")
}
