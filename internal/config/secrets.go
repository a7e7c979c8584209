package config

import "slices"

// RedactedConfig returns a copy of cfg with credentials replaced by "***".
// Slices are cloned so the copy can be mutated or logged freely.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Account.Cookie)
	redact(&out.Account.CookiePassword)
	redact(&out.Rolimons.Verification)
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Server.APIKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	out.Rolimons.Ads.Tags = slices.Clone(cfg.Rolimons.Ads.Tags)
	out.Rolimons.Ads.Templates = slices.Clone(cfg.Rolimons.Ads.Templates)
	out.Trade.NotForTrade = slices.Clone(cfg.Trade.NotForTrade)
	out.Trade.NotAccepting = slices.Clone(cfg.Trade.NotAccepting)
	out.Trade.ManualItems = slices.Clone(cfg.Trade.ManualItems)
	out.Algorithm.Modes.TradeMethods = slices.Clone(cfg.Algorithm.Modes.TradeMethods)
	out.Algorithm.DiscountRules = slices.Clone(cfg.Algorithm.DiscountRules)
	out.Server.CORSOrigins = slices.Clone(cfg.Server.CORSOrigins)
	out.Notify.Events = slices.Clone(cfg.Notify.Events)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
