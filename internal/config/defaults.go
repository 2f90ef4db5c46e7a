package config

import (
	"github.com/spf13/viper"

	"ctxfeed/internal/compaction"
	feedctx "ctxfeed/internal/context"
)

// SetDefaults 设置所有配置项的默认值
func SetDefaults() {
	viper.SetDefault("version", "1")

	// Log 配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.file", "")

	// Storage 配置
	viper.SetDefault("storage.path", "~/.ctxfeed/data.db")

	// Gateway 配置
	viper.SetDefault("gateway.port", 8080)
	viper.SetDefault("gateway.host", "127.0.0.1")
	viper.SetDefault("gateway.max_body_bytes", 8<<20)

	// Models 配置
	viper.SetDefault("models.file", "")
	viper.SetDefault("models.default", "gpt-4o")

	// Budget 配置
	viper.SetDefault("budget.warning_threshold", 0.75)
	viper.SetDefault("budget.critical_threshold", 0.90)
	viper.SetDefault("budget.reserved_for_output", 0)

	// Builder 配置
	b := feedctx.DefaultBuilderConfig()
	viper.SetDefault("builder.recent_history_count", b.RecentHistoryCount)
	viper.SetDefault("builder.stale_after", b.StaleAfter)

	// Relevance 配置
	r := feedctx.DefaultRelevanceConfig()
	viper.SetDefault("relevance.title_weight", r.TitleWeight)
	viper.SetDefault("relevance.description_weight", r.DescriptionWeight)
	viper.SetDefault("relevance.content_weight", r.ContentWeight)
	viper.SetDefault("relevance.file_path_weight", r.FilePathWeight)
	viper.SetDefault("relevance.same_task_bonus", r.SameTaskBonus)
	viper.SetDefault("relevance.description_chars", r.DescriptionChars)
	viper.SetDefault("relevance.hour_bonus", r.HourBonus)
	viper.SetDefault("relevance.day_bonus", r.DayBonus)
	viper.SetDefault("relevance.week_bonus", r.WeekBonus)
	viper.SetDefault("relevance.stale_flag_penalty", r.StaleFlagPenalty)
	viper.SetDefault("relevance.stale_age_penalty", r.StaleAgePenalty)
	viper.SetDefault("relevance.stale_after", r.StaleAfter)
	viper.SetDefault("relevance.stale_ramp", r.StaleRamp)
	viper.SetDefault("relevance.stale_penalty_cap", r.StalePenaltyCap)
	viper.SetDefault("relevance.per_keyword_ceiling", r.PerKeywordCeiling)
	viper.SetDefault("relevance.min_denominator", r.MinDenominator)
	viper.SetDefault("relevance.neutral_score", r.NeutralScore)

	// Packer 配置
	p := feedctx.DefaultPackerConfig()
	viper.SetDefault("packer.min_remaining_for_compression", p.MinRemainingForCompression)
	viper.SetDefault("packer.compression_target_ratio", p.CompressionTargetRatio)
	viper.SetDefault("packer.compression_margin", p.CompressionMargin)
	viper.SetDefault("packer.max_compressible_tier", int(p.MaxCompressibleTier))

	// Compaction 配置
	c := compaction.DefaultConfig()
	viper.SetDefault("compaction.max_string_length", c.MaxStringLength)
	viper.SetDefault("compaction.max_array_items", c.MaxArrayItems)
	viper.SetDefault("compaction.min_run_length", c.MinRunLength)
	viper.SetDefault("compaction.head_ratio", c.HeadRatio)
	viper.SetDefault("compaction.chars_per_token_hint", c.CharsPerTokenHint)
	viper.SetDefault("compaction.min_lines", c.MinLines)
	viper.SetDefault("compaction.max_blank_lines", c.MaxBlankLines)
}
