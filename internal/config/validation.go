package config

import (
	"fmt"
	"strings"
	"time"

	"aurum/internal/news"
)

func validate(c *Config) error {
	if err := c.TwelveData.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Level.validate(); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if err := c.News.validate(); err != nil {
		return err
	}
	return nil
}

func (t *TwelveDataConfig) validate() error {
	if strings.TrimSpace(t.APIKey) == "" {
		return fmt.Errorf("twelvedata.api_key cannot be empty")
	}
	return nil
}

func (r *RiskConfig) validate() error {
	mode := strings.ToUpper(strings.TrimSpace(r.Mode))
	if mode != "SAFER" && mode != "STRICT" {
		return fmt.Errorf("risk.mode must be SAFER or STRICT, got %q", r.Mode)
	}
	r.Mode = mode
	if r.RiskPerTrade <= 0 || r.RiskPerTrade >= 1 {
		return fmt.Errorf("risk.risk_per_trade must be in (0, 1)")
	}
	if r.StrictRisk <= 0 || r.StrictRisk >= 1 {
		return fmt.Errorf("risk.strict_risk must be in (0, 1)")
	}
	if r.RewardMultiple <= 0 {
		return fmt.Errorf("risk.reward_multiple must be > 0")
	}
	if r.MinLot > r.MaxLot {
		return fmt.Errorf("risk.min_lot cannot exceed risk.max_lot")
	}
	return nil
}

func (l *LevelConfig) validate() error {
	mode := strings.ToUpper(strings.TrimSpace(l.Mode))
	if mode != "STRICT" && mode != "MILESTONE" {
		return fmt.Errorf("level.mode must be STRICT or MILESTONE, got %q", l.Mode)
	}
	l.Mode = mode
	if l.InitialBalance <= 0 {
		return fmt.Errorf("level.initial_balance must be > 0")
	}
	return nil
}

func (n *NotifyConfig) validate() error {
	tg := n.Telegram
	if !tg.Enabled {
		return nil
	}
	if strings.TrimSpace(tg.BotToken) == "" {
		return fmt.Errorf("notify.telegram.bot_token required when enabled")
	}
	if strings.TrimSpace(tg.ChatID) == "" {
		return fmt.Errorf("notify.telegram.chat_id required when enabled")
	}
	return nil
}

func (n *NewsConfig) validate() error {
	for _, ev := range n.Events {
		if _, err := time.Parse(news.EventTimeLayout, strings.TrimSpace(ev)); err != nil {
			return fmt.Errorf("news.events entry %q: expected %q", ev, news.EventTimeLayout)
		}
	}
	return nil
}
