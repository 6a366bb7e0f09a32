package store

import (
	"database/sql"

	"github.com/outboundhq/pipeline-orchestrator/internal/domain"
)

// Setting keys read by agents through the Settings snapshot.
const (
	SettingFollowUpDays = "follow_up_days"
	SettingAutoOutreach = "auto_outreach"
	SettingAutoClassify = "auto_classify"
	SettingLLMProvider  = "llm_provider"
)

// GetSetting returns the value for key, or fallback when unset
func (s *Store) GetSetting(key, fallback string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetSetting stores a value for key
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// LoadSettings reads the runtime settings snapshot handed to agents at
// dispatch time. Max follow-ups is derived from the offset count.
func (s *Store) LoadSettings() (domain.Settings, error) {
	var settings domain.Settings

	days, err := s.GetSetting(SettingFollowUpDays, domain.DefaultFollowUpDays)
	if err != nil {
		return settings, err
	}
	settings.FollowUpDays = domain.ParseDayOffsets(days)
	settings.MaxFollowUps = len(settings.FollowUpDays)

	autoOutreach, err := s.GetSetting(SettingAutoOutreach, "true")
	if err != nil {
		return settings, err
	}
	settings.AutoOutreach = autoOutreach == "true"

	autoClassify, err := s.GetSetting(SettingAutoClassify, "true")
	if err != nil {
		return settings, err
	}
	settings.AutoClassify = autoClassify == "true"

	provider, err := s.GetSetting(SettingLLMProvider, "gemini")
	if err != nil {
		return settings, err
	}
	settings.LLMProvider = provider

	return settings, nil
}
