package config

import (
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	ListenAddr string

	RedisURL    string
	DatabaseURL string

	// JoinAutoCreate restores the behavior where joining an unknown room
	// code silently creates a fresh room instead of failing.
	JoinAutoCreate bool

	// ResetRequiresParticipant gates reset_game to connections that are
	// participants of the addressed room.
	ResetRequiresParticipant bool

	OriginAllowlist []string

	MsgTemplateDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:               ":4000",
		JoinAutoCreate:           false,
		ResetRequiresParticipant: true,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	} else if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.ListenAddr = ":" + v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MsgTemplateDir = strings.TrimSpace(os.Getenv("MSG_TEMPLATE_DIR"))

	if v := strings.TrimSpace(os.Getenv("JOIN_AUTO_CREATE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.JoinAutoCreate = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("RESET_REQUIRES_PARTICIPANT")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ResetRequiresParticipant = b
		}
	}

	if v := strings.TrimSpace(os.Getenv("ORIGIN_ALLOWLIST")); v != "" {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.OriginAllowlist = append(cfg.OriginAllowlist, s)
			}
		}
	}

	return cfg, nil
}
