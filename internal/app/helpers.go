package app

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/partnerhub/core/internal/config"
	"github.com/partnerhub/core/internal/pkg/jwt"
	"github.com/partnerhub/core/internal/pkg/nativelog"
	"go.uber.org/zap"
)

// applyRuntimeSettings exports process-wide settings and builds the admin
// token keyring.
func applyRuntimeSettings(cfg *config.AppConfig, logger *zap.Logger) (*jwt.Keyring, error) {
	if os.Getenv(nativelog.EnvLogDir) == "" {
		_ = os.Setenv(nativelog.EnvLogDir, cfg.LogDir())
	}

	secret := strings.TrimSpace(cfg.JWTSecret)
	if secret == "" {
		if !cfg.IsDev() {
			return nil, errors.New("jwt_secret is required outside development")
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		logger.Warn("jwt_secret is empty, using a random secret for this process")
	}
	keys, err := jwt.NewKeyring(secret)
	if err != nil {
		return nil, err
	}

	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		return keys, nil
	}
	loc, err := parseTimezoneLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	time.Local = loc
	_ = os.Setenv("TZ", tz)
	return keys, nil
}

func parseTimezoneLocation(raw string) (*time.Location, error) {
	tz := strings.TrimSpace(raw)
	if tz == "" {
		return time.Local, nil
	}
	if loc, err := time.LoadLocation(tz); err == nil {
		return loc, nil
	}
	if len(tz) == 6 && (tz[0] == '+' || tz[0] == '-') && tz[3] == ':' {
		h, errH := strconv.Atoi(tz[1:3])
		m, errM := strconv.Atoi(tz[4:6])
		if errH == nil && errM == nil && h <= 23 && m <= 59 {
			offset := h*3600 + m*60
			if tz[0] == '-' {
				offset = -offset
			}
			return time.FixedZone(tz, offset), nil
		}
	}
	return nil, errors.New("expect IANA zone (e.g. Europe/Berlin) or UTC offset (e.g. +02:00)")
}
