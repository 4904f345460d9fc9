package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Env centralizes the process environment this service reads at startup,
// the way the teacher's config package reads DB_* / REDIS_ADDRESS directly
// from os.Getenv — collected into one struct here because the publisher
// core (unlike the teacher's handlers) takes its configuration as
// constructor arguments rather than reading os.Getenv itself.
type Env struct {
	TokenEncryptionKey string
	TwitterClientID    string
	TwitterClientSecret string
	CronSecret         string
	MockXAPI           bool
	Timezone           *time.Location
	CronAllowedOrigins []string
}

// LoadEnv reads the process environment once at startup. TOKEN_ENCRYPTION_KEY
// is required (spec.md §6); everything else has a documented default.
func LoadEnv() (Env, error) {
	loc, err := resolveTimezone(os.Getenv("PUBLISHER_TIMEZONE"))
	if err != nil {
		return Env{}, err
	}

	var origins []string
	if raw := strings.TrimSpace(os.Getenv("CRON_ALLOWED_ORIGINS")); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return Env{
		TokenEncryptionKey:  os.Getenv("TOKEN_ENCRYPTION_KEY"),
		TwitterClientID:     os.Getenv("AUTH_TWITTER_ID"),
		TwitterClientSecret: os.Getenv("AUTH_TWITTER_SECRET"),
		CronSecret:          os.Getenv("CRON_SECRET"),
		MockXAPI:            parseBool(os.Getenv("MOCK_X_API")),
		Timezone:            loc,
		CronAllowedOrigins:  origins,
	}, nil
}

func resolveTimezone(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
