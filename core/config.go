package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Debug        bool
	TestMode     bool
	Env          string
	AppName      string
	Build        string
	RollbarToken string

	Server struct {
		Host            string
		Addr            string
		ShutdownTimeout time.Duration
	}

	Backend struct {
		BaseURL string
		Timeout time.Duration
	}

	Storage struct {
		Path string // local client-state DB file
	}

	Shell struct {
		CollapseWidth int // viewport width below which the side panel auto-collapses
	}
}

// NewConfig loads the app configuration from defaults, an optional
// config/.env.<env> file and environment variables (prefixed with ENV).
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Darasa Portal")
	v.SetDefault("build", "dev")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":3000")
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("backendBaseURL", "http://localhost:8000/api")
	v.SetDefault("backendTimeout", 10*time.Second)
	v.SetDefault("storagePath", filepath.Join(Getwd(), "portal.db"))
	v.SetDefault("shellCollapseWidth", 1024)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Env:          env,
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		RollbarToken: v.GetString("rollbarToken"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Addr = v.GetString("serverAddr")
	conf.Server.ShutdownTimeout = v.GetDuration("shutdownTimeout")
	conf.Backend.BaseURL = v.GetString("backendBaseURL")
	conf.Backend.Timeout = v.GetDuration("backendTimeout")
	conf.Storage.Path = v.GetString("storagePath")
	conf.Shell.CollapseWidth = v.GetInt("shellCollapseWidth")
	return conf
}
