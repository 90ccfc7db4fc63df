package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	GithubConfig struct {
		Token   string
		Repo    string // "owner/name" of the data repository
		Branch  string
		Timeout time.Duration
	}

	DatabaseConfig struct {
		Engine     string
		Name       string
		User       string
		Password   string
		Host       string
		Port       int
		DisableTLS bool
	}

	StorageConfig struct {
		Backend  string // github | postgres | memory
		Github   GithubConfig
		Database DatabaseConfig
	}

	EmailConfig struct {
		DefaultFrom    string
		ReportAddress  string // roster report recipient; empty disables reports
		SendgridAPIKey string
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		Build    string
		AppName  string

		SecretKey                 []byte
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration

		Server  ServerConfig
		Storage StorageConfig
		Email   EmailConfig

		RollbarToken string
	}
)

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewConfig loads the app configuration from the environment, with an
// optional .env file for local development.
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("env", "DEV") // DEV (local; default), TEST, QA, PROD
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "ULAS")
	v.SetDefault("secretKey", "z#5mw-81x)ad$+knqp&u0xh7(j!v)#*c9(#yt3h^$oweg5edy")
	v.SetDefault("jwtExpirationDelta", 12*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("storage.backend", "github")
	v.SetDefault("storage.github.branch", "main")
	v.SetDefault("storage.github.timeout", 20*time.Second)
	v.SetDefault("storage.database.engine", "postgres")
	v.SetDefault("storage.database.name", "ulas")
	v.SetDefault("storage.database.host", "localhost")
	v.SetDefault("storage.database.port", 5432)
	v.SetDefault("storage.database.disableTLS", true)

	v.SetDefault("email.defaultFrom", "noreply@localhost")

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env")
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix("ULAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		Env:                       strings.ToUpper(v.GetString("env")),
		Build:                     v.GetString("build"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 []byte(v.GetString("secretKey")),
		JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
		JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Addr:            v.GetString("server.addr"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Storage: StorageConfig{
			Backend: v.GetString("storage.backend"),
			Github: GithubConfig{
				Token:   v.GetString("storage.github.token"),
				Repo:    v.GetString("storage.github.repo"),
				Branch:  v.GetString("storage.github.branch"),
				Timeout: v.GetDuration("storage.github.timeout"),
			},
			Database: DatabaseConfig{
				Engine:     v.GetString("storage.database.engine"),
				Name:       v.GetString("storage.database.name"),
				User:       v.GetString("storage.database.user"),
				Password:   v.GetString("storage.database.password"),
				Host:       v.GetString("storage.database.host"),
				Port:       v.GetInt("storage.database.port"),
				DisableTLS: v.GetBool("storage.database.disableTLS"),
			},
		},
		Email: EmailConfig{
			DefaultFrom:    v.GetString("email.defaultFrom"),
			ReportAddress:  v.GetString("email.reportAddress"),
			SendgridAPIKey: v.GetString("email.sendgridAPIKey"),
		},
		RollbarToken: v.GetString("rollbarToken"),
	}
	if conf.Env == "TEST" {
		conf.TestMode = true
	}

	if err := conf.check(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) check() error {
	checks := []vala.Checker{
		vala.StringNotEmpty(string(c.SecretKey), "secretKey"),
		vala.StringNotEmpty(c.Server.Addr, "server.addr"),
		vala.StringNotEmpty(c.Storage.Backend, "storage.backend"),
	}
	if c.Storage.Backend == "github" {
		checks = append(checks,
			vala.StringNotEmpty(c.Storage.Github.Repo, "storage.github.repo"),
			vala.StringNotEmpty(c.Storage.Github.Branch, "storage.github.branch"),
		)
	}
	if !c.Debug && !c.TestMode {
		checks = append(checks, vala.StringNotEmpty(c.Email.SendgridAPIKey, "email.sendgridAPIKey"))
	}
	return vala.BeginValidation().Validate(checks...).Check()
}

// Getwd returns the app's working directory.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.Getwd: %v", err)
	}
	return wd
}
