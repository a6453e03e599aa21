// Package config loads run settings from defaults, an optional YAML file, an
// optional .env file and INSIGHT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	infra "github.com/dvloznov/shopping-insight/internal/infra/bigquery"
	"github.com/dvloznov/shopping-insight/internal/insight"
	"github.com/dvloznov/shopping-insight/internal/logger"
	"github.com/dvloznov/shopping-insight/internal/window"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "INSIGHT_"

// Config holds everything a run needs.
type Config struct {
	// Warehouse
	ProjectID              string `yaml:"project_id" env:"PROJECT_ID"`
	CredentialsFile        string `yaml:"credentials_file" env:"CREDENTIALS_FILE"`
	CategoryDestination    string `yaml:"category_destination" env:"CATEGORY_DESTINATION"`
	KeywordRankDestination string `yaml:"keyword_rank_destination" env:"KEYWORD_RANK_DESTINATION"`
	StagingBucket          string `yaml:"staging_bucket" env:"STAGING_BUCKET"`
	StagingPrefix          string `yaml:"staging_prefix" env:"STAGING_PREFIX"`

	// Query
	CID             string `yaml:"cid" env:"CID"`
	DateType        string `yaml:"date_type" env:"DATE_TYPE"`
	StartDate       string `yaml:"start_date" env:"START_DATE"`
	EndDate         string `yaml:"end_date" env:"END_DATE"`
	StopOnEmptyPage bool   `yaml:"stop_on_empty_page" env:"STOP_ON_EMPTY_PAGE"`

	// Endpoint
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	Referer     string        `yaml:"referer" env:"REFERER"`
	UserAgent   string        `yaml:"user_agent" env:"USER_AGENT"`
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"HTTP_TIMEOUT"`

	RunTimeout time.Duration `yaml:"run_timeout" env:"RUN_TIMEOUT"`
	LogLevel   string        `yaml:"log_level" env:"LOG_LEVEL"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DateType:    string(window.PeriodWeek),
		BaseURL:     insight.DefaultBaseURL,
		Referer:     insight.DefaultReferer,
		UserAgent:   insight.DefaultUserAgent,
		HTTPTimeout: insight.DefaultTimeout,
		RunTimeout:  30 * time.Minute,
		LogLevel:    "info",
	}
}

// Load builds a Config. yamlPath and envFile are optional; when envFile is
// empty a .env in the working directory is used if present. Variables already
// set in the environment win over the .env file.
func Load(yamlPath, envFile string) (*Config, error) {
	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("Load: reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("Load: parsing config file %s: %w", yamlPath, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("Load: reading env file: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("Load: reading .env: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("Load: parse env: %w", err)
	}

	return cfg, nil
}

// ValidateCategories reports every setting the categories command is missing.
func (c *Config) ValidateCategories() error {
	var result *multierror.Error
	result = multierror.Append(result, c.validateCommon()...)

	if strings.TrimSpace(c.CID) == "" {
		result = multierror.Append(result, errors.New("cid is required"))
	}
	if err := checkDestination("category_destination", c.CategoryDestination); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// ValidateKeywordRanks reports every setting the keyword-ranks command is missing.
func (c *Config) ValidateKeywordRanks() error {
	var result *multierror.Error
	result = multierror.Append(result, c.validateCommon()...)

	if strings.TrimSpace(c.CID) == "" {
		result = multierror.Append(result, errors.New("cid is required"))
	}
	if err := checkDestination("keyword_rank_destination", c.KeywordRankDestination); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := window.ParsePeriod(c.DateType); err != nil {
		result = multierror.Append(result, fmt.Errorf("date_type: %w", err))
	}

	start, startErr := c.StartDay()
	if startErr != nil {
		result = multierror.Append(result, startErr)
	}
	end, endErr := c.EndDay()
	if endErr != nil {
		result = multierror.Append(result, endErr)
	}
	if startErr == nil && endErr == nil && start.After(end) {
		result = multierror.Append(result, fmt.Errorf("start_date %s is after end_date %s", start, end))
	}

	return result.ErrorOrNil()
}

func (c *Config) validateCommon() []error {
	var errs []error
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout))
	}
	if c.RunTimeout <= 0 {
		errs = append(errs, fmt.Errorf("run_timeout must be positive, got %s", c.RunTimeout))
	}
	if _, err := insight.NewClient(c.InsightOptions()); err != nil {
		errs = append(errs, fmt.Errorf("base_url: %w", err))
	}
	return errs
}

func checkDestination(name, dest string) error {
	if strings.TrimSpace(dest) == "" {
		return fmt.Errorf("%s is required", name)
	}
	if _, err := infra.ParseDestination(dest); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Period returns the configured date type. Call ValidateKeywordRanks first.
func (c *Config) Period() window.Period {
	return window.Period(strings.TrimSpace(c.DateType))
}

// StartDay parses StartDate.
func (c *Config) StartDay() (civil.Date, error) {
	if strings.TrimSpace(c.StartDate) == "" {
		return civil.Date{}, errors.New("start_date is required")
	}
	d, err := window.ParseDate(c.StartDate)
	if err != nil {
		return civil.Date{}, fmt.Errorf("start_date: %w", err)
	}
	return d, nil
}

// EndDay parses EndDate.
func (c *Config) EndDay() (civil.Date, error) {
	if strings.TrimSpace(c.EndDate) == "" {
		return civil.Date{}, errors.New("end_date is required")
	}
	d, err := window.ParseDate(c.EndDate)
	if err != nil {
		return civil.Date{}, fmt.Errorf("end_date: %w", err)
	}
	return d, nil
}

// WarehouseConfig returns the BigQuery settings.
func (c *Config) WarehouseConfig() infra.WarehouseConfig {
	return infra.WarehouseConfig{
		ProjectID:       c.ProjectID,
		CredentialsFile: c.CredentialsFile,
		StagingBucket:   c.StagingBucket,
		StagingPrefix:   c.StagingPrefix,
	}
}

// InsightOptions returns the endpoint client settings.
func (c *Config) InsightOptions() insight.Options {
	return insight.Options{
		BaseURL:   c.BaseURL,
		Referer:   c.Referer,
		UserAgent: c.UserAgent,
		Timeout:   c.HTTPTimeout,
	}
}
