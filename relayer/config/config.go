// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config loads relayer configuration from a json file, environment
// variables and command line flags.
package config

import (
	"fmt"
	"time"
)

const (
	defaultLogLevel            = "info"
	defaultRequestTimeout      = 30 * time.Second
	defaultMaxRetryElapsedTime = 30 * time.Second
	defaultApprovalConcurrency = 8
)

var logLevels = map[string]struct{}{
	"trace": {},
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
	"fatal": {},
}

const usageText = `
Usage:
gateway-relayer --config-file <path>  Run the relayer with the given config file
gateway-relayer --version             Print the version and exit
gateway-relayer --help                Print this text and exit
`

// Config is the relayer's top-level configuration
type Config struct {
	LogLevel            string        `mapstructure:"log-level" json:"log-level"`
	RequestTimeout      time.Duration `mapstructure:"request-timeout" json:"request-timeout"`
	MaxRetryElapsedTime time.Duration `mapstructure:"max-retry-elapsed-time" json:"max-retry-elapsed-time"`
	ApprovalConcurrency int           `mapstructure:"approval-concurrency" json:"approval-concurrency"`
}

// Validate checks every configured value is usable
func (c *Config) Validate() error {
	if _, ok := logLevels[c.LogLevel]; !ok {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout %s must be positive", c.RequestTimeout)
	}
	if c.MaxRetryElapsedTime <= 0 {
		return fmt.Errorf("max retry elapsed time %s must be positive", c.MaxRetryElapsedTime)
	}
	if c.ApprovalConcurrency <= 0 {
		return fmt.Errorf("approval concurrency %d must be positive", c.ApprovalConcurrency)
	}
	return nil
}

// DisplayUsageText prints the relayer usage text
func DisplayUsageText() {
	fmt.Printf("%s\n", usageText)
}
