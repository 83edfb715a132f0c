// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package config

const (
	// Command line option keys
	ConfigFileKey = "config-file"
	VersionKey    = "version"
	HelpKey       = "help"

	// Top-level configuration keys
	LogLevelKey            = "log-level"
	RequestTimeoutKey      = "request-timeout"
	MaxRetryElapsedTimeKey = "max-retry-elapsed-time"
	ApprovalConcurrencyKey = "approval-concurrency"
)
