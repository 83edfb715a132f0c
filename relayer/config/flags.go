// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "github.com/spf13/pflag"

// BuildFlagSet returns the relayer's command line flags
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("gateway-relayer", pflag.ContinueOnError)
	fs.String(ConfigFileKey, "", "Specifies the relayer config file")
	fs.Bool(VersionKey, false, "Display the version and exit")
	fs.Bool(HelpKey, false, "Display usage text and exit")
	fs.String(LogLevelKey, "", "Overrides the configured log level")
	return fs
}
