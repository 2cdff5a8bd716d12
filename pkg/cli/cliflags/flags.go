// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package cliflags describes the flags of the cubew command.
package cliflags

import "os"

// FlagInfo contains the static information for a CLI flag.
type FlagInfo struct {
	// Name of the flag as used on the command line.
	Name string
	// Shorthand is the short form of the flag (optional).
	Shorthand string
	// EnvVar is the name of the environment variable providing the default
	// (optional).
	EnvVar string
	// Description of the flag.
	Description string
}

// Usage returns the description, mentioning the environment variable if
// there is one.
func (f FlagInfo) Usage() string {
	if f.EnvVar == "" {
		return f.Description
	}
	return f.Description + " (env: " + f.EnvVar + ")"
}

// Default returns the value of the flag's environment variable, or def if it
// is unset.
func (f FlagInfo) Default(def string) string {
	if f.EnvVar != "" {
		if v, ok := os.LookupEnv(f.EnvVar); ok {
			return v
		}
	}
	return def
}

// Flags shared by the report-writing commands.
var (
	OutputDir = FlagInfo{
		Name:        "output-dir",
		Shorthand:   "o",
		EnvVar:      "CUBEW_OUTPUT_DIR",
		Description: `Directory the report is written to. It is created if missing.`,
	}

	Compressed = FlagInfo{
		Name:        "compressed",
		Description: `Compress rows with zlib and the anchor with gzip.`,
	}
)

// Flags of the gen command.
var (
	Config = FlagInfo{
		Name:        "config",
		Shorthand:   "c",
		EnvVar:      "CUBEW_CONFIG",
		Description: `YAML generator configuration. Fields left out keep their defaults.`,
	}

	Name = FlagInfo{
		Name:        "name",
		Description: `Report name, overriding the configuration.`,
	}

	Ranks = FlagInfo{
		Name:        "ranks",
		Description: `Number of concurrent ranks, overriding the configuration.`,
	}

	Seed = FlagInfo{
		Name:        "seed",
		Description: `Random seed, overriding the configuration.`,
	}

	MiscSize = FlagInfo{
		Name:        "misc-size",
		Description: `Size of the random misc data entry, e.g. 4KiB. Overrides the configuration.`,
	}

	DumpConfig = FlagInfo{
		Name:        "dump-config",
		Description: `Print the effective configuration as YAML instead of generating.`,
	}
)

// Flags of the example command.
var (
	Locations = FlagInfo{
		Name:        "locations",
		Description: `Number of locations of the systree example.`,
	}
)
