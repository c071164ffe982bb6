// Package config provides configuration management for clusterdash.
//
// Configuration is loaded and merged in the following order, later sources
// overriding earlier ones:
//
//  1. Default configuration (GetDefaultConfig)
//  2. User configuration (~/.config/clusterdash/config.yaml)
//  3. Project configuration (./.clusterdash/config.yaml)
//  4. CLUSTERDASH_* variables from ./.env, then from the process environment
//
// A path passed with --config replaces layers 2 and 3.
//
// # Configuration Structure
//
//	seed: "10.0.0.1:8081"
//	channel:
//	  heartbeatInterval: 5s
//	  reconnect:
//	    initialDelay: 0s        # immediate reconnect, no throttling
//	    maxConsecutiveFailures: 10
//	    cooldown: 1m
//	logs:
//	  maxRecordsPerNode: 0      # unbounded
//	commands:
//	  strictCorrelation: false  # most recent result wins
//	ui:
//	  logTemplate: "@processedAt@ @data@"
//
// Templates use @field@ markers; see package template.
package config
