// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package config loads the gateway's runtime configuration: the HTTP server,
the four fallback-chain providers and their vendor HTTP settings, and every
ambient subsystem (context store, web search, strategy cache, rate
limiting, accounting, relevance planning, embeddings, logging, telemetry).
Configuration is merged "defaults -> YAML file -> environment variables",
in that priority.

# Core structures

  - Config: top-level configuration aggregate
  - Loader: builder-style loader supporting chained config path, env prefix,
    and custom validators

# Capabilities

  - Multi-source loading: YAML file, environment variables (PROMPTGATE_
    prefix), and built-in defaults
  - Config validation: built-in sanity checks plus custom func(*Config) error
    validators registered with WithValidator

# Usage

	cfg, err := config.NewLoader().
	    WithConfigPath("config.yaml").
	    WithEnvPrefix("PROMPTGATE").
	    Load()
*/
package config
