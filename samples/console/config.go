// Copyright (c) Microsoft. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"gopkg.in/yaml.v3"

	"github.com/microsoft/teams-ai/go/openai"
)

// Config is the sample's configuration. Values come from the YAML file
// first and are then overridden by environment variables.
type Config struct {
	// OpenAI
	APIKey       string `yaml:"api_key"`
	Organization string `yaml:"organization"`

	// Azure OpenAI. When Endpoint is set the Azure API is used, with
	// AzureKey or, if empty, DefaultAzureCredential.
	Endpoint   string `yaml:"endpoint"`
	AzureKey   string `yaml:"azure_key"`
	APIVersion string `yaml:"api_version"`

	AssistantID     string `yaml:"assistant_id"`
	Model           string `yaml:"model"`
	Instructions    string `yaml:"instructions"`
	Streaming       bool   `yaml:"streaming"`
	Moderate        bool   `yaml:"moderate"`
	ModerationModel string `yaml:"moderation_model"`
	MaxSteps        int    `yaml:"max_steps"`
	Database        string `yaml:"database"`
}

func defaultConfig() *Config {
	return &Config{
		APIVersion:   "2024-05-01-preview",
		Model:        "gpt-4o",
		Instructions: "You are a helpful assistant. Use the get_weather tool for weather questions. Keep answers short.",
		Streaming:    true,
		MaxSteps:     25,
		Database:     "teams-ai.db",
	}
}

// loadConfig reads path, if it exists, and applies environment overrides.
// Environment references in the file such as ${HOME} are expanded.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg, os.Getenv)
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Organization, "OPENAI_ORGANIZATION")
	setString(&cfg.Endpoint, "AZURE_OPENAI_ENDPOINT")
	setString(&cfg.AzureKey, "AZURE_OPENAI_KEY")
	setString(&cfg.APIVersion, "AZURE_OPENAI_API_VERSION")
	setString(&cfg.AssistantID, "ASSISTANT_ID")
	setString(&cfg.Model, "OPENAI_MODEL")
	setString(&cfg.Database, "TEAMS_AI_DB")

	if v := getenv("STREAMING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Streaming = b
		}
	}
}

// newClient creates an OpenAI client, choosing between Azure OpenAI and
// direct OpenAI based on the configuration.
func newClient(cfg *Config) (*openai.Client, error) {
	opts := []openai.Option{openai.WithModerationModel(cfg.ModerationModel)}

	if cfg.Endpoint != "" {
		opts = append(opts,
			openai.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")+"/openai"),
			openai.WithAPIVersion(cfg.APIVersion),
		)
		if cfg.AzureKey != "" {
			// Azure uses the api-key header instead of a bearer token.
			opts = append(opts, openai.WithHeaders(map[string]string{"api-key": cfg.AzureKey}))
			return openai.New("", opts...), nil
		}
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("create azure credential: %w", err)
		}
		return openai.New("", append(opts, openai.WithAzureCredential(cred))...), nil
	}

	if cfg.APIKey == "" {
		return nil, errors.New("set OPENAI_API_KEY or AZURE_OPENAI_ENDPOINT")
	}
	if cfg.Organization != "" {
		opts = append(opts, openai.WithOrganization(cfg.Organization))
	}
	return openai.New(cfg.APIKey, opts...), nil
}
