package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/ferry/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify ferry configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/ferry/config.yaml
Project-specific overrides can be placed in .ferry.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

func displayAllConfig(cfg *config.Config) {
	fmt.Printf("retention_days:   %d\n", cfg.RetentionDays)
	fmt.Printf("active_capacity:  %d", cfg.ActiveCapacity)
	if cfg.ActiveCapacity == 0 {
		fmt.Print(" (unbounded)")
	}
	fmt.Println()
	fmt.Printf("watch_interval:   %s\n", cfg.WatchInterval)
	fmt.Printf("promotion_order:  %s\n", cfg.PromotionOrder)
	fmt.Printf("log_path:         %s\n", orUnset(cfg.LogPath))
	fmt.Printf("storage.backend:  %s\n", cfg.Storage.Backend)
	fmt.Printf("storage.dir:      %s\n", cfg.Storage.Dir)
	fmt.Printf("anthropic.api_key: %s (from %s)\n",
		config.MaskAPIKey(cfg.Anthropic.APIKey), config.GetAPIKeySource(cfg))
	fmt.Printf("smart.enabled:    %t\n", cfg.Smart.Enabled)
	fmt.Printf("smart.model:      %s\n", orUnset(cfg.Smart.Model))
	fmt.Printf("aws.bedrock:      %t\n", cfg.AWS.Bedrock)
	if cfg.AWS.Bedrock {
		fmt.Printf("aws.region:       %s\n", orUnset(cfg.AWS.Region))
		fmt.Printf("aws.profile:      %s\n", orUnset(cfg.AWS.Profile))
	}

	fmt.Printf("\nUser config:    %s\n", config.GetUserConfigPath())
	if project := config.GetProjectConfigPath(); project != "" {
		fmt.Printf("Project config: %s\n", project)
	}
}

func displayConfigKey(cfg *config.Config, key string) {
	switch key {
	case "retention_days":
		fmt.Println(cfg.RetentionDays)
	case "active_capacity":
		fmt.Println(cfg.ActiveCapacity)
	case "watch_interval":
		fmt.Println(cfg.WatchInterval)
	case "promotion_order":
		fmt.Println(cfg.PromotionOrder)
	case "log_path":
		fmt.Println(cfg.LogPath)
	case "storage.backend":
		fmt.Println(cfg.Storage.Backend)
	case "storage.dir":
		fmt.Println(cfg.Storage.Dir)
	case "anthropic.api_key":
		fmt.Println(config.MaskAPIKey(cfg.Anthropic.APIKey))
	case "smart.enabled":
		fmt.Println(cfg.Smart.Enabled)
	case "smart.model":
		fmt.Println(cfg.Smart.Model)
	case "aws.bedrock":
		fmt.Println(cfg.AWS.Bedrock)
	case "aws.region":
		fmt.Println(cfg.AWS.Region)
	case "aws.profile":
		fmt.Println(cfg.AWS.Profile)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
}

func setConfigKey(cfg *config.Config, key, value string) {
	var err error
	switch key {
	case "retention_days":
		cfg.RetentionDays, err = strconv.Atoi(value)
	case "active_capacity":
		cfg.ActiveCapacity, err = strconv.Atoi(value)
	case "watch_interval":
		cfg.WatchInterval, err = time.ParseDuration(value)
	case "promotion_order":
		if value != "fifo" && value != "newest" {
			err = fmt.Errorf("want fifo or newest")
		} else {
			cfg.PromotionOrder = value
		}
	case "log_path":
		cfg.LogPath = value
	case "storage.backend":
		if value != "files" && value != "sqlite" {
			err = fmt.Errorf("want files or sqlite")
		} else {
			cfg.Storage.Backend = value
		}
	case "storage.dir":
		cfg.Storage.Dir = value
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "smart.enabled":
		cfg.Smart.Enabled, err = strconv.ParseBool(value)
	case "smart.model":
		cfg.Smart.Model = value
	case "aws.bedrock":
		cfg.AWS.Bedrock, err = strconv.ParseBool(value)
	case "aws.region":
		cfg.AWS.Region = value
	case "aws.profile":
		cfg.AWS.Profile = value
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid value for %s: %v\n", key, err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s = %s\n", key, value)
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
