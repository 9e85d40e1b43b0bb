package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// settingKind is the type a config key must hold.
type settingKind int

const (
	kindBool settingKind = iota
	kindInt
	kindString
)

// setting describes one key accepted in ~/.vibe-dedup.yaml.
type setting struct {
	kind settingKind
	min  int // lowest accepted value for kindInt
	help string
}

var settings = map[string]setting{
	"umi-field":   {kind: kindInt, min: -1, help: "0-based read name token holding the UMI, -1 for the last"},
	"strict-sort": {kind: kindBool, help: "abort when a chromosome reappears after its block ended"},
	"workers":     {kind: kindInt, min: 0, help: "chromosome blocks processed in parallel, 0 for one per CPU"},
	"stats-db":    {kind: kindString, help: "DuckDB database recording run statistics"},
	"verbose":     {kind: kindBool, help: "log debug messages"},
}

// dedupSettings are the config-backed values a dedup run uses.
type dedupSettings struct {
	umiField   int
	strictSort bool
	workers    int
	statsDB    string
	verbose    bool
}

// loadSettings resolves the dedup settings from flags, environment and
// config file. A value of the wrong type is a usage error, never a zero.
func loadSettings() (dedupSettings, error) {
	var (
		s   dedupSettings
		err error
	)
	get := func(key string) any {
		if err != nil {
			return nil
		}
		var v any
		v, err = convertSetting(key, viper.Get(key))
		return v
	}

	umiField, strictSort, workers := get("umi-field"), get("strict-sort"), get("workers")
	statsDB, verbose := get("stats-db"), get("verbose")
	if err != nil {
		return s, usageError{fmt.Errorf("invalid configuration: %w", err)}
	}

	s.umiField = umiField.(int)
	s.strictSort = strictSort.(bool)
	s.workers = workers.(int)
	s.statsDB = statsDB.(string)
	s.verbose = verbose.(bool)
	return s, nil
}

// convertSetting checks raw against the type and range of key.
// Unset keys resolve to their zero value.
func convertSetting(key string, raw any) (any, error) {
	st, ok := settings[key]
	if !ok {
		return nil, unknownKeyError(key)
	}

	switch st.kind {
	case kindBool:
		if s, ok := raw.(string); ok {
			switch strings.ToLower(s) {
			case "yes", "on":
				raw = true
			case "no", "off":
				raw = false
			}
		}
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false, got %v", key, raw)
		}
		return b, nil
	case kindInt:
		if raw == nil {
			return 0, nil
		}
		n, err := cast.ToIntE(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer, got %v", key, raw)
		}
		if n < st.min {
			return nil, fmt.Errorf("%s must be at least %d, got %d", key, st.min, n)
		}
		return n, nil
	default:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a string, got %v", key, raw)
		}
		return s, nil
	}
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown key %q (known keys: %s)", key, strings.Join(settingNames(), ", "))
}

func settingNames() []string {
	names := make([]string, 0, len(settings))
	for name := range settings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newConfigCmd() *cobra.Command {
	var help strings.Builder
	for _, name := range settingNames() {
		fmt.Fprintf(&help, "  %-12s %s\n", name, settings[name].help)
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-dedup configuration",
		Long: "Show, get, or set configuration values. Config is stored in ~/.vibe-dedup.yaml.\n\nKeys:\n" +
			help.String(),
		Example: `  vibe-dedup config                        # show all config
  vibe-dedup config set strict-sort true   # always enable the sort guard
  vibe-dedup config set umi-field 7        # take the UMI from the 8th name token
  vibe-dedup config get stats-db           # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, args[0])
		},
	}
}

// runConfigShow prints the known keys that have a value.
func runConfigShow(cmd *cobra.Command) error {
	values := make(map[string]any)
	for _, name := range settingNames() {
		if viper.IsSet(name) {
			values[name] = viper.Get(name)
		}
	}
	if len(values) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "# No configuration set. Config file: ~/.vibe-dedup.yaml")
		return nil
	}

	out, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

// runConfigSet validates value against key and writes the config file.
// Only known keys are written back.
func runConfigSet(cmd *cobra.Command, key, value string) error {
	v, err := convertSetting(key, value)
	if err != nil {
		return usageError{err}
	}

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		cfgFile, err = defaultConfigPath()
		if err != nil {
			return err
		}
	}

	// A fresh viper keeps bound flag defaults out of the file.
	out := viper.New()
	for _, name := range settingNames() {
		if viper.InConfig(name) {
			out.Set(name, viper.Get(name))
		}
	}
	out.Set(key, v)
	viper.Set(key, v)

	if err := out.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v in %s\n", key, v, cfgFile)
	return nil
}

func runConfigGet(cmd *cobra.Command, key string) error {
	if _, ok := settings[key]; !ok {
		return usageError{unknownKeyError(key)}
	}
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}
