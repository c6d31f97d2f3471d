package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	aerospike "github.com/cuemby/aerospike-go"
	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/log"
	"github.com/cuemby/aerospike-go/pkg/ops"
	"github.com/cuemby/aerospike-go/pkg/policy"
	"github.com/cuemby/aerospike-go/pkg/types"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithComponent("cli").Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aero-cli",
	Short: "aero-cli - a minimal quickstart client for Aerospike",
	Long: `aero-cli is a tiny example client built on top of this module's
Aerospike client library. It demonstrates Put, Get, and Scan against a
live cluster; it is not a load-generation or benchmarking tool.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"aero-cli version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "", "Optional YAML config file supplying defaults for the flags below")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("hosts", "127.0.0.1:3000", "Comma-separated seed hosts (host[:tls-name][:port])")
	rootCmd.PersistentFlags().String("namespace", "test", "Namespace to operate against")
	rootCmd.PersistentFlags().Duration("timeout", 1*time.Second, "Per-command total timeout")

	cobra.OnInitialize(applyConfigFile, initLogging)

	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(scanCmd)
}

// applyConfigFile fills any flag the user didn't set on the command line
// from --config, so a config file can supply defaults without a flag
// override ever losing to it.
func applyConfigFile() {
	path, _ := rootCmd.PersistentFlags().GetString("config")
	if path == "" {
		return
	}
	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	flags := rootCmd.PersistentFlags()
	if cfg.Hosts != "" && !flags.Changed("hosts") {
		_ = flags.Set("hosts", cfg.Hosts)
	}
	if cfg.Namespace != "" && !flags.Changed("namespace") {
		_ = flags.Set("namespace", cfg.Namespace)
	}
	if cfg.Timeout != 0 && !flags.Changed("timeout") {
		_ = flags.Set("timeout", cfg.Timeout.String())
	}
	if cfg.LogLevel != "" && !flags.Changed("log-level") {
		_ = flags.Set("log-level", cfg.LogLevel)
	}
	if cfg.LogJSON && !flags.Changed("log-json") {
		_ = flags.Set("log-json", "true")
	}
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// commandLogger builds a child logger scoped to one CLI invocation: the
// log.WithCommand logger with a "namespace" field added (the same field
// log.WithNamespace sets), rather than the bare global logger.
func commandLogger(command, namespace string) zerolog.Logger {
	return log.WithCommand(command).With().Str("namespace", namespace).Logger()
}

// logCommandError reports err at Error level, adding the originating
// node via log.WithNodeID when the client attributed the failure to one.
func logCommandError(cmdLog zerolog.Logger, err error) {
	var ae *aeroerr.Error
	if errors.As(err, &ae) && ae.Node != "" {
		log.WithNodeID(ae.Node).Error().Err(err).Msg("command failed")
		return
	}
	cmdLog.Error().Err(err).Msg("command failed")
}

// connect resolves the --hosts flag into a Client using the library's
// default cluster and command policies, setting the default policy's
// total timeout from --timeout.
func connect(cmd *cobra.Command) (*aerospike.Client, policy.Policy, error) {
	hosts, _ := cmd.Flags().GetString("hosts")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	clientPolicy := policy.DefaultClientPolicy()
	defaultPolicy := policy.DefaultPolicy()
	defaultPolicy.TotalTimeout = timeout

	ctx, cancel := context.WithTimeout(context.Background(), clientPolicy.ConnectionTimeout)
	defer cancel()

	c, err := aerospike.New(ctx, hosts, clientPolicy, defaultPolicy, log.Logger)
	if err != nil {
		return nil, policy.Policy{}, fmt.Errorf("connect to %s: %w", hosts, err)
	}
	return c, defaultPolicy, nil
}

var putCmd = &cobra.Command{
	Use:   "put <set> <key> <bin>=<value> [<bin>=<value> ...]",
	Short: "Write one or more bins to a record",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		setName, userKey := args[0], args[1]
		cmdLog := commandLogger("put", namespace)

		bins := make([]*types.Bin, 0, len(args)-2)
		for _, raw := range args[2:] {
			name, value, ok := strings.Cut(raw, "=")
			if !ok {
				return fmt.Errorf("invalid bin assignment %q, expected name=value", raw)
			}
			bins = append(bins, &types.Bin{Name: name, Value: types.StringValue(value)})
		}

		c, pol, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close(5 * time.Second)

		key, err := types.NewKey(namespace, setName, types.StringValue(userKey))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), pol.TotalTimeout+pol.SocketTimeout)
		defer cancel()

		if err := c.Put(ctx, key, bins, policy.Policy{}); err != nil {
			logCommandError(cmdLog, err)
			return fmt.Errorf("put failed: %w", err)
		}
		cmdLog.Debug().Str("set", setName).Int("bins", len(bins)).Msg("put succeeded")
		fmt.Printf("✓ wrote %d bin(s) to %s/%s/%s\n", len(bins), namespace, setName, userKey)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <set> <key>",
	Short: "Read every bin of a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		setName, userKey := args[0], args[1]
		cmdLog := commandLogger("get", namespace)

		c, pol, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close(5 * time.Second)

		key, err := types.NewKey(namespace, setName, types.StringValue(userKey))
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), pol.TotalTimeout+pol.SocketTimeout)
		defer cancel()

		record, err := c.Get(ctx, key, ops.BinSelector{Mode: ops.BinSelectorAll}, policy.Policy{})
		if err != nil {
			logCommandError(cmdLog, err)
			return fmt.Errorf("get failed: %w", err)
		}

		fmt.Printf("generation=%d expiration=%d\n", record.Generation, record.Expiration)
		for _, bin := range record.Bins {
			fmt.Printf("  %s: %s\n", bin.Name, bin.Value.String())
		}
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan <set>",
	Short: "Stream every record of a namespace/set to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, _ := cmd.Flags().GetString("namespace")
		setName := args[0]
		cmdLog := commandLogger("scan", namespace)

		c, _, err := connect(cmd)
		if err != nil {
			return err
		}
		defer c.Close(5 * time.Second)

		ctx := context.Background()
		stream, err := c.Scan(ctx, namespace, setName, ops.BinSelector{Mode: ops.BinSelectorAll}, policy.Policy{})
		if err != nil {
			logCommandError(cmdLog, err)
			return fmt.Errorf("scan failed: %w", err)
		}

		count := 0
		for result := range stream {
			if result.Err != nil {
				logCommandError(cmdLog, result.Err)
				return fmt.Errorf("scan stream error: %w", result.Err)
			}
			count++
			fmt.Printf("record %d: generation=%d bins=%d\n", count, result.Record.Generation, len(result.Record.Bins))
		}
		cmdLog.Debug().Int("records", count).Msg("scan succeeded")
		fmt.Printf("✓ scanned %d record(s)\n", count)
		return nil
	},
}
