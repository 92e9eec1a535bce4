package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaycore/agentrt/internal/agentrt/config"
	"github.com/relaycore/agentrt/internal/agentrt/depmgr"
	"github.com/relaycore/agentrt/internal/agentrt/memory"
	"github.com/relaycore/agentrt/internal/agentrt/model"
	"github.com/relaycore/agentrt/internal/agentrt/safety"
	"github.com/relaycore/agentrt/internal/agentrt/startupguard"
	"github.com/relaycore/agentrt/internal/agentrt/tool"
)

func buildToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the tool catalogue",
	}
	cmd.AddCommand(buildToolsListCmd())
	return cmd
}

func buildToolsListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured tools and their categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			stateDir, err := configDir()
			if err != nil {
				return err
			}
			mem, err := buildMemoryStore(cfg, stateDir)
			if err != nil {
				return err
			}

			guardPath := cfg.StartupGuard.Path
			if guardPath == "" {
				guardPath = filepath.Join(stateDir, "crash_guard.json")
			}
			guard := startupguard.New(guardPath, cfg.StartupGuard.Threshold,
				time.Duration(cfg.StartupGuard.WindowSec)*time.Second)

			registry := tool.NewRegistry()
			registry.SetDegraded(guard.Check(time.Now()))
			registerTools(registry, nil, safety.New(safety.DefaultConfig()), mem, newLogger(false))

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORY\tDESCRIPTION")
			for _, t := range registry.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name(), t.Category(), t.CompactDescription())
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "Path to YAML configuration file")
	return cmd
}

func buildDepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Inspect managed external dependencies",
	}
	cmd.AddCommand(buildDepsStatusCmd())
	return cmd
}

func buildDepsStatusCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the dependency registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			depsDir := cfg.DepsDir
			if depsDir == "" {
				stateDir, err := configDir()
				if err != nil {
					return err
				}
				depsDir = filepath.Join(stateDir, "deps")
			}
			mgr, err := depmgr.New(depsDir, depmgr.NewShellFetcher(), newLogger(false))
			if err != nil {
				return err
			}
			entries := mgr.Entries()
			if len(entries) == 0 {
				fmt.Println("no dependencies installed")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tVERSION\tRUNNING\tPID")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%d\n", e.Name, e.Kind, e.Version, e.Running, e.PID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "Path to YAML configuration file")
	return cmd
}

func buildMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Export or import long-term memory snapshots",
	}
	cmd.AddCommand(buildMemoryExportCmd(), buildMemoryImportCmd())
	return cmd
}

func openMemory(configPath string) (*memory.Store, string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", err
	}
	stateDir, err := configDir()
	if err != nil {
		return nil, "", err
	}
	store, err := buildMemoryStore(cfg, stateDir)
	if err != nil {
		return nil, "", err
	}
	return store, filepath.Join(stateDir, "memory", "snapshot.json"), nil
}

func buildMemoryExportCmd() *cobra.Command {
	var configPath, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all memory entries to a JSON snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, defaultPath, err := openMemory(configPath)
			if err != nil {
				return err
			}
			if out == "" {
				out = defaultPath
			}
			data, err := json.MarshalIndent(store.Export(), "", "  ")
			if err != nil {
				return err
			}
			tmp := out + ".tmp"
			if err := os.WriteFile(tmp, data, 0o644); err != nil {
				return err
			}
			if err := os.Rename(tmp, out); err != nil {
				return err
			}
			fmt.Printf("exported %d entries to %s\n", store.Summary().EntryCount, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "Path to YAML configuration file")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Snapshot path (default <state dir>/memory/snapshot.json)")
	return cmd
}

func buildMemoryImportCmd() *cobra.Command {
	var configPath, in string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load memory entries from a JSON snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, defaultPath, err := openMemory(configPath)
			if err != nil {
				return err
			}
			if in == "" {
				in = defaultPath
			}
			data, err := os.ReadFile(in)
			if err != nil {
				return err
			}
			var entries []model.MemoryEntry
			if err := json.Unmarshal(data, &entries); err != nil {
				return fmt.Errorf("parse snapshot %s: %w", in, err)
			}
			if err := store.Import(entries, overwrite); err != nil {
				return err
			}
			fmt.Printf("imported %d entries from %s\n", len(entries), in)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigFile, "Path to YAML configuration file")
	cmd.Flags().StringVarP(&in, "in", "i", "", "Snapshot path (default <state dir>/memory/snapshot.json)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace entries whose key already exists")
	return cmd
}
