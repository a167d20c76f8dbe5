// Command nfsmirror serves configured local directories as a single NFSv3
// export over TCP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/benignx/nfsmirror/internal/daemon"
	"github.com/benignx/nfsmirror/internal/logger"
	"github.com/benignx/nfsmirror/internal/server"
	"github.com/benignx/nfsmirror/pkg/config"
	"github.com/benignx/nfsmirror/pkg/vfs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nfsmirror: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to TOML configuration file")
	ip := flag.String("ip", "", "listen address")
	port := flag.Int("port", 0, "listen port")
	logLevel := flag.String("log-level", "", "log level (trace, debug, info, warn, error)")
	verbose := flag.Bool("verbose", false, "force debug logging")
	readOnly := flag.Bool("read-only", false, "refuse all writes")
	maxConnections := flag.Int("max-connections", 0, "concurrent connection cap (0 = unlimited)")
	readTimeout := flag.Duration("read-timeout", 0, "per-request read deadline")
	writeTimeout := flag.Duration("write-timeout", 0, "per-reply write deadline")
	allowIPs := flag.String("allow-ips", "", "comma-separated client allow-list (IPs or CIDRs)")
	pidFile := flag.String("pid-file", "", "write process id to this file")
	workDir := flag.String("work-dir", "", "change working directory before serving")
	generateConfig := flag.Bool("generate-config", false, "write an example configuration and exit")
	flag.Parse()

	if *generateConfig {
		path := *configPath
		if path == "" {
			path = "nfsmirror.toml"
		}
		if err := config.WriteExample(path); err != nil {
			return err
		}
		fmt.Printf("Example configuration written to %s\n", path)
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	// Flags override file and environment values, but only the flags that
	// were actually set.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ip":
			cfg.Server.IP = *ip
		case "port":
			cfg.Server.Port = *port
		case "log-level":
			cfg.Server.LogLevel = strings.ToLower(*logLevel)
		case "verbose":
			cfg.Server.Verbose = *verbose
		case "read-only":
			cfg.Server.ReadOnly = *readOnly
		case "max-connections":
			cfg.Server.MaxConnections = *maxConnections
		case "read-timeout":
			cfg.Server.ReadTimeout = *readTimeout
		case "write-timeout":
			cfg.Server.WriteTimeout = *writeTimeout
		case "allow-ips":
			cfg.Server.AllowIPs = splitList(*allowIPs)
		case "pid-file":
			cfg.Server.PidFile = *pidFile
		case "work-dir":
			cfg.Server.WorkDir = *workDir
		}
	})
	if cfg.Server.Verbose {
		cfg.Server.LogLevel = "debug"
	}

	// A bare directory argument exports that directory as the whole tree.
	if dir := flag.Arg(0); dir != "" {
		cfg.Mounts = []config.MountConfig{{
			Source:      dir,
			Target:      "/",
			Description: "command line",
		}}
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger.SetLevel(cfg.Server.LogLevel)

	if cfg.Server.WorkDir != "" {
		if err := daemon.ChangeWorkDir(cfg.Server.WorkDir); err != nil {
			return err
		}
	}
	if cfg.Server.PidFile != "" {
		if err := daemon.WritePidFile(cfg.Server.PidFile); err != nil {
			return err
		}
		defer daemon.RemovePidFile(cfg.Server.PidFile)
	}

	v, err := buildVFS(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		IP:             cfg.Server.IP,
		Port:           cfg.Server.Port,
		MaxConnections: cfg.Server.MaxConnections,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
	}, v)
	if err != nil {
		return err
	}

	printBanner(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		// Serve returns once the drain completes.
		if err := <-errCh; err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func buildVFS(cfg *config.Config) (*vfs.VFS, error) {
	entries := make([]vfs.MountEntry, 0, len(cfg.Mounts))
	for _, m := range cfg.Mounts {
		entries = append(entries, vfs.MountEntry{
			Source:      m.Source,
			Target:      m.Target,
			ReadOnly:    m.ReadOnly,
			Description: m.Description,
		})
	}

	registry, err := vfs.NewMountRegistry(entries)
	if err != nil {
		return nil, err
	}
	policy, err := vfs.NewAccessPolicy(cfg.Server.ReadOnly, cfg.Server.AllowIPs)
	if err != nil {
		return nil, err
	}
	return vfs.New(registry, policy), nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func printBanner(cfg *config.Config) {
	fmt.Printf("nfsmirror serving %d mount(s) on %s:%d\n",
		len(cfg.Mounts), cfg.Server.IP, cfg.Server.Port)
	for _, m := range cfg.Mounts {
		mode := "rw"
		if m.ReadOnly || cfg.Server.ReadOnly {
			mode = "ro"
		}
		fmt.Printf("  %s -> %s (%s)\n", m.Source, m.Target, mode)
	}
	fmt.Printf("\nMount with:\n  mount -t nfs -o nolocks,vers=3,tcp,port=%d,mountport=%d %s:/ /mnt/nfsmirror\n\n",
		cfg.Server.Port, cfg.Server.Port, cfg.Server.IP)
}
