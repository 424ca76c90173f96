package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dubalu/xapiand-go/pkg/backend"
	"github.com/dubalu/xapiand-go/pkg/cluster"
	"github.com/dubalu/xapiand-go/pkg/config"
	"github.com/dubalu/xapiand-go/pkg/log"
	"github.com/dubalu/xapiand-go/pkg/metrics"
	"github.com/dubalu/xapiand-go/pkg/raft"
	"github.com/dubalu/xapiand-go/pkg/remote"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run this node's binary remote protocol server and its HTTP metrics/health endpoints",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("config", "", "Path to the node's YAML config file")
	serveCmd.Flags().String("node-name", "", "Override config node.name")
	serveCmd.Flags().String("data-dir", "", "Override config node.data_dir")
	serveCmd.Flags().String("metrics-addr", "", "Address for the metrics/health HTTP server (default: config listen.address:listen.http_port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Init(cfg.LogConfig())

	if err := os.MkdirAll(cfg.Node.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	tempDir := filepath.Join(cfg.Node.DataDir, "tmp")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}

	var iface *net.Interface
	if cfg.Cluster.Interface != "" {
		iface, err = net.InterfaceByName(cfg.Cluster.Interface)
		if err != nil {
			return fmt.Errorf("resolving cluster.interface: %w", err)
		}
	}
	transport, err := raft.NewUDPTransport(cfg.Cluster.Multicast, iface)
	if err != nil {
		return fmt.Errorf("starting raft transport: %w", err)
	}

	mgr := cluster.New(cluster.Config{
		ClusterName:     cfg.Cluster.Name,
		Self:            cfg.Self(),
		Transport:       transport,
		DataDir:         cfg.Node.DataDir,
		Open:            openBoltBackend,
		PoolQuota:       cfg.Pool.Quota,
		CleanupInterval: cfg.CleanupInterval(),
		CleanupMaxIdle:  cfg.CleanupMaxIdle(),
	})

	ctx, cancelMgr := context.WithCancel(context.Background())
	mgr.Start(ctx)

	collector := metrics.NewCollector(mgr)
	collector.Start()

	metrics.SetVersion(Version)
	metrics.RegisterComponent("raft", true, "started")
	metrics.RegisterComponent("dbpool", true, "ready")
	metrics.RegisterComponent("remote", false, "starting")

	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	if metricsAddr == "" {
		metricsAddr = net.JoinHostPort(cfg.Listen.Address, strconv.Itoa(cfg.Listen.HTTPPort))
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	mux.Handle("/replicate", cluster.ReplicateHandler(mgr))
	httpServer := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics server error", err)
		}
	}()
	fmt.Printf("metrics endpoint:  http://%s/metrics\n", metricsAddr)
	fmt.Printf("health endpoints:  http://%s/health http://%s/ready http://%s/live\n", metricsAddr, metricsAddr, metricsAddr)
	fmt.Printf("replication trigger: POST http://%s/replicate?src=...&dst=...\n", metricsAddr)

	remoteServer := remote.NewServerFactory(cluster.NewRemoteHandlerFactory(mgr.Pool, mgr.Schema, mgr.Changes), tempDir)
	remoteAddr := net.JoinHostPort(cfg.Listen.Address, strconv.Itoa(cfg.Listen.BinaryPort))
	errCh := make(chan error, 1)
	go func() {
		if err := remoteServer.Start(remoteAddr); err != nil {
			errCh <- fmt.Errorf("remote server error: %w", err)
		}
	}()
	metrics.RegisterComponent("remote", true, "listening on "+remoteAddr)
	fmt.Printf("remote protocol listening on %s\n", remoteAddr)

	go joinSelfWhenLeader(mgr, cfg.Self())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		fmt.Println("shutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}

	_ = remoteServer.Stop()
	cancelMgr()
	mgr.Stop()
	collector.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	_ = transport.Close()

	fmt.Println("shutdown complete")
	return nil
}

func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	if name, _ := cmd.Flags().GetString("node-name"); name != "" {
		cfg.Node.Name = name
	}
	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.Node.DataDir = dataDir
	}
	return cfg, nil
}

// openBoltBackend adapts backend.OpenBoltBackend to dbpool.OpenFunc's
// interface-returning signature.
func openBoltBackend(dir string, spawn bool) (backend.IndexBackend, error) {
	return backend.OpenBoltBackend(dir, spawn)
}

// joinSelfWhenLeader retries AddCommand(self) until it succeeds, since
// a freshly started node has no leader to accept the command until
// Raft's own election timeout elects one (spec.md §4.I). The goroutine
// exits with the process on shutdown.
func joinSelfWhenLeader(mgr *cluster.Manager, self raft.Node) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		if err := mgr.Join(self); err == nil {
			return
		}
	}
}
