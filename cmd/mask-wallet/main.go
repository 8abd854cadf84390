package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantumauth-io/quantum-go-utils/log"

	walletconfig "github.com/dimensiondev/mask-wallet-core/cmd/mask-wallet/config"
	"github.com/dimensiondev/mask-wallet-core/internal/addressbook"
	"github.com/dimensiondev/mask-wallet-core/internal/chains"
	"github.com/dimensiondev/mask-wallet-core/internal/gasfee"
	"github.com/dimensiondev/mask-wallet-core/internal/gasoracle"
	"github.com/dimensiondev/mask-wallet-core/internal/hiddenlist"
	wallethttp "github.com/dimensiondev/mask-wallet-core/internal/http"
	"github.com/dimensiondev/mask-wallet-core/internal/networks"
	"github.com/dimensiondev/mask-wallet-core/internal/nftscan"
	"github.com/dimensiondev/mask-wallet-core/internal/receipt"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg, err := walletconfig.Load(os.Args[1:])
	if err != nil {
		log.Fatal("failed to parse config", "error", err)
	}
	if cfg.PrintVersion {
		fmt.Printf("mask-wallet %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		return
	}

	log.Info("mask-wallet",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	networkMgr, err := networks.NewDefaultManager()
	if err != nil {
		log.Error("failed to resolve networks file", "error", err)
		return
	}
	if err = networkMgr.EnsureFromConfig(ctx, append(networks.DefaultNetworks(), cfg.Networks...)); err != nil {
		log.Error("failed to load networks", "path", networkMgr.Path(), "error", err)
		return
	}

	chainSvc := chains.NewService(ctx, chains.Config{
		PreferredRPCName: cfg.Chains.PreferredRPC,
		HeaderRefresh:    cfg.Chains.HeaderRefresh,
	}, networkMgr, nil)
	defer func() {
		if err = chainSvc.Close(); err != nil {
			log.Error("failed to close chain clients", "error", err)
		}
	}()

	oracle := gasoracle.New(chainSvc, networkMgr, gasoracle.Config{
		CacheTTL:      cfg.Gas.CacheTTL,
		CacheSize:     cfg.Gas.CacheSize,
		HistoryBlocks: cfg.Gas.HistoryBlocks,
	})

	baseURLs, err := cfg.NFTScanBaseURLs()
	if err != nil {
		log.Error("invalid nftscan config", "error", err)
		return
	}
	if cfg.NFTScan.APIKey == "" {
		log.Warn("nftscan api key not set, asset requests may be rate limited")
	}
	scan := nftscan.New(nftscan.Config{
		APIKey:          cfg.NFTScan.APIKey,
		BaseURLs:        baseURLs,
		VerifiedChainID: cfg.NFTScan.VerifiedChainID,
		Timeout:         cfg.NFTScan.Timeout,
		MaxRetryDelay:   cfg.NFTScan.MaxRetryDelay,
	})

	hidden, err := hiddenlist.NewDefaultStore()
	if err != nil {
		log.Error("failed to resolve hidden list file", "error", err)
		return
	}
	if err = hidden.Load(ctx); err != nil {
		log.Error("failed to load hidden list", "path", hidden.Path(), "error", err)
		return
	}

	book, err := addressbook.NewDefaultBook()
	if err != nil {
		log.Error("failed to resolve address book file", "error", err)
		return
	}
	if err = book.Load(ctx); err != nil {
		log.Error("failed to load address book", "error", err)
		return
	}

	handler := wallethttp.NewServer(ctx, wallethttp.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Encoder:        gasfee.NewEncoder(oracle, networkMgr),
		Oracle:         oracle,
		Networks:       networkMgr,
		Chains:         chainSvc,
		Source:         scan,
		Verified:       scan,
		Hidden:         hidden,
		AddressBook:    book,
		Receipts:       receipt.NewChecker(chainSvc),
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	} else {
		log.Info("HTTP server gracefully stopped")
	}
}
