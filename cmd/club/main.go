package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"it-network/internal/application/session"
	sessionDomain "it-network/internal/domain/session"
	"it-network/internal/infrastructure/config"
	"it-network/internal/infrastructure/external/clubapi"
	"it-network/internal/infrastructure/storage"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	apiURL := flag.String("api", "", "club API base URL (overrides client.base_url)")
	verbose := flag.Bool("v", false, "log session activity to stderr")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.LoadFromFile(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if *apiURL != "" {
		cfg.Client.BaseURL = *apiURL
	}

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, logger, flag.Args()))
}

func run(ctx context.Context, cfg config.Config, logger *log.Logger, args []string) int {
	store, err := storage.OpenSQLite(cfg.Client.StoragePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open local storage: %v\n", err)
		return 1
	}
	defer store.Close()

	jar, err := storage.NewPersistentJar(ctx, store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cookie jar: %v\n", err)
		return 1
	}
	httpClient := &http.Client{Jar: jar, Timeout: cfg.Client.Timeout}
	baseURL := strings.TrimRight(cfg.Client.BaseURL, "/")

	m := session.NewManager(clubapi.NewClient(baseURL, httpClient), httpClient, store, session.Options{
		RefreshOnForbidden: cfg.Client.RefreshOn403(),
		CoalesceRefresh:    cfg.Client.CoalesceRefresh,
		Logger:             logger,
		OnChange: func(st sessionDomain.State) {
			logger.Printf("[Session] state -> %s", st.Status)
		},
	})
	defer m.Close()

	st := m.Bootstrap(ctx)
	logger.Printf("[Session] bootstrap: %s", st.Status)

	a := &app{
		session: m,
		boards:  clubapi.NewBoardClient(baseURL+"/api", m),
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}
	if err := a.run(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errUsage) {
			usage()
			return 2
		}
		return 1
	}
	return 0
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: club [-config path] [-api url] [-v] <command> [args]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  club %s\n", commands[name].usage)
	}
	fmt.Fprintln(os.Stderr, "\nflags:")
	flag.PrintDefaults()
}
