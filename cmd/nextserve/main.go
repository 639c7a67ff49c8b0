// Copyright 2025 The NextServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the next-word prediction server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

NextServe predicts the word a user is about to type. It combines an n-gram
frequency store (trigram, bigram, unigram backoff) with prefix completion
over the vocabulary, and tracks typed words so genuinely new words can be
recorded into a user dictionary. It can operate as a MessagePack IPC server
for integration with text editors, or as a CLI application for testing and
debugging.

The store is a read-only SQLite database produced by the ngrams tool from
plain text corpora. A Patricia trie over the vocabulary serves prefix
queries without touching the database, and hot query results are cached
per context.

# Usage

Start the server with default settings:

	nextserve

Use a custom store and enable debug mode:

	nextserve -store /path/to/ngrams.db -d

Run in CLI mode for interactive testing:

	nextserve -c -limit 10 -prmin 2

# Configuration

Runtime configuration is managed through a TOML file covering server
parameters, store locations, and prediction defaults:

	[server]
	max_limit = 64
	min_prefix = 1
	max_prefix = 60
	enable_filter = true
	capitalize = true

	[store]
	path = "ngrams.db"
	user_dict_path = "userdict.db"
	record_new = true

	[predict]
	default_limit = 8
	max_context = 2

The config file is automatically created with defaults if it doesn't exist.
The config op adjusts server parameters at runtime without a restart.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout. Requests carry
an op code; predictions are processed synchronously with microsecond
timing information included in responses.

Send a prediction request:

	{"id": "req1", "op": "predict", "w": "he", "p1": "will", "l": 8}

Receive ranked candidates:

	{"id": "req1", "r": [{"w": "help", "s": 120}, {"w": "hear", "s": 44}], "c": 2, "t": 145}

Feed typed words so the context tracker can record unknown ones:

	{"id": "u1", "op": "update", "w": "parkour", "b1": "will", "a1": "tomorrow"}

Other ops query the vocabulary (check, count, top), adjust configuration
(config), and probe liveness (health).

# Server Mode

The default mode starts a MessagePack IPC server that processes requests
from stdin and writes responses to stdout. This design enables integration
with text editors and other applications through process communication.

	srv := server.NewServer(store, recorder, config, configPath)
	err := srv.Start()

Each client session id gets its own context tracker, so several editor
panes can stream words through one process without crossing streams.

# CLI Mode

CLI mode provides an interactive interface for testing and debugging
prediction functionality. It reads phrases from stdin, treats the words
before the last one as context, and displays ranked predictions. Dot
commands expose vocabulary lookups and the unknown-word recorder.

	inputHandler := cli.NewInputHandler(session, dict, minLen, maxLen, limit, noFilter)
	err := inputHandler.Start()

This mode is primarily intended for development and testing new features
before deploying to server mode. It supports the same filtering and
folding logic as the server but with human-readable output.

# Prediction Engine

The core functionality is provided by the ngram and predict packages.
The store answers context queries with trigram to bigram to unigram
backoff; the session tracks typed words and decides when one is worth
recording.

	store, err := ngram.Open("ngrams.db")
	session := predict.NewSession(store, recorder)
	suggestions := session.Suggest("he", "", "will", 8)

A store that fails to open still serves: every query answers empty and
the fault is reported once at startup. The editor keeps running, just
without predictions.

# Command Line Flags

The following flags control application behavior:

	-config string
	    Path to a custom config.toml
	-store string
	    Path to the n-gram store, overrides config
	-userdict string
	    Path to the user dictionary, overrides config
	-no-record
	    Disable recording of unknown words
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-limit int
	    Number of predictions to return (default from config)
	-prmin int
	    Minimum prefix length for predictions
	-prmax int
	    Maximum prefix length for predictions
	-no-filter
	    Disable input filtering for debugging

The application automatically resolves store and config paths relative to
the executable location, supporting both development and production
deployments.
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/nextserve/internal/cli"
	"github.com/bastiangx/nextserve/internal/utils"
	"github.com/bastiangx/nextserve/pkg/config"
	"github.com/bastiangx/nextserve/pkg/ngram"
	"github.com/bastiangx/nextserve/pkg/predict"
	"github.com/bastiangx/nextserve/pkg/server"
	"github.com/bastiangx/nextserve/pkg/userdict"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0-beta"
	AppName = "nextserve"
	gh      = "https://github.com/bastiangx/nextserve"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main calls other packages to initialize the server or CLI inputs.
// main() does not implement logic for them and only manages the flow.
func main() {
	sigHandler()
	defaultConfig := config.DefaultConfig()

	// custom Flags
	showVersion := flag.Bool("version", false, "Show current version")
	configFlag := flag.String("config", "", "Path to a custom config.toml")
	storeFlag := flag.String("store", "", "Path to the n-gram store (overrides config)")
	dictFlag := flag.String("userdict", "", "Path to the user dictionary (overrides config)")
	noRecord := flag.Bool("no-record", false, "Disable recording of unknown words")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", defaultConfig.Predict.DefaultLimit, "Number of predictions to return")
	minPrefix := flag.Int("prmin", defaultConfig.Server.MinPrefix, "Minimum prefix length for predictions (1 < n <= prmax)")
	maxPrefix := flag.Int("prmax", defaultConfig.Server.MaxPrefix, "Maximum prefix length for predictions")
	noFilter := flag.Bool("no-filter", false, "Disable input filtering (DBG only) - queries with raw input (numbers, symbols, etc)")

	flag.Parse()

	if *showVersion {
		logger := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    false,
			ReportTimestamp: false,
			Prefix:          "",
		})

		styles := log.DefaultStyles()

		styles.Values["version"] = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
			Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})

		styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})

		logger.SetStyles(styles)

		logger.Print("")
		logger.Print("[ NextServe ] Predicts your next word before you type it!")
		logger.Print("", "version", Version)
		logger.Print("")
		logger.Print("use -h or --help to see available options")
		logger.Print("Github Repo", "gh", gh)

		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	// Initialize path resolver for robust path handling
	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
		log.Print("Either env is not set or system is not supported")
		os.Exit(1)
	}

	appConfig, configPath, err := config.LoadConfigWithPriority(*configFlag)
	if err != nil {
		log.Warnf("Config unavailable (%v), using builtin defaults", err)
		appConfig = config.DefaultConfig()
		configPath = ""
	}
	log.Debugf("Using config file: (%s)", configPath)

	storePath := appConfig.Store.Path
	if *storeFlag != "" {
		storePath = *storeFlag
	}
	resolvedStore := pathResolver.ResolveStorePath(storePath)
	log.Debugf("Using store at: %s", resolvedStore)

	store, err := ngram.Open(resolvedStore)
	if err != nil {
		log.Warnf("Store unusable (%v), serving empty predictions", err)
	}
	defer store.Close()

	// unknown-word recording is optional; prediction works without it
	var rec predict.Recorder
	var dict *userdict.Store
	if appConfig.Store.RecordNew && !*noRecord {
		dictPath := appConfig.Store.UserDictPath
		if *dictFlag != "" {
			dictPath = *dictFlag
		}
		resolvedDict := pathResolver.ResolveWritablePath(dictPath)
		dict, err = userdict.Open(resolvedDict)
		if err != nil {
			log.Warnf("User dictionary unavailable (%v), recording disabled", err)
			dict = nil
		} else {
			rec = dict
			defer dict.Close()
			log.Debugf("Recording unknown words to: %s", resolvedDict)
		}
	}

	// CLI would be mainly used for testing and dbg purposes.
	// Any new features or changes should be tested in CLI mode first.
	if *cliMode {
		log.SetReportTimestamp(false)
		log.Debug("Input info:",
			"minPrefix", *minPrefix,
			"maxPrefix", *maxPrefix,
			"limit", *limit,
			"noFilter", *noFilter)

		session := predict.NewSession(store, rec)
		inputHandler := cli.NewInputHandler(session, dict, *minPrefix, *maxPrefix, *limit, *noFilter)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
			os.Exit(1)
		}
		return
	}

	log.Debug("spawning IPC")
	if configPath == "" {
		// the config op still needs somewhere to persist changes
		configPath, err = pathResolver.GetConfigPath("config.toml")
		if err != nil {
			log.Warnf("No writable config location: %v", err)
		}
	}
	srv := server.NewServer(store, rec, appConfig, configPath)

	showStartupInfo(resolvedStore, store.WordCount())

	if err := srv.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
		os.Exit(1)
	}
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(storePath string, wordCount int) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" NextServe ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	log.Infof("store: ( %s )", storePath)
	log.Infof("vocabulary: %s words", utils.FormatWithCommas(wordCount))
	log.Info("status: ready")
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
