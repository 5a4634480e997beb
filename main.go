package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mempooltools/mempoolctl/api"
	"github.com/mempooltools/mempoolctl/db/bolt"
	"github.com/mempooltools/mempoolctl/mempool"
	"github.com/mempooltools/mempoolctl/ws"
)

const usage = `
mempoolctl [-c CONFIGFILE] [-d DATADIR] COMMAND [-h | -help] [args...]

Commands:
	start       (start the watcher daemon)
	stop        (terminate the daemon)
	version     (show app version)
	status      (show daemon status)
	fees        (show recommended fees from the daemon)
	feearray    (show per-projected-block fee arrays from the daemon)
	history     (show stored fee history from the daemon)
	halving     (show the next-halving estimate)
	difficulty  (show the difficulty retarget estimate)
	mempool     (show mempool backlog statistics)
	block       (show a block by hash or height)
	tx          (show a transaction by txid)
	address     (show address statistics)
	stream      (print live websocket events)
	setdebug    (turn on/off daemon debug-level logging)
	metrics     (show daemon metrics)
	config      (show daemon config settings)

`

const version = "0.1.0"

func main() {
	var (
		configFile, dataDir string
	)
	flag.CommandLine.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		flag.CommandLine.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	flag.StringVar(&configFile, "c", "",
		fmt.Sprintf("Path to config file (alternatively, use %s env var).", configFileEnv))
	flag.StringVar(&dataDir, "d", "",
		fmt.Sprintf("Path to data directory (alternatively, use %s env var).", dataDirEnv))
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.CommandLine.Usage()
		os.Exit(1)
	}

	cfg, err := loadConfig(configFile, dataDir)
	if err != nil {
		log.Fatal(err)
	}

	apiclient := api.NewClient(api.Config{
		Host:    cfg.AppRPC.Host,
		Port:    cfg.AppRPC.Port,
		Timeout: 15,
	})

	switch args[0] {
	case "start":
		runWatcher(args, cfg)
	case "version":
		fmt.Println(version)
	case "stop":
		stop(args, apiclient)
	case "status":
		status(args, apiclient)
	case "fees":
		showFees(args, apiclient)
	case "feearray":
		showFeeArray(args, apiclient)
	case "history":
		showHistory(args, apiclient)
	case "halving":
		showHalving(args, cfg)
	case "difficulty":
		showDifficulty(args, cfg)
	case "mempool":
		showMempool(args, cfg)
	case "block":
		showBlock(args, cfg)
	case "tx":
		showTx(args, cfg)
	case "address":
		showAddress(args, cfg)
	case "stream":
		streamEvents(args, cfg)
	case "setdebug":
		setDebug(args, apiclient)
	case "metrics":
		appMetrics(args, apiclient)
	case "config":
		appConfig(args, apiclient)
	default:
		log.Fatalf("Invalid command '%s'", args[0])
	}
}

func runWatcher(args []string, cfg config) {
	const usage = `
mempoolctl start

Start the watcher daemon. The daemon polls the configured mempool.space
mirrors for recommended fees, projected mempool blocks and chain telemetry,
stores a rolling fee history, and serves the results over JSON-RPC.

Use mempoolctl status to check the daemon state.
`
	f := flag.NewFlagSet(args[0], flag.ExitOnError)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, usage)
		f.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
	}
	if err := f.Parse(args[1:]); err != nil {
		log.Fatal(err)
	}

	histdb, err := loadHistoryDB(cfg)
	if err != nil {
		log.Fatal(fmt.Errorf("loadHistoryDB: %v", err))
	}

	// Setup the logger
	var dLog *DebugLog
	logFileMode := os.O_WRONLY | os.O_CREATE | os.O_APPEND
	if f, err := os.OpenFile(cfg.LogFile, logFileMode, 0666); err != nil {
		log.Fatal(fmt.Errorf("opening logfile: %v", err))
	} else {
		dLog = NewDebugLog(f, "", log.LstdFlags)
	}

	mempoolCfg := cfg.Mempool
	mempoolCfg.Logger = dLog.Logger
	client := mempool.NewClient(mempoolCfg)

	var stream *ws.Client
	if cfg.UseWebSocket {
		wsCfg := cfg.WebSocket
		wsCfg.Logger = dLog.Logger
		stream = ws.NewClient(wsCfg)
	}

	watcherCfg := cfg.WatcherConfig
	watcherCfg.logger = dLog.Logger
	watcher := NewWatcher(client, stream, histdb, watcherCfg)
	service := &Service{Watcher: watcher, DLog: dLog, Cfg: cfg}

	os.Stdout.Close()
	os.Stderr.Close()
	os.Stdin.Close()

	errc := make(chan error)
	go func() { errc <- watcher.Run() }()
	go func() { errc <- service.ListenAndServe() }()

	// Signal handling
	sigc := make(chan os.Signal, 3)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		<-sigc
		watcher.Stop()
	}()

	err = <-errc
	// Blocks until safely shut down. Stop is idempotent, so no harm if the
	// watcher is already stopped.
	watcher.Stop()
	if err != nil {
		dLog.Logger.Fatal(err)
	}
}

func loadHistoryDB(cfg config) (HistoryDB, error) {
	const dbFileName = "feehistory.db"
	dbfile := filepath.Join(cfg.DataDir, dbFileName)
	return bolt.LoadFeeHistoryDB(dbfile)
}
