package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lawnchairsociety/gridkeep/server/internal/broadcast"
	"github.com/lawnchairsociety/gridkeep/server/internal/config"
	"github.com/lawnchairsociety/gridkeep/server/internal/database"
	"github.com/lawnchairsociety/gridkeep/server/internal/engine"
	"github.com/lawnchairsociety/gridkeep/server/internal/harvest"
	"github.com/lawnchairsociety/gridkeep/server/internal/itemdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/logger"
	"github.com/lawnchairsociety/gridkeep/server/internal/npcdef"
	"github.com/lawnchairsociety/gridkeep/server/internal/repository/sqlrepo"
	"github.com/lawnchairsociety/gridkeep/server/internal/server"
	"github.com/lawnchairsociety/gridkeep/server/internal/session"
	"github.com/lawnchairsociety/gridkeep/server/internal/templates"
	"github.com/lawnchairsociety/gridkeep/server/internal/worldmap"
)

// defaultPort is the listen port used when neither -port nor PORT is set
// (§6.3). It is not the restart port: a restartServer frame is honored
// only on internal/server.restartPort (3535).
const defaultPort = 3434

func main() {
	serverConfigFile := flag.String("config", "data/server.yaml", "Path to server config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	itemsFile := flag.String("items", "data/items.yaml", "Path to item definitions YAML file")
	npcsFile := flag.String("npcs", "data/npcs.yaml", "Path to NPC definitions YAML file")
	messagesFile := flag.String("messages", "data/messages.yaml", "Path to message template YAML file")
	mapsDir := flag.String("maps", "data/maps", "Path to the maps directory")
	dbFile := flag.String("db", "data/gridkeep.db", "Path to the SQLite database file, used when DATABASE_URL is unset")
	port := flag.Int("port", defaultPort, "Listen port (overridden by the PORT environment variable)")
	addr := flag.String("addr", "", "Listen address (host part); empty binds all interfaces")
	flag.Parse()

	logConfig, _ := logger.LoadConfig(*loggingConfig)
	if err := logger.Initialize(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("starting gridkeep server")

	listenPort := *port
	if raw := os.Getenv("PORT"); raw != "" {
		if p, err := strconv.Atoi(raw); err == nil {
			listenPort = p
		} else {
			logger.Warning("invalid PORT env var, using flag/default", "value", raw, "error", err)
		}
	}

	cfg, err := config.LoadConfig(*serverConfigFile)
	if err != nil {
		logger.Warning("failed to load server config, using defaults", "path", *serverConfigFile, "error", err)
	}

	items, err := itemdef.LoadFromYAML(*itemsFile)
	if err != nil {
		logger.Error("failed to load item definitions", "path", *itemsFile, "error", err)
		os.Exit(1)
	}

	npcs, err := npcdef.LoadFromYAML(*npcsFile)
	if err != nil {
		logger.Error("failed to load NPC definitions", "path", *npcsFile, "error", err)
		os.Exit(1)
	}

	tmplCache, err := templates.Load(*messagesFile)
	if err != nil {
		logger.Error("failed to load message templates", "path", *messagesFile, "error", err)
		os.Exit(1)
	}

	world, err := worldmap.LoadMapsFromYAML(*mapsDir)
	if err != nil {
		logger.Error("failed to load world maps", "dir", *mapsDir, "error", err)
		os.Exit(1)
	}

	db, err := openDatabase(*dbFile)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := sqlrepo.New(db, items, npcs, tmplCache.All())

	harvestEngine := harvest.New(repo, harvest.DefaultCycleStrategy{Roll: func() int { return rand.Intn(100) }})

	sessions := session.NewRegistry()
	fabric := broadcast.New(sessions, tmplCache)

	eng := engine.New(engine.Config{
		World:       world,
		Items:       items,
		NPCs:        npcs,
		Repo:        repo,
		Sessions:    sessions,
		Broadcast:   fabric,
		Templates:   tmplCache,
		Harvest:     harvestEngine,
		StartMapID:  cfg.World.StartMapID,
		StartRoomID: cfg.World.StartRoomID,
	})

	srv := server.New(*addr, listenPort, cfg, eng, sessions)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server exited with error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("gridkeep server running", "port", listenPort)
	logger.Info("press ctrl+c to shut down")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warning("error during shutdown", "error", err)
	}
	logger.Info("server stopped")
}

// openDatabase picks SQLite or Postgres per §6.3's "database connection
// string" setting: DATABASE_URL selects Postgres when present, otherwise
// the server falls back to the local SQLite file.
func openDatabase(sqlitePath string) (*database.Database, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		logger.Info("using Postgres database", "dsn_scheme", strings.SplitN(dsn, "://", 2)[0])
		return database.OpenPostgres(dsn)
	}
	logger.Info("using SQLite database", "path", sqlitePath)
	return database.Open(sqlitePath)
}
