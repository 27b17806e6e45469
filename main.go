package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"ifcserver/config"
	"ifcserver/db"
	"ifcserver/handlers"
	"ifcserver/metrics"
	"ifcserver/models"
	"ifcserver/processing"
	"ifcserver/properties"
	"ifcserver/storage"
	"ifcserver/utils"
	"ifcserver/viewer"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const (
	sessionCookieName     = "view"
	sessionExpirationTime = 7 * 86400
)

func main() {
	root := &cobra.Command{
		Use:   "ifcserver",
		Short: "IFC model server correlating rendered geometry with element properties",
	}
	root.AddCommand(serveCommand(), extractCommand())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	setupServeFlags(cmd)
	return cmd
}

func serve() error {
	db.Init()
	models.Init()
	processing.Init()
	storage.Init()
	store, err := properties.New(config.PROPERTY_STORE, db.Instance)
	if err != nil {
		return err
	}

	pipeline := processing.New(storage.Default(), store, processing.NewDBTaskStore(db.Instance), models.ModelExists, config.EXTRACT_QUEUE_SIZE)
	pipeline.Start(context.Background(), config.EXTRACT_WORKERS)
	defer pipeline.Stop()
	h := handlers.New(storage.Default(), store, pipeline, viewer.NewRegistry(config.VIEW_TTL))

	if !config.DEBUG_MODE {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	_ = router.SetTrustedProxies([]string{})
	if config.DEBUG_MODE {
		router.Use(utils.ErrorLogMiddleware)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	sessionStore := gormsessions.NewStore(db.Instance, true, sessionKey())
	sessionStore.Options(sessions.Options{Path: "/", MaxAge: sessionExpirationTime, HttpOnly: true})
	router.Use(sessions.Sessions(sessionCookieName, sessionStore))
	if !config.DEBUG_MODE {
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`^/api/models/\d+/file$`, `^/api/events$`})))
	}
	router.Use((&utils.CacheRouter{CacheTime: utils.CacheNoCache}).Handler()) // No cache by default, individual end-points can override that
	h.Register(router)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	errs := make(chan error, 1)
	go func() {
		if config.TLS_DOMAINS != "" {
			errs <- autotls.Run(router, strings.Split(config.TLS_DOMAINS, ",")...)
		} else {
			errs <- router.Run(config.BIND_ADDRESS)
		}
	}()
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	select {
	case err = <-errs:
		log.Printf("Server stopped: %v", err)
		return err
	case sig := <-signals:
		log.Printf("Received %v, finishing queued extractions", sig)
		return nil
	}
}

// sessionKey is random when none is configured, sessions then end with the process
func sessionKey() []byte {
	if config.SESSION_KEY != "" {
		return []byte(config.SESSION_KEY)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	return key
}

type extractOutput struct {
	Schema   string                  `json:"schema"`
	Status   processing.Status       `json:"status"`
	Failed   int                     `json:"failed"`
	Elements []models.PropertyRecord `json:"elements"`
}

func extractCommand() *cobra.Command {
	var indent bool
	cmd := &cobra.Command{
		Use:   "extract [model.ifc]",
		Short: "Extract the properties of a local IFC file and print them as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			st, err := storage.NewDiskStorage(filepath.Dir(path))
			if err != nil {
				return err
			}
			store := properties.NewMemoryStore()
			pipeline := processing.New(st, store, processing.NewMemoryTaskStore(), func(uint64) bool { return true }, 1)
			task, err := pipeline.Extract(cmd.Context(), 1, filepath.Base(path))
			if err != nil {
				return err
			}
			records, err := store.ListByModel(cmd.Context(), 1)
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			if indent {
				encoder.SetIndent("", "  ")
			}
			return encoder.Encode(extractOutput{Schema: task.Schema, Status: task.Status, Failed: task.Failed, Elements: records})
		},
	}
	cmd.Flags().BoolVar(&indent, "indent", false, "Indent the JSON output")
	return cmd
}
