// Package rest assembles the HTTP server: connection pool, schema cache,
// resource bindings from configuration, and the middleware chain.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/restview/restview/pkg/config"
	"github.com/restview/restview/pkg/httputil"
	"github.com/restview/restview/pkg/httputil/middleware"
	"github.com/restview/restview/pkg/query"
	"github.com/restview/restview/pkg/resource"
	"github.com/restview/restview/pkg/schema"
	"go.uber.org/zap"
)

// Server serves the configured resources over HTTP.
type Server struct {
	cfg         *config.Config
	pool        *pgxpool.Pool
	schemaCache *schema.Cache
	logger      *zap.Logger
	bindings    []*resource.Binding
	httpServer  *http.Server
}

// NewServer connects to the database, loads the schema cache and builds one
// resource binding per configured resource. Configuration errors, including
// unknown tables and unresolvable key policies, are fatal here.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, cfg.PG.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	schemaCache, err := schema.NewCache(pool, cfg.Server.Schema, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema cache: %w", err)
	}
	if err := schemaCache.Init(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema cache: %w", err)
	}

	s := &Server{
		cfg:         cfg,
		pool:        pool,
		schemaCache: schemaCache,
		logger:      logger,
	}

	mux := http.NewServeMux()
	querier := resource.NewPoolQuerier(pool)

	for _, rc := range cfg.Resources {
		table, ok := schemaCache.Lookup(rc.Table)
		if !ok {
			s.close()
			return nil, fmt.Errorf("table %q not found in schema %q", rc.Table, cfg.Server.Schema)
		}

		binding, err := resource.New(resource.Config{
			Table:  table,
			DB:     querier,
			Logger: logger,
			Keys: resource.KeyPolicyConfig{
				Retrieve: rc.Keys.Retrieve,
				Update:   rc.Keys.Update,
				Delete:   rc.Keys.Delete,
			},
			ListFields:       rc.ListFields,
			CreateFields:     rc.CreateFields,
			RetrieveFields:   rc.RetrieveFields,
			UpdateFields:     rc.UpdateFields,
			FilterableFields: rc.Filterable,
			OrderableFields:  rc.Orderable,
			SearchableFields: rc.Searchable,
			DefaultOrder:     rc.DefaultOrder,
			PageMode:         query.ParsePageMode(rc.PageMode),
			PageSize:         rc.PageSize,
		})
		if err != nil {
			s.close()
			return nil, fmt.Errorf("resource %q: %w", rc.Table, err)
		}

		basePath := strings.TrimSuffix(cfg.Server.BaseURL, "/") + "/" + rc.Table
		binding.Register(mux, basePath, operations(rc.Operations)...)
		s.bindings = append(s.bindings, binding)

		logger.Info("resource registered",
			zap.String("table", rc.Table),
			zap.String("path", basePath))
	}

	rootPath := strings.TrimSuffix(cfg.Server.BaseURL, "/") + "/"
	mux.HandleFunc("GET "+rootPath+"{$}", s.handleRoot)

	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.LoggerWithOptions(&middleware.LoggerOptions{Logger: logger}),
	)

	s.httpServer = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return s, nil
}

// handleRoot lists the registered resources.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	names := make([]string, len(s.bindings))
	for i, b := range s.bindings {
		names[i] = b.Name()
	}
	sort.Strings(names)
	httputil.JSON(w, http.StatusOK, map[string]any{"resources": names})
}

// Start serves until the listener fails or Shutdown is called. Schema reload
// events are logged as they arrive.
func (s *Server) Start() error {
	go func() {
		for tables := range s.schemaCache.Watch() {
			s.logger.Info("schema cache updated", zap.Int("tables", len(tables)))
		}
	}()

	s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests, then releases the cache and the pool.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	err := s.httpServer.Shutdown(ctx)
	s.close()
	return err
}

func (s *Server) close() {
	s.schemaCache.Close()
	s.pool.Close()
}

// operations maps config operation names onto the canonical set. Unknown
// names are dropped rather than rejected; the route simply never exists.
func operations(names []string) []resource.Operation {
	ops := make([]resource.Operation, 0, len(names))
	for _, name := range names {
		for _, op := range resource.AllOperations {
			if string(op) == name {
				ops = append(ops, op)
			}
		}
	}
	return ops
}
