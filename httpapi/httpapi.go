// Package httpapi exposes the engine's two external routes over a chi
// router: POST /io/{collection} accepts a batch ingest payload, GET
// /io/{collection} runs a query against the collection's published
// versions. Media-type dispatch (media.Registry) and request-id
// correlation (google/uuid) mirror the ingest/query split spec §6 names.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"ferret/collection"
	"ferret/config"
	"ferret/engine"
	"ferret/ferrerr"
	"ferret/media"
	"ferret/session"
	"ferret/version"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Server owns the open collections this process serves and the
// configuration write sessions are built with.
type Server struct {
	dataDir  string
	cfg      config.Config
	logger   *zap.SugaredLogger
	registry *media.Registry

	collections map[string]*collection.Collection
}

// New returns a Server rooted at cfg.DataDir.
func New(cfg config.Config, logger *zap.SugaredLogger) *Server {
	return &Server{
		dataDir:     cfg.DataDir,
		cfg:         cfg,
		logger:      logger,
		registry:    media.NewRegistry(),
		collections: map[string]*collection.Collection{},
	}
}

// Router builds the chi handler: request-id middleware, then the two
// collection-scoped routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequest)

	r.Route("/io/{collection}", func(r chi.Router) {
		r.Post("/", s.handleIngest)
		r.Get("/", s.handleQuery)
	})
	return r
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		if reqID == "" {
			reqID = uuid.NewString()
		}
		s.logger.Infow("request", "id", reqID, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) collectionFor(name string) (*collection.Collection, error) {
	if col, ok := s.collections[name]; ok {
		return col, nil
	}
	col, err := collection.Open(s.dataDir, name, s.cfg.PostingsCacheSize)
	if err != nil {
		return nil, err
	}
	s.collections[name] = col
	return col, nil
}

// handleIngest decodes the request body per its Content-Type, indexes every
// record through a write session, and publishes the batch.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	col, err := s.collectionFor(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	mediaType := r.Header.Get("Content-Type")
	decoder, err := s.registry.Lookup(mediaType)
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}

	records, err := decoder.Decode(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	primaryKey := r.URL.Query().Get("primary_key")

	sess, err := session.Open(col, session.Config{
		ModelBuilderWorkers:   s.cfg.ModelBuilderWorkers,
		ValidatorEnabled:      s.cfg.ValidatorEnabled,
		ValidatorSampleKeyIDs: s.cfg.ValidatorSampleKeyIDs,
		CompressBodies:        s.cfg.CompressBodies,
		IdenticalAngle:        0.999,
		FoldAngle:             0.8,
	}, s.logger)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer sess.Close()

	for _, rec := range records {
		if _, err := sess.Ingest(rec); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	versionID, err := version.Next(col.VersionDir())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := sess.Flush(col.VersionDir(), versionID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := sess.Commit(col.VersionDir(), versionID, int64(len(records)), primaryKey); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"version":  versionID,
		"ingested": len(records),
	})
}

// handleQuery evaluates the `q` query-string parameter against col and
// returns the ranked results as JSON.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	col, err := s.collectionFor(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	q := r.URL.Query().Get("q")
	topK := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		topK = n
	}

	ev := engine.New(col)
	results, err := ev.Evaluate(q, topK)
	if err != nil {
		if errors.Is(err, ferrerr.ErrParse) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// Close closes every collection this server has opened.
func (s *Server) Close() error {
	for _, col := range s.collections {
		if err := col.Close(); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
