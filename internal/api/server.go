package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/serverutil"
)

type (
	Timeline interface {
		Paginate(ctx context.Context, q riffle.Query) (riffle.Page, error)
	}

	Subscriber interface {
		Subscribe(ctx context.Context, rawURL string) (riffle.UpsertResult, error)
	}

	Syncer interface {
		SyncAll(ctx context.Context) (riffle.SyncResult, error)
	}

	// Server answers the reader's JSON API: timeline pages, item state,
	// subscriptions and collections.
	Server struct {
		*http.Server

		repo       riffle.Repository
		timeline   Timeline
		subscriber Subscriber
		syncer     Syncer
		reader     *reader
	}

	ServerConfig struct {
		Port       int
		CorsOrigin string

		// How long the reader view waits for an article.
		ReaderTimeout time.Duration
	}
)

func NewServer(config ServerConfig, repo riffle.Repository, tl Timeline, sub Subscriber, syncer Syncer) *Server {
	r := serverutil.ErrRouter{Router: mux.NewRouter()}

	srvr := Server{
		repo:       repo,
		timeline:   tl,
		subscriber: sub,
		syncer:     syncer,
		reader:     newReader(config.ReaderTimeout),
		Server: &http.Server{
			Addr:        fmt.Sprintf(":%d", config.Port),
			ReadTimeout: 5 * time.Second,
			// A manual sync walks every feed before answering.
			WriteTimeout: 2 * time.Minute,
			Handler: handlers.CORS(
				handlers.AllowedOrigins([]string{config.CorsOrigin}),
				handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
				handlers.AllowedHeaders([]string{"content-type"}),
			)(r),
		},
	}

	r.Use(serverutil.AccessLogMiddleware) // Log everything

	// Timeline and item state
	r.HandleFuncE("/api/items", srvr.getItems).Methods(http.MethodGet)
	r.HandleFuncE("/api/items/{id}", srvr.getItem).Methods(http.MethodGet)
	r.HandleFuncE("/api/items/{id}", srvr.patchItem).Methods(http.MethodPatch)
	r.HandleFuncE("/api/items/{id}/reader", srvr.getReader).Methods(http.MethodGet)

	// Subscriptions
	r.HandleFuncE("/api/channels", srvr.getChannels).Methods(http.MethodGet)
	r.HandleFuncE("/api/channels", srvr.postChannels).Methods(http.MethodPost)
	r.HandleFuncE("/api/channels", srvr.deleteChannel).Methods(http.MethodDelete)
	r.HandleFuncE("/api/channels/settings", srvr.patchChannelSettings).Methods(http.MethodPatch)
	r.HandleFuncE("/api/channels/collections", srvr.postChannelCollection).Methods(http.MethodPost)

	// Collections
	r.HandleFuncE("/api/collections", srvr.getCollections).Methods(http.MethodGet)
	r.HandleFuncE("/api/collections", srvr.postCollection).Methods(http.MethodPost)
	r.HandleFuncE("/api/collections/{id}", srvr.deleteCollection).Methods(http.MethodDelete)

	r.HandleFuncE("/api/sync", srvr.postSync).Methods(http.MethodPost)

	slog.Debug("configured api server", "port", config.Port)

	return &srvr
}

func (s Server) postSync(w http.ResponseWriter, r *http.Request) error {
	res, err := s.syncer.SyncAll(r.Context())
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, res)
}
