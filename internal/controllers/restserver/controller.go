package restserver

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"net/http"
	"sync"

	"github.com/chrissnell/forecastview/internal/dataset"
	"github.com/chrissnell/forecastview/internal/log"
	"github.com/chrissnell/forecastview/pkg/config"
	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const defaultPageTitle = "Bin Fill Forecast Dashboard"

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	FS         fs.FS
	cache      *dataset.Cache
	dashboard  *htmltemplate.Template
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, cache *dataset.Cache, logger *zap.SugaredLogger) (*Controller, error) {
	ctrl := &Controller{
		ctx:    ctx,
		wg:     wg,
		cache:  cache,
		logger: logger,
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}

	// Set default HTTP port if not specified
	if rc.HTTPPort == 0 {
		logger.Info("rest.http_port not provided; defaulting to 8080")
		rc.HTTPPort = 8080
	}

	if rc.PageTitle == "" {
		rc.PageTitle = defaultPageTitle
	}
	ctrl.restConfig = rc

	ctrl.FS = GetAssets()

	// Parse once at startup so a broken template fails here instead of on
	// the first request
	var err error
	ctrl.dashboard, err = htmltemplate.New("index.html.tmpl").Funcs(templateFuncs).ParseFS(ctrl.FS, "index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("error parsing dashboard template: %v", err)
	}

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.HTTPPort)
	ctrl.Server.Handler = ctrl.Handler()

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Info("Starting REST server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.restConfig.TLSCertPath != "" && c.restConfig.TLSKeyPath != "" {
			if err := c.Server.ListenAndServeTLS(c.restConfig.TLSCertPath, c.restConfig.TLSKeyPath); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// Handler returns the full middleware chain around the router
func (c *Controller) Handler() http.Handler {
	var h http.Handler = c.setupRouter()
	h = handlers.CompressHandler(h)
	h = handlers.CombinedLoggingHandler(log.NewAccessLogWriter(c.logger), h)
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(c.logger.Desugar())),
		handlers.PrintRecoveryStack(false),
	)(h)
	return h
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()

	router.Use(c.requestIDMiddleware)

	// API endpoints
	router.HandleFunc("/api/view", c.handlers.GetView).Methods(http.MethodGet)
	router.HandleFunc("/api/options", c.handlers.GetOptions).Methods(http.MethodGet)
	router.HandleFunc("/download", c.handlers.DownloadDataset).Methods(http.MethodGet)
	router.HandleFunc("/healthz", c.handlers.GetHealth).Methods(http.MethodGet)

	// Template endpoints
	router.HandleFunc("/", c.handlers.ServeDashboard).Methods(http.MethodGet)

	// Static file serving
	router.PathPrefix("/static/").Handler(http.FileServer(http.FS(c.FS)))

	return router
}

// requestIDMiddleware tags every request with an ID, reusing one supplied
// by an upstream proxy
func (c *Controller) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)

		ctx := context.WithValue(r.Context(), requestIDContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
