// Package httpapi exposes the webmail service over HTTP.
//
// The surface is a closed set of routes, one per operation. Identity is
// an upstream concern: requests arrive with an X-User-Id header set by
// the authenticating proxy, and the API trusts it.
package httpapi

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/rbaliyan/webmail"
	"github.com/rbaliyan/webmail/store"
)

// Uploader stores attachment content and returns a descriptor for it.
// Implemented by the S3 attachment uploader.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, content []byte) (*store.AttachmentData, error)
}

// API handles HTTP requests for the webmail service.
type API struct {
	svc      *webmail.Service
	uploader Uploader
	logger   *slog.Logger
}

// options holds API configuration.
type options struct {
	uploader Uploader
	logger   *slog.Logger
}

// Option configures the API.
type Option func(*options)

// WithUploader sets the attachment uploader. Without one, the upload
// endpoint answers 500 not_configured.
func WithUploader(u Uploader) Option {
	return func(o *options) {
		o.uploader = u
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an API around a service.
func New(svc *webmail.Service, opts ...Option) *API {
	o := &options{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return &API{
		svc:      svc,
		uploader: o.uploader,
		logger:   o.logger,
	}
}

// Router builds the gin engine with all routes registered.
func (a *API) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), a.cors(), a.requestLog())

	r.NoRoute(func(c *gin.Context) {
		writeError(c, webmail.ErrNotFound)
	})
	r.NoMethod(methodNotAllowed)
	r.HandleMethodNotAllowed = true

	r.POST("/webhooks/inbound", a.handleInbound)

	api := r.Group("/api", a.identity())
	{
		api.GET("/mail", a.handleList)
		api.GET("/mail/:id", a.handleGet)
		api.POST("/mail", a.handleSend)
		api.PUT("/mail/:id/read", a.handleSetRead)
		api.PUT("/mail/:id/star", a.handleToggleStar)
		api.POST("/mail/attachments", a.handleUpload)
		api.GET("/mailboxes", a.handleMailboxes)
	}

	return r
}
