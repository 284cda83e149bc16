// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPServer serves the REST API and the overlay websocket.
type HTTPServer struct {
	server *http.Server
	port   int
}

// NewHTTPServer creates a new HTTP server instance.
func NewHTTPServer(port int, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		port: port,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start begins serving on the configured port.
func (h *HTTPServer) Start(ctx context.Context) error {
	go func() {
		logrus.Infof("HTTP server listening on port %d", h.port)
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
// Hijacked websocket connections are closed by the hub, not here.
func (h *HTTPServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down HTTP server...")
	if err := h.server.Shutdown(ctx); err != nil {
		return err
	}
	logrus.Info("HTTP server stopped")
	return nil
}
