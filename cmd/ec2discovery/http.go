package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/atlassian/ec2discovery"
	"github.com/atlassian/ec2discovery/internal/cluster/nodes"
)

type httpServer struct {
	logger  logrus.FieldLogger
	address string
	picker  nodes.NodePicker
	Router  *mux.Router
}

func newHTTPServer(logger logrus.FieldLogger, address string, picker nodes.NodePicker) *httpServer {
	s := &httpServer{
		logger:  logger,
		address: address,
		picker:  picker,
		Router:  mux.NewRouter(),
	}
	s.Router.HandleFunc("/peers", s.peers).Methods(http.MethodGet).Name("peers")
	s.Router.HandleFunc("/healthcheck", s.healthCheck).Methods(http.MethodGet).Name("healthcheck")
	return s
}

func (s *httpServer) Run(ctx context.Context) {
	server := &http.Server{
		Addr:    s.address,
		Handler: s.Router,
	}

	chStopped := make(chan struct{}, 1)
	go func() {
		s.logger.WithField("address", s.address).Info("Listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server failed")
		}
		chStopped <- struct{}{}
	}()

	select {
	case <-ctx.Done():
	case <-chStopped:
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Warn("Failed to shutdown HTTP server cleanly")
	}
	<-chStopped
}

// peers reports the nodes currently in the hash ring.
func (s *httpServer) peers(resp http.ResponseWriter, req *http.Request) {
	result := ec2discovery.EmptyPeerResult()
	result.Nodes = append(result.Nodes, s.picker.List()...)
	resp.Header().Set("content-type", "application/json")
	resp.WriteHeader(http.StatusOK)
	if err := jsoniter.NewEncoder(resp).Encode(result); err != nil {
		s.logger.WithError(err).Warn("Failed to write peers response")
	}
}

type healthStatus struct {
	Status string `json:"status"`
}

// healthCheck reports unhealthy until at least one peer has been discovered.
func (s *httpServer) healthCheck(resp http.ResponseWriter, req *http.Request) {
	resp.Header().Set("content-type", "application/json")
	status := "ok"
	if len(s.picker.List()) == 0 {
		status = "no peers"
		resp.WriteHeader(http.StatusServiceUnavailable)
	} else {
		resp.WriteHeader(http.StatusOK)
	}
	_ = jsoniter.NewEncoder(resp).Encode(healthStatus{Status: status})
}
