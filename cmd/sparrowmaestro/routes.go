package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sguter90/sparrowmaestro/pkg/ingest"
	"github.com/sguter90/sparrowmaestro/pkg/live"
	"github.com/sguter90/sparrowmaestro/pkg/service"
)

// RouteManager handles all API routes
type RouteManager struct {
	service        *service.AppService
	ingestor       *ingest.Ingestor
	hub            *live.Hub
	allowedOrigins []string
	jwtSecret      string
	Router         *mux.Router
}

// NewRouteManager creates a new RouteManager instance
func NewRouteManager(svc *service.AppService, ingestor *ingest.Ingestor, hub *live.Hub, allowedOrigins []string, jwtSecret string) *RouteManager {
	return &RouteManager{
		service:        svc,
		ingestor:       ingestor,
		hub:            hub,
		allowedOrigins: allowedOrigins,
		jwtSecret:      jwtSecret,
		Router:         mux.NewRouter(),
	}
}

// Setup configures all API routes
func (rm *RouteManager) Setup() {
	r := rm.Router
	r.Use(rm.corsMiddleware)
	r.Use(rm.metricsMiddleware)

	// Global OPTIONS handler - catches all preflight requests
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.HandleFunc("/health", rm.healthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	rm.setupAPIRoutes(api)
}

// setupAPIRoutes configures all /api routes
func (rm *RouteManager) setupAPIRoutes(api *mux.Router) {
	// Notehub route target, answers 405 itself for other methods
	api.HandleFunc("/datastore/ingest", rm.ingestHandler)
	api.HandleFunc("/go", rm.goHandler)

	if rm.hub != nil {
		api.HandleFunc("/live", rm.hub.ServeWS).Methods("GET")
	}

	// Gateways
	api.HandleFunc("/gateways", rm.getGatewaysHandler).Methods("GET")
	api.HandleFunc("/gateways/{gatewayUID}", rm.getGatewayHandler).Methods("GET")
	api.HandleFunc("/gateways/{gatewayUID}/nodes", rm.getGatewayNodesHandler).Methods("GET")

	// Nodes
	api.HandleFunc("/nodes", rm.getNodesHandler).Methods("GET")
	api.HandleFunc("/gateways/{gatewayUID}/nodes/{nodeID}", rm.getNodeHandler).Methods("GET")
	api.HandleFunc("/gateways/{gatewayUID}/nodes/{nodeID}/data", rm.getNodeDataHandler).Methods("GET")

	// Project
	api.HandleFunc("/project/latest", rm.getProjectLatestHandler).Methods("GET")

	// Attribute changes, protected when a JWT secret is configured
	protected := api.PathPrefix("").Subrouter()
	if rm.jwtSecret != "" {
		protected.Use(rm.JWTAuthMiddleware)
	}
	protected.HandleFunc("/gateways/{gatewayUID}/name", rm.setGatewayNameHandler).Methods("POST")
	protected.HandleFunc("/gateways/{gatewayUID}/nodes/{nodeID}/config", rm.setNodeConfigHandler).Methods("POST")
}
