package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

// getGatewaysHandler returns all gateways with their nodes
func (rm *RouteManager) getGatewaysHandler(w http.ResponseWriter, r *http.Request) {
	gateways, err := rm.service.GetGateways(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gateways)
}

// getGatewayHandler returns one gateway
func (rm *RouteManager) getGatewayHandler(w http.ResponseWriter, r *http.Request) {
	gateway, err := rm.service.GetGateway(r.Context(), mux.Vars(r)["gatewayUID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gateway)
}

// getProjectLatestHandler returns the latest readings of the whole project
func (rm *RouteManager) getProjectLatestHandler(w http.ResponseWriter, r *http.Request) {
	latest, err := rm.service.GetLatestProjectReadings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

type gatewayNameRequest struct {
	Name *string `json:"name"`
}

// setGatewayNameHandler renames a gateway
func (rm *RouteManager) setGatewayNameHandler(w http.ResponseWriter, r *http.Request) {
	var req gatewayNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "name should be a string")
		return
	}
	if req.Name == nil {
		writeErrorMessage(w, http.StatusBadRequest, "name is required")
		return
	}

	gatewayUID := mux.Vars(r)["gatewayUID"]
	if err := rm.service.SetGatewayName(r.Context(), gatewayUID, *req.Name); err != nil {
		writeError(w, err)
		return
	}

	if user := GetUserFromContext(r.Context()); user != "" {
		log.Printf("✓ Gateway %s renamed by %s", gatewayUID, user)
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}
