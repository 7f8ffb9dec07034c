package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// getNodesHandler returns the nodes of the gateways listed in ?gateway=uid1,uid2,
// or of every gateway when none are listed
func (rm *RouteManager) getNodesHandler(w http.ResponseWriter, r *http.Request) {
	var gatewayUIDs []string
	if param := r.URL.Query().Get("gateway"); param != "" {
		for _, uid := range strings.Split(param, ",") {
			if uid = strings.TrimSpace(uid); uid != "" {
				gatewayUIDs = append(gatewayUIDs, uid)
			}
		}
	}

	nodes, err := rm.service.GetNodes(r.Context(), gatewayUIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

// getGatewayNodesHandler returns the nodes of one gateway
func (rm *RouteManager) getGatewayNodesHandler(w http.ResponseWriter, r *http.Request) {
	nodes, err := rm.service.GetNodes(r.Context(), []string{mux.Vars(r)["gatewayUID"]})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

// getNodeHandler returns one node
func (rm *RouteManager) getNodeHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	node, err := rm.service.GetNode(r.Context(), vars["gatewayUID"], vars["nodeID"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// getNodeDataHandler returns the readings of a node
// Query params:
//   - minutesBeforeNow: size of the window, defaults to the configured recency window
func (rm *RouteManager) getNodeDataHandler(w http.ResponseWriter, r *http.Request) {
	minutes := 0
	if param := r.URL.Query().Get("minutesBeforeNow"); param != "" {
		m, err := strconv.Atoi(param)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "minutesBeforeNow should be an integer")
			return
		}
		minutes = m
	}

	vars := mux.Vars(r)
	readings, err := rm.service.GetNodeData(r.Context(), vars["gatewayUID"], vars["nodeID"], minutes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// nodeConfigRequest holds the optional fields of a node config change
type nodeConfigRequest struct {
	Name     *string
	Location *string
}

// parseNodeConfig validates that name and location are strings when present
// and that at least one of them is given
func parseNodeConfig(r *http.Request) (*nodeConfigRequest, error) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("body should be a JSON object")
	}

	req := &nodeConfigRequest{}
	fields := []struct {
		name   string
		target **string
	}{
		{"name", &req.Name},
		{"location", &req.Location},
	}
	for _, f := range fields {
		field, target := f.name, f.target
		raw, ok := body[field]
		if !ok || string(raw) == "null" {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("%s should be a string or undefined", field)
		}
		*target = &value
	}

	if req.Name == nil && req.Location == nil {
		return nil, fmt.Errorf("name or location is required")
	}
	return req, nil
}

// setNodeConfigHandler changes the name and/or location of a node
func (rm *RouteManager) setNodeConfigHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parseNodeConfig(r)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	vars := mux.Vars(r)
	gatewayUID, nodeID := vars["gatewayUID"], vars["nodeID"]

	if req.Name != nil {
		if err := rm.service.SetNodeName(r.Context(), gatewayUID, nodeID, *req.Name); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Location != nil {
		if err := rm.service.SetNodeLocation(r.Context(), gatewayUID, nodeID, *req.Location); err != nil {
			writeError(w, err)
			return
		}
	}

	if user := GetUserFromContext(r.Context()); user != "" {
		log.Printf("✓ Node %s/%s configured by %s", gatewayUID, nodeID, user)
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}
