package main

import (
	"fmt"
	"net/http"
	"net/url"
)

// goHandler redirects a scanned pin to the details page of its gateway or node.
// Query params:
//   - pin: required
//   - gateway or sensor: exactly one of them
func (rm *RouteManager) goHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()
	gatewayUID, hasGateway := singleValue(query, "gateway")
	nodeID, hasSensor := singleValue(query, "sensor")
	pin, hasPin := singleValue(query, "pin")
	if hasGateway == hasSensor || !hasPin {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	device, err := rm.service.ResolvePin(r.Context(), gatewayUID, nodeID, pin)
	if err != nil {
		writeError(w, err)
		return
	}
	if device == nil || device.GatewayUID == "" {
		writeErrorMessage(w, http.StatusNotFound, "gateway not found")
		return
	}

	target := fmt.Sprintf("/%s/details", url.PathEscape(device.GatewayUID))
	if device.NodeID != "" {
		target = fmt.Sprintf("/%s/node/%s/details?showDetails=1", url.PathEscape(device.GatewayUID), url.PathEscape(device.NodeID))
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// singleValue returns the parameter when it is given exactly once
func singleValue(query url.Values, key string) (string, bool) {
	values, ok := query[key]
	if !ok || len(values) != 1 {
		return "", false
	}
	return values[0], true
}
