package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-zigbee/internal/audit"
	"github.com/nerrad567/gray-logic-zigbee/internal/auth"
	"github.com/nerrad567/gray-logic-zigbee/internal/mgmt"
)

// managementTimeout bounds one management request. Radio requests are
// serialised, so a request may wait behind others.
const managementTimeout = 30 * time.Second

// handleManagement serves /api/v1/{group}/{name}. Known topics always answer
// 200 with the response envelope; failures are carried in its status.
func (s *Server) handleManagement(w http.ResponseWriter, r *http.Request) {
	topic := chi.URLParam(r, "group") + "/" + chi.URLParam(r, "name")
	kind, ok := mgmt.ParseTopic(topic)
	if !ok {
		writeProblem(w, r, http.StatusNotFound, "unknown management topic: "+topic)
		return
	}
	if !s.authorize(w, r, permissionFor(kind, r.Method)) {
		return
	}

	params, err := requestParams(r)
	if err != nil {
		writeJSON(w, http.StatusOK, mgmt.Response{Status: mgmt.StatusInvalid, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), managementTimeout)
	defer cancel()
	ctx = audit.WithActor(ctx, audit.SourceAPI, subjectFromContext(r.Context()))

	resp := s.svc.Dispatch(ctx, kind, mgmt.Request{Method: r.Method, Params: params})
	writeJSON(w, http.StatusOK, resp)
}

// permissionFor maps a request to the permission it needs. Reads need
// radio:read, factory reset needs radio:reset and every other write needs
// radio:configure.
func permissionFor(kind mgmt.Kind, method string) auth.Permission {
	switch {
	case method == http.MethodGet:
		return auth.PermRadioRead
	case kind == mgmt.KindStartupState:
		return auth.PermRadioReset
	default:
		return auth.PermRadioConfigure
	}
}

// requestParams merges the query string with a JSON object body. Body
// fields win over query fields of the same name. Numbers in the body keep
// their text so 64-bit values survive.
func requestParams(r *http.Request) (mgmt.Params, error) {
	params := mgmt.Params{}
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			params[name] = values[0]
		}
	}

	if r.Body == nil {
		return params, nil
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return params, nil
		}
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	for name, v := range body {
		params[name] = v
	}
	return params, nil
}
