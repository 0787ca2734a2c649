package httpapi

import (
	"errors"
	"net/http"
	"time"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/gatehouse/gatehouse/internal/gatehouse/service"
	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req types.ScanRequest
	if isProtobuf(r) {
		var pbReq wrapperspb.StringValue
		if err := readProto(r, &pbReq); err != nil {
			writeError(w, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
			return
		}
		req = scanRequestFromProto(&pbReq)
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	resp, err := s.accessService.RecordScan(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredential):
			writeError(w, http.StatusBadRequest, "invalid_uid", err.Error())
		default:
			s.logger.Error().Err(err).Msg("rfid_log error")
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	if wantsProtobuf(r) {
		msg, err := scanResponseToProto(resp)
		if err != nil {
			s.logger.Error().Err(err).Msg("rfid_log encode")
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}
		writeProto(w, http.StatusCreated, msg)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	views, err := s.accessService.RecentLogs(r.Context(), recentLogLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("get_logs error")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}
	s.logger.Debug().Str("operator", operatorFrom(r.Context())).Int("entries", len(views)).Msg("logs read")
	writeJSON(w, http.StatusOK, views)
}

// handleTrigger answers 403 for a body it cannot read as well as for a wrong
// secret; both go through the same rejection path.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req types.TriggerRequest
	if isProtobuf(r) {
		var pbReq wrapperspb.StringValue
		if err := readProto(r, &pbReq); err == nil {
			req = triggerRequestFromProto(&pbReq)
		}
	} else {
		_ = decodeJSON(w, r, &req)
	}

	if err := s.doorCommands.Trigger(r.Context(), req.Secret); err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			writeError(w, http.StatusForbidden, "forbidden", "invalid secret")
		default:
			s.logger.Error().Err(err).Msg("trigger_door error")
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, types.StatusResponse{
		Status:  "success",
		Message: "open command queued",
	})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	open, err := s.doorCommands.PollAndConsume(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("check_door_command error")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	resp := types.DoorCommandResponse{Open: open}
	if wantsProtobuf(r) {
		writeProto(w, http.StatusOK, doorCommandToProto(resp))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := types.HealthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("health check failing")
			resp.Status = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
