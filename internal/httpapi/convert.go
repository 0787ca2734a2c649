package httpapi

import (
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

// The scanner speaks well-known wrapper messages: a StringValue carrying
// the UID or secret on the way in, a Struct or BoolValue on the way out.

// ── Scan ─────────────────────────────────────────────────────────────────────

func scanRequestFromProto(p *wrapperspb.StringValue) types.ScanRequest {
	return types.ScanRequest{UID: p.GetValue()}
}

func scanResponseToProto(r types.ScanResponse) (*structpb.Struct, error) {
	fields := map[string]any{
		"status":        r.Status,
		"access_status": string(r.AccessStatus),
	}
	if r.Message != "" {
		fields["message"] = r.Message
	}
	return structpb.NewStruct(fields)
}

// ── Door ─────────────────────────────────────────────────────────────────────

func triggerRequestFromProto(p *wrapperspb.StringValue) types.TriggerRequest {
	return types.TriggerRequest{Secret: p.GetValue()}
}

func doorCommandToProto(r types.DoorCommandResponse) *wrapperspb.BoolValue {
	return wrapperspb.Bool(r.Open)
}
