// Package workflow routes each inbound email to exactly one stage and runs
// that stage against the vendor, inquiry and deadline stores.
package workflow

import (
	"encoding/json"
	"strings"
)

// RouteLabel is the closed set of workflow stages.
type RouteLabel int

const (
	RouteOther RouteLabel = iota
	RouteExtract
	RouteValidateContract
	RouteRecordSigningDate
	RouteSigningStatusUpdate
)

var routeNames = map[RouteLabel]string{
	RouteOther:               "OTHER",
	RouteExtract:             "EXTRACT",
	RouteValidateContract:    "VALIDATE_CONTRACT",
	RouteRecordSigningDate:   "RECORD_SIGNING_DATE",
	RouteSigningStatusUpdate: "SIGNING_STATUS_UPDATE",
}

// aliases accepts the earlier agent-style names.
var routeByName = map[string]RouteLabel{
	"OTHER":                 RouteOther,
	"EXTRACT":               RouteExtract,
	"VALIDATE_CONTRACT":     RouteValidateContract,
	"RECORD_SIGNING_DATE":   RouteRecordSigningDate,
	"SIGNING_STATUS_UPDATE": RouteSigningStatusUpdate,
	"EOI_EXTRACTOR":         RouteExtract,
	"CONTRACT_CHECKER":      RouteValidateContract,
	"SIGNING_DATE":          RouteRecordSigningDate,
	"SIGNING_STATUS":        RouteSigningStatusUpdate,
}

func (l RouteLabel) String() string {
	if s, ok := routeNames[l]; ok {
		return s
	}
	return "OTHER"
}

// MarshalText renders the label name.
func (l RouteLabel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// ParseRouteLabel maps a reasoning answer to a label. It accepts a bare
// label (optionally quoted) or {"route": "<label>"}; anything else,
// including several labels, is OTHER.
func ParseRouteLabel(raw string) RouteLabel {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "{") {
		var obj struct {
			Route string `json:"route"`
		}
		if err := json.Unmarshal([]byte(s), &obj); err != nil {
			return RouteOther
		}
		s = obj.Route
	}
	s = strings.Trim(strings.TrimSpace(s), "\"'`.")
	s = strings.ToUpper(strings.TrimSpace(s))
	if label, ok := routeByName[s]; ok {
		return label
	}
	return RouteOther
}
