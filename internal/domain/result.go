package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FetchKey identifies a distinct divination request.
// ProfileIDs are kept sorted so selection order does not matter.
type FetchKey struct {
	FortuneType FortuneType
	Purpose     Purpose
	ProfileIDs  []int
}

// NewFetchKey builds the key for a selection, or false when the selection is incomplete
func NewFetchKey(sel Selection) (FetchKey, bool) {
	if !sel.FortuneType.Valid() || !sel.Purpose.Valid() {
		return FetchKey{}, false
	}
	if len(sel.ProfileIDs) != sel.Purpose.SelectionCap() {
		return FetchKey{}, false
	}
	ids := append([]int(nil), sel.ProfileIDs...)
	sort.Ints(ids)
	return FetchKey{
		FortuneType: sel.FortuneType,
		Purpose:     sel.Purpose,
		ProfileIDs:  ids,
	}, true
}

// String renders the key as a comparable token
func (k FetchKey) String() string {
	ids := make([]string, len(k.ProfileIDs))
	for i, id := range k.ProfileIDs {
		ids[i] = strconv.Itoa(id)
	}
	return fmt.Sprintf("%s|%s|%s", k.FortuneType, k.Purpose, strings.Join(ids, ","))
}

// Equal reports whether two keys identify the same request
func (k FetchKey) Equal(other FetchKey) bool {
	return k.String() == other.String()
}

// IsZero reports whether the key is unset
func (k FetchKey) IsZero() bool {
	return k.FortuneType == FortuneNone && k.Purpose == PurposeNone && len(k.ProfileIDs) == 0
}

// ResultStatus is the lifecycle of the divination result
type ResultStatus string

const (
	ResultIdle    ResultStatus = "idle"
	ResultLoading ResultStatus = "loading"
	ResultReady   ResultStatus = "ready"
	ResultError   ResultStatus = "error"
)

// DivinationResult is the result slot of the result screen
type DivinationResult struct {
	Key     FetchKey
	Status  ResultStatus
	Payload *DivinationPayload
}

// IdleResult is the empty result slot
func IdleResult() DivinationResult {
	return DivinationResult{Status: ResultIdle}
}

// DivinationPayload is the backend result. Fields shared by all fortune types are
// decoded; type-specific sections stay raw.
type DivinationPayload struct {
	FortuneType  FortuneType
	Purpose      Purpose
	AIAnalysis   json.RawMessage
	VisualResult json.RawMessage
	Sections     map[string]json.RawMessage
}

// UnmarshalJSON decodes the typed union returned by the backend
func (p *DivinationPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["fortune_type"]; ok {
		if err := json.Unmarshal(v, &p.FortuneType); err != nil {
			return fmt.Errorf("fortune_type: %w", err)
		}
		delete(raw, "fortune_type")
	}
	if v, ok := raw["purpose"]; ok {
		if err := json.Unmarshal(v, &p.Purpose); err != nil {
			return fmt.Errorf("purpose: %w", err)
		}
		delete(raw, "purpose")
	}
	p.AIAnalysis = raw["ai_analysis"]
	delete(raw, "ai_analysis")
	p.VisualResult = raw["visual_result"]
	delete(raw, "visual_result")

	p.Sections = raw
	return nil
}

// AIText returns the AI analysis as display text
func (p *DivinationPayload) AIText() string {
	if p == nil || len(p.AIAnalysis) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.AIAnalysis, &s); err == nil {
		return s
	}
	return string(p.AIAnalysis)
}

// Section decodes a type-specific section such as "numerology_data"
func (p *DivinationPayload) Section(name string, v any) error {
	if p == nil {
		return fmt.Errorf("section %q: empty payload", name)
	}
	data, ok := p.Sections[name]
	if !ok {
		return fmt.Errorf("section %q not found", name)
	}
	return json.Unmarshal(data, v)
}

// DivinationRequest is the body of POST /divination-results/
type DivinationRequest struct {
	FortuneType  FortuneType           `json:"fortune_type"`
	RequestData  DivinationRequestData `json:"request_data"`
	VisualResult map[string]any        `json:"visual_result"`
	AIText       string                `json:"ai_text"`
}

// DivinationRequestData is the request_data section of a divination request
type DivinationRequestData struct {
	Type         FortuneType `json:"type"`
	Purpose      Purpose     `json:"purpose"`
	Profiles     []Profile   `json:"profiles"`
	Consultation string      `json:"consultation"`
}

// NewDivinationRequest assembles the request for key with profiles in selection order
func NewDivinationRequest(key FetchKey, profiles []Profile, consultation string) DivinationRequest {
	return DivinationRequest{
		FortuneType: key.FortuneType,
		RequestData: DivinationRequestData{
			Type:         key.FortuneType,
			Purpose:      key.Purpose,
			Profiles:     profiles,
			Consultation: consultation,
		},
		VisualResult: map[string]any{},
	}
}
