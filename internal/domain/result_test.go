package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFetchKey(t *testing.T) {
	tests := []struct {
		name     string
		sel      Selection
		expected string
		ok       bool
	}{
		{
			name:     "personal with one profile",
			sel:      Selection{Purpose: PurposePersonal, FortuneType: FortuneTarot, ProfileIDs: []int{7}},
			expected: "tarot|personal|7",
			ok:       true,
		},
		{
			name:     "compatibility sorts ids",
			sel:      Selection{Purpose: PurposeCompatibility, FortuneType: FortuneHoroscope, ProfileIDs: []int{3, 1}},
			expected: "horoscope|compatibility|1,3",
			ok:       true,
		},
		{
			name: "missing fortune type",
			sel:  Selection{Purpose: PurposePersonal, ProfileIDs: []int{7}},
		},
		{
			name: "missing purpose",
			sel:  Selection{FortuneType: FortuneTarot, ProfileIDs: []int{7}},
		},
		{
			name: "incomplete compatibility selection",
			sel:  Selection{Purpose: PurposeCompatibility, FortuneType: FortuneTarot, ProfileIDs: []int{7}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := NewFetchKey(tt.sel)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, key.String())
			}
		})
	}
}

func TestFetchKey_OrderIndependent(t *testing.T) {
	a, ok := NewFetchKey(Selection{Purpose: PurposeCompatibility, FortuneType: FortuneNumerology, ProfileIDs: []int{3, 1}})
	require.True(t, ok)
	b, ok := NewFetchKey(Selection{Purpose: PurposeCompatibility, FortuneType: FortuneNumerology, ProfileIDs: []int{1, 3}})
	require.True(t, ok)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.String(), b.String())
}

func TestNewFetchKey_DoesNotReorderSelection(t *testing.T) {
	sel := Selection{Purpose: PurposeCompatibility, FortuneType: FortuneTarot, ProfileIDs: []int{9, 2}}
	_, ok := NewFetchKey(sel)
	require.True(t, ok)
	assert.Equal(t, []int{9, 2}, sel.ProfileIDs)
}

func TestDivinationPayload_Unmarshal(t *testing.T) {
	data := []byte(`{
		"fortune_type": "numerology",
		"purpose": "personal",
		"ai_analysis": "あなたの運命数は7です",
		"visual_result": {"numbers": [7]},
		"numerology_data": {"life_path": 7}
	}`)

	var p DivinationPayload
	require.NoError(t, json.Unmarshal(data, &p))

	assert.Equal(t, FortuneNumerology, p.FortuneType)
	assert.Equal(t, PurposePersonal, p.Purpose)
	assert.Equal(t, "あなたの運命数は7です", p.AIText())
	assert.JSONEq(t, `{"numbers": [7]}`, string(p.VisualResult))

	var section struct {
		LifePath int `json:"life_path"`
	}
	require.NoError(t, p.Section("numerology_data", &section))
	assert.Equal(t, 7, section.LifePath)
	assert.Error(t, p.Section("horoscope_data", &section))
}

func TestDivinationPayload_StructuredAnalysis(t *testing.T) {
	var p DivinationPayload
	require.NoError(t, json.Unmarshal([]byte(`{"fortune_type":"tarot","ai_analysis":{"summary":"ok"}}`), &p))
	assert.JSONEq(t, `{"summary":"ok"}`, p.AIText())

	var empty *DivinationPayload
	assert.Equal(t, "", empty.AIText())
}

func TestNewDivinationRequest(t *testing.T) {
	key, ok := NewFetchKey(Selection{Purpose: PurposePersonal, FortuneType: FortuneTarot, ProfileIDs: []int{7}})
	require.True(t, ok)

	req := NewDivinationRequest(key, []Profile{{ID: 7, Nickname: "たろう"}}, "仕事運")
	body, err := json.Marshal(req)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"fortune_type": "tarot",
		"request_data": {
			"type": "tarot",
			"purpose": "personal",
			"profiles": [{"profile_id": 7, "nickname": "たろう", "name_hiragana": "", "is_self_flag": false}],
			"consultation": "仕事運"
		},
		"visual_result": {},
		"ai_text": ""
	}`, string(body))
}
