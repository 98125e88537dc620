package framedata

import (
	"encoding/json"
	"testing"
)

func TestIntUnmarshal(t *testing.T) {
	tests := []struct {
		input string
		want  Int
	}{
		{`12`, Int{Value: 12, Valid: true}},
		{`"12"`, Int{Value: 12, Valid: true}},
		{`" -3 "`, Int{Value: -3, Valid: true}},
		{`""`, Int{}},
		{`"-"`, Int{}},
		{`"50*5"`, Int{}},
		{`1.5`, Int{}},
		{`null`, Int{}},
		{`true`, Int{}},
	}
	for _, tt := range tests {
		var got Int
		if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
			t.Errorf("Unmarshal(%s): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestFloatUnmarshal(t *testing.T) {
	tests := []struct {
		input string
		want  Float
	}{
		{`1.06`, Float{Value: 1.06, Valid: true}},
		{`"0.9"`, Float{Value: 0.9, Valid: true}},
		{`""`, Float{}},
		{`"n/a"`, Float{}},
	}
	for _, tt := range tests {
		var got Float
		if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
			t.Errorf("Unmarshal(%s): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestNumberUnmarshalRejectsContainers(t *testing.T) {
	for _, input := range []string{`{"v": 12}`, `[12]`, `[]`} {
		var i Int
		if err := json.Unmarshal([]byte(input), &i); err == nil {
			t.Errorf("Int Unmarshal(%s) = %+v, want error", input, i)
		}
		var f Float
		if err := json.Unmarshal([]byte(input), &f); err == nil {
			t.Errorf("Float Unmarshal(%s) = %+v, want error", input, f)
		}
	}
}

func TestTextUnmarshal(t *testing.T) {
	var m struct {
		A Text `json:"a"`
		B Text `json:"b"`
		C Text `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": "-1", "b": 3, "c": null}`), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m.A != "-1" || m.B != "3" || m.C != "" {
		t.Errorf("got %q %q %q, want -1 3 empty", m.A, m.B, m.C)
	}

	var bad Text
	if err := json.Unmarshal([]byte(`{"x": 1}`), &bad); err == nil {
		t.Error("expected error for object value")
	}
}

func TestOptionalMarshal(t *testing.T) {
	out, err := json.Marshal(struct {
		A Int   `json:"a"`
		B Int   `json:"b"`
		C Float `json:"c"`
	}{A: Int{Value: 7, Valid: true}, C: Float{Value: 0.5, Valid: true}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := `{"a":7,"b":null,"c":0.5}`; string(out) != want {
		t.Errorf("Marshal = %s, want %s", out, want)
	}
	if s := (Int{}).String(); s != "-" {
		t.Errorf("Int{}.String() = %q, want -", s)
	}
}

func TestGuardType(t *testing.T) {
	tests := []struct {
		guard string
		want  GuardType
	}{
		{"All", GuardMid},
		{"High", GuardHigh},
		{" low ", GuardLow},
		{"Unblockable", GuardUnblockable},
		{"Throw", GuardThrow},
		{"Air Throw", GuardThrow},
		{"", GuardUnknown},
	}
	for _, tt := range tests {
		m := MoveInfo{Guard: Text(tt.guard)}
		if got := m.GuardType(); got != tt.want {
			t.Errorf("GuardType(%q) = %q, want %q", tt.guard, got, tt.want)
		}
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		moveType string
		want     Category
	}{
		{"normal", CategoryNormal},
		{"Special", CategorySpecial},
		{"super", CategorySuper},
		{"overdrive", CategorySuper},
		{"other", CategoryOther},
		{"", CategoryOther},
	}
	for _, tt := range tests {
		m := MoveInfo{MoveType: Text(tt.moveType)}
		if got := m.Category(); got != tt.want {
			t.Errorf("Category(%q) = %q, want %q", tt.moveType, got, tt.want)
		}
	}
}
