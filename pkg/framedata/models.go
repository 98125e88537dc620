package framedata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Int is an optional integer. Data files write numbers either as JSON numbers
// or as strings and use "" for unknown values; an unparsable scalar is absent.
// Objects and arrays are schema errors.
type Int struct {
	Value int
	Valid bool
}

func (i *Int) UnmarshalJSON(b []byte) error {
	*i = Int{}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt32 && x <= math.MaxInt32 {
			*i = Int{Value: int(x), Valid: true}
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			*i = Int{Value: n, Valid: true}
		}
	case map[string]any, []any:
		return fmt.Errorf("expected number or string, got %s", bytes.TrimSpace(b))
	}
	return nil
}

func (i Int) MarshalJSON() ([]byte, error) {
	if !i.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(i.Value)), nil
}

func (i Int) String() string {
	if !i.Valid {
		return "-"
	}
	return strconv.Itoa(i.Value)
}

// Float is an optional decimal with the same leniency as Int.
type Float struct {
	Value float64
	Valid bool
}

func (f *Float) UnmarshalJSON(b []byte) error {
	*f = Float{}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		*f = Float{Value: x, Valid: true}
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			*f = Float{Value: n, Valid: true}
		}
	case map[string]any, []any:
		return fmt.Errorf("expected number or string, got %s", bytes.TrimSpace(b))
	}
	return nil
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f.Value, 'f', -1, 64)), nil
}

func (f Float) String() string {
	if !f.Valid {
		return "-"
	}
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

// Text is a string field that some data files write as a bare integer.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		*t = Text(x)
	case float64:
		*t = Text(strconv.FormatFloat(x, 'f', -1, 64))
	default:
		return fmt.Errorf("expected string or number, got %s", b)
	}
	return nil
}

// CharacterInfo is the per-character metadata document (info.json).
type CharacterInfo struct {
	Name    Text     `json:"name"`
	Page    Text     `json:"page"`
	Servers []string `json:"servers,omitempty"`

	Defense               Float `json:"defense"`
	Guts                  Float `json:"guts"`
	GuardBalance          Float `json:"guard_balance"`
	Prejump               Int   `json:"prejump"`
	Umo                   Text  `json:"umo"`
	ForwardDash           Float `json:"forward_dash"`
	Backdash              Float `json:"backdash"`
	BackdashDuration      Int   `json:"backdash_duration"`
	BackdashInvincibility Int   `json:"backdash_invincibility"`
	BackdashAirborne      Text  `json:"backdash_airborne"`
	BackdashDistance      Float `json:"backdash_distance"`
	JumpDuration          Int   `json:"jump_duration"`
	JumpHeight            Float `json:"jump_height"`
	HighJumpDuration      Int   `json:"high_jump_duration"`
	HighJumpHeight        Float `json:"high_jump_height"`
	EarliestIAD           Text  `json:"earliest_iad"`
	ADDuration            Text  `json:"ad_duration"`
	ADDistance            Text  `json:"ad_distance"`
	ABDDuration           Text  `json:"abd_duration"`
	ABDDistance           Text  `json:"abd_distance"`
	MovementTension       Float `json:"movement_tension"`
	JumpTension           Float `json:"jump_tension"`
	AirdashTension        Float `json:"airdash_tension"`
	WalkSpeed             Float `json:"walk_speed"`
	BackWalkSpeed         Float `json:"back_walk_speed"`
	DashInitialSpeed      Float `json:"dash_initial_speed"`
	DashAcceleration      Float `json:"dash_acceleration"`
	DashFriction          Float `json:"dash_friction"`
	JumpGravity           Float `json:"jump_gravity"`
	HighJumpGravity       Float `json:"high_jump_gravity"`
}

// MoveInfo is one move's frame data record. Input is the canonical name
// (the move's notation, e.g. "6H"); Name is the display name.
type MoveInfo struct {
	Input         Text  `json:"input"`
	Name          Text  `json:"name"`
	Damage        Int   `json:"damage"`
	Guard         Text  `json:"guard"`
	Startup       Int   `json:"startup"`
	Active        Text  `json:"active"`
	Recovery      Int   `json:"recovery"`
	OnHit         Text  `json:"on_hit"`
	OnBlock       Text  `json:"on_block"`
	Level         Text  `json:"level"`
	Counter       Text  `json:"counter"`
	MoveType      Text  `json:"move_type"`
	RiscGain      Float `json:"risc_gain"`
	RiscLoss      Float `json:"risc_loss"`
	WallDamage    Int   `json:"wall_damage"`
	InputTension  Float `json:"input_tension"`
	ChipRatio     Float `json:"chip_ratio"`
	OTGRatio      Float `json:"otg_ratio"`
	Scaling       Float `json:"scaling"`
	Invincibility Text  `json:"invincibility"`
	Cancel        Text  `json:"cancel"`
	Caption       Text  `json:"caption"`
	Notes         Text  `json:"notes"`
}

// GuardType classifies how a move must be blocked.
type GuardType string

const (
	GuardUnknown     GuardType = ""
	GuardHigh        GuardType = "High"
	GuardMid         GuardType = "Mid"
	GuardLow         GuardType = "Low"
	GuardUnblockable GuardType = "Unblockable"
	GuardThrow       GuardType = "Throw"
)

// GuardType parses the Guard column. "All" is the dataset's spelling of mid.
func (m *MoveInfo) GuardType() GuardType {
	switch strings.ToLower(strings.TrimSpace(string(m.Guard))) {
	case "high":
		return GuardHigh
	case "mid", "all":
		return GuardMid
	case "low":
		return GuardLow
	case "unblockable":
		return GuardUnblockable
	case "throw", "air throw", "ground throw":
		return GuardThrow
	default:
		return GuardUnknown
	}
}

// Category groups moves the way the move list presents them.
type Category string

const (
	CategoryNormal  Category = "normal"
	CategorySpecial Category = "special"
	CategorySuper   Category = "super"
	CategoryOther   Category = "other"
)

// Category maps the free-form move_type column onto a Category.
func (m *MoveInfo) Category() Category {
	switch strings.ToLower(strings.TrimSpace(string(m.MoveType))) {
	case "normal":
		return CategoryNormal
	case "special":
		return CategorySpecial
	case "super", "overdrive":
		return CategorySuper
	default:
		return CategoryOther
	}
}

// AliasGroup is one entry of aliases.json: the aliases of the move whose
// canonical name is Input, in priority order.
type AliasGroup struct {
	Input   string   `json:"input"`
	Aliases []string `json:"aliases"`
}

// ImageLink is one entry of images.json.
type ImageLink struct {
	Input        string   `json:"input"`
	MoveImage    string   `json:"move_img"`
	HitboxImages []string `json:"hitbox_img"`
}

// ImageFile is the images.json document. Older scrapes write a bare array of
// links; that form carries no defaults.
type ImageFile struct {
	Default       string      `json:"default"`
	DefaultHitbox string      `json:"default_hitbox"`
	Moves         []ImageLink `json:"moves"`
}

func (f *ImageFile) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var links []ImageLink
		if err := json.Unmarshal(trimmed, &links); err != nil {
			return err
		}
		*f = ImageFile{Moves: links}
		return nil
	}
	type plain ImageFile
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*f = ImageFile(p)
	return nil
}

// NicknameEntry is one entry of nicknames.json.
type NicknameEntry struct {
	Character string   `json:"character"`
	Nicknames []string `json:"nicknames"`
}
