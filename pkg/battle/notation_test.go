package battle

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// mapDex is a minimal in-memory movedex for codec tests.
type mapDex map[string]Move

func (d mapDex) Move(id string) (Move, bool) {
	m, ok := d[id]
	return m, ok
}

func testDex() mapDex {
	return mapDex{
		"tackle": testMove("tackle", Normal, 40),
		"ember":  testMove("ember", Fire, 40),
	}
}

func TestNormalizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Flabébé", "flabebe"},
		{"Mr. Mime", "mrmime"},
		{"Farfetch'd", "farfetchd"},
		{"NIDORAN-F", "nidoranf"},
		{"tackle", "tackle"},
		{"Porygon2", "porygon2"},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	st := newTestState(t)
	st.Sides[SideOne].ActivePokemon().Status = Burn
	st.Sides[SideOne].ActivePokemon().Boosts[Attack] = 2
	st.Sides[SideOne].ActivePokemon().Volatiles.Add(Substitute)
	st.Sides[SideOne].ActivePokemon().Moves[0].PP = 3
	st.Sides[SideTwo].Active = 1
	st.Sides[SideTwo].Conditions[Spikes] = 2
	st.Sides[SideTwo].Conditions[Reflect] = 4
	st.Weather = Rain
	st.WeatherTurns = 3
	st.Terrain = GrassyTerrain
	st.TerrainTurns = 2
	st.TrickRoom = true

	encoded := Encode(st)
	decoded, err := Decode(encoded, testDex())
	if err != nil {
		t.Fatalf("Decode(%q): %v", encoded, err)
	}
	if !reflect.DeepEqual(decoded, st) {
		t.Errorf("round trip mismatch\n  in: %+v\n out: %+v", st, decoded)
	}
	if re := Encode(decoded); re != encoded {
		t.Errorf("re-encode mismatch\n was: %s\n now: %s", encoded, re)
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := Encode(newTestState(t))

	cases := []struct {
		name   string
		mangle func(string) string
		field  string
	}{
		{"missing sections", func(s string) string { return "only-one-section" }, "state"},
		{"bad type name", func(s string) string { return strings.Replace(s, "fire", "lava", 1) }, "side-one.growlithe.types"},
		{"bad status name", func(s string) string { return strings.Replace(s, ",none,", ",dizzy,", 1) }, "side-one.growlithe.status"},
		{"unknown move", func(s string) string { return strings.Replace(s, "tackle;", "headbutt;", 1) }, "side-one.growlithe.moves"},
		{"bad weather", func(s string) string { return replaceLast(s, "none;0;none;0;0", "fog;0;none;0;0") }, "field.weather"},
		{"bad trickroom", func(s string) string { return replaceLast(s, ";0", ";2") }, "field.trickroom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.mangle(valid), testDex())
			var derr *DecodeError
			if !errors.As(err, &derr) {
				t.Fatalf("Decode = %v, want *DecodeError", err)
			}
			if derr.Field != tc.field {
				t.Errorf("DecodeError.Field = %q, want %q", derr.Field, tc.field)
			}
		})
	}
}

func TestDecodeRejectsInvalidState(t *testing.T) {
	// Syntactically fine, semantically broken: hp above max.
	src := Encode(newTestState(t))
	src = strings.Replace(src, "growlithe,130,130", "growlithe,999,130", 1)
	_, err := Decode(src, testDex())
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("Decode = %v, want *DecodeError", err)
	}
	if derr.Field != "state" {
		t.Errorf("DecodeError.Field = %q, want state", derr.Field)
	}
}

func replaceLast(s, old, new string) string {
	i := strings.LastIndex(s, old)
	if i < 0 {
		return s
	}
	return s[:i] + new + s[i+len(old):]
}
