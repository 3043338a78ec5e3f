package battle

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Textual state encoding, in the spirit of FEN: compact, one line, and an
// exact inverse of Decode for every valid state.
//
//	state      := side "/" side "/" field
//	side       := pokemon ("|" pokemon)* "|" <active index> "|" conditions
//	pokemon    := id "," hp "," maxhp "," level "," type1 "," type2 ","
//	              atk "," def "," spa "," spd "," spe "," status ","
//	              boosts "," volatiles "," moves
//	boosts     := atk ";" def ";" spa ";" spd ";" spe
//	volatiles  := "-" | name (";" name)*
//	moves      := moveentry ("^" moveentry)*
//	moveentry  := id ";" pp ";" disabled(0|1)
//	conditions := "-" | name ":" count ("," name ":" count)*
//	field      := weather ";" turns ";" terrain ";" turns ";" trickroom(0|1)
//
// Conditions and volatiles are written in enum order so encoding is
// canonical.

// Movedex resolves a move identifier to its full rule data. The rule
// variant package implements it; the battle package never hard-codes move
// attributes.
type Movedex interface {
	Move(id string) (Move, bool)
}

// DecodeError identifies the offending field of a malformed encoding.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Field, e.Reason)
}

func decodeErrf(field, format string, args ...any) *DecodeError {
	return &DecodeError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

var nameNormalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName folds a display name to the identifier form used by the
// encoding: lower case, diacritics stripped, alphanumerics only
// ("Flabébé" -> "flabebe").
func NormalizeName(s string) string {
	folded, _, err := transform.String(nameNormalizer, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Encode serializes a state. Encode and Decode are exact inverses for all
// valid states.
func Encode(st *State) string {
	var b strings.Builder
	for i := range st.Sides {
		if i > 0 {
			b.WriteByte('/')
		}
		encodeSide(&b, &st.Sides[i])
	}
	fmt.Fprintf(&b, "/%s;%d;%s;%d;%d",
		st.Weather, st.WeatherTurns, st.Terrain, st.TerrainTurns, boolToInt(st.TrickRoom))
	return b.String()
}

func encodeSide(b *strings.Builder, s *Side) {
	for i := range s.Pokemon {
		if i > 0 {
			b.WriteByte('|')
		}
		encodePokemon(b, &s.Pokemon[i])
	}
	fmt.Fprintf(b, "|%d|", s.Active)

	wrote := false
	for c := SideCondition(0); c < NumSideConditions; c++ {
		if n := s.Conditions[c]; n != 0 {
			if wrote {
				b.WriteByte(',')
			}
			fmt.Fprintf(b, "%s:%d", c, n)
			wrote = true
		}
	}
	if !wrote {
		b.WriteByte('-')
	}
}

func encodePokemon(b *strings.Builder, p *Pokemon) {
	fmt.Fprintf(b, "%s,%d,%d,%d,%s,%s,%d,%d,%d,%d,%d,%s,",
		p.ID, p.HP, p.MaxHP, p.Level, p.Types[0], p.Types[1],
		p.Attack, p.Defense, p.SpecialAttack, p.SpecialDefense, p.Speed, p.Status)

	for i, boost := range p.Boosts {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strconv.Itoa(boost))
	}
	b.WriteByte(',')

	wrote := false
	for v := Volatile(0); v < NumVolatiles; v++ {
		if p.Volatiles.Has(v) {
			if wrote {
				b.WriteByte(';')
			}
			b.WriteString(v.String())
			wrote = true
		}
	}
	if !wrote {
		b.WriteByte('-')
	}
	b.WriteByte(',')

	for i := range p.Moves {
		if i > 0 {
			b.WriteByte('^')
		}
		m := &p.Moves[i]
		fmt.Fprintf(b, "%s;%d;%d", m.ID, m.PP, boolToInt(m.Disabled))
	}
}

// Decode parses an encoded state, resolving move identifiers through the
// given movedex, and validates the result. A malformed encoding yields a
// *DecodeError naming the offending field.
func Decode(src string, dex Movedex) (*State, error) {
	parts := strings.Split(strings.TrimSpace(src), "/")
	if len(parts) != 3 {
		return nil, decodeErrf("state", "expected 2 sides and a field section, got %d sections", len(parts))
	}

	var st State
	for i := 0; i < 2; i++ {
		side, err := decodeSide(parts[i], SideID(i), dex)
		if err != nil {
			return nil, err
		}
		st.Sides[i] = *side
	}
	if err := decodeField(parts[2], &st); err != nil {
		return nil, err
	}
	if err := st.Validate(); err != nil {
		return nil, &DecodeError{Field: "state", Reason: err.Error()}
	}
	return &st, nil
}

func decodeSide(src string, id SideID, dex Movedex) (*Side, error) {
	chunks := strings.Split(src, "|")
	if len(chunks) < 3 {
		return nil, decodeErrf(id.String(), "expected roster, active index and conditions")
	}
	condSrc := chunks[len(chunks)-1]
	activeSrc := chunks[len(chunks)-2]
	rosterSrc := chunks[:len(chunks)-2]

	side := &Side{}
	for _, pSrc := range rosterSrc {
		p, err := decodePokemon(pSrc, id, dex)
		if err != nil {
			return nil, err
		}
		side.Pokemon = append(side.Pokemon, *p)
	}

	active, err := strconv.Atoi(activeSrc)
	if err != nil {
		return nil, decodeErrf(id.String()+".active", "%q is not an integer", activeSrc)
	}
	side.Active = active

	if condSrc != "-" {
		for _, entry := range strings.Split(condSrc, ",") {
			name, countSrc, ok := strings.Cut(entry, ":")
			if !ok {
				return nil, decodeErrf(id.String()+".conditions", "entry %q has no count", entry)
			}
			cond, ok := SideConditionFromName(name)
			if !ok {
				return nil, decodeErrf(id.String()+".conditions", "unknown condition %q", name)
			}
			n, err := strconv.Atoi(countSrc)
			if err != nil {
				return nil, decodeErrf(id.String()+".conditions", "count %q is not an integer", countSrc)
			}
			side.Conditions[cond] = n
		}
	}
	return side, nil
}

func decodePokemon(src string, id SideID, dex Movedex) (*Pokemon, error) {
	fields := strings.Split(src, ",")
	if len(fields) != 15 {
		return nil, decodeErrf(id.String()+".pokemon", "expected 15 fields, got %d in %q", len(fields), src)
	}
	where := id.String() + "." + fields[0]

	p := &Pokemon{ID: NormalizeName(fields[0])}
	if p.ID == "" {
		return nil, decodeErrf(where, "empty species id")
	}

	ints := make([]int, 0, 9)
	for _, f := range []struct{ name, v string }{
		{"hp", fields[1]}, {"maxhp", fields[2]}, {"level", fields[3]},
		{"attack", fields[6]}, {"defense", fields[7]},
		{"special-attack", fields[8]}, {"special-defense", fields[9]}, {"speed", fields[10]},
	} {
		n, err := strconv.Atoi(f.v)
		if err != nil {
			return nil, decodeErrf(where+"."+f.name, "%q is not an integer", f.v)
		}
		ints = append(ints, n)
	}
	p.HP, p.MaxHP, p.Level = ints[0], ints[1], ints[2]
	p.Attack, p.Defense, p.SpecialAttack, p.SpecialDefense, p.Speed = ints[3], ints[4], ints[5], ints[6], ints[7]

	for i, t := range []string{fields[4], fields[5]} {
		typ, ok := TypeFromName(t)
		if !ok {
			return nil, decodeErrf(where+".types", "unknown type %q", t)
		}
		p.Types[i] = typ
	}

	status, ok := StatusFromName(fields[11])
	if !ok {
		return nil, decodeErrf(where+".status", "unknown status %q", fields[11])
	}
	p.Status = status

	boosts := strings.Split(fields[12], ";")
	if len(boosts) != int(NumStats) {
		return nil, decodeErrf(where+".boosts", "expected %d stages, got %d", NumStats, len(boosts))
	}
	for i, b := range boosts {
		n, err := strconv.Atoi(b)
		if err != nil {
			return nil, decodeErrf(where+".boosts", "%q is not an integer", b)
		}
		p.Boosts[Stat(i)] = n
	}

	if fields[13] != "-" {
		for _, name := range strings.Split(fields[13], ";") {
			v, ok := VolatileFromName(name)
			if !ok {
				return nil, decodeErrf(where+".volatiles", "unknown volatile %q", name)
			}
			p.Volatiles.Add(v)
		}
	}

	for _, entry := range strings.Split(fields[14], "^") {
		sub := strings.Split(entry, ";")
		if len(sub) != 3 {
			return nil, decodeErrf(where+".moves", "entry %q is not id;pp;disabled", entry)
		}
		moveID := NormalizeName(sub[0])
		mv, ok := dex.Move(moveID)
		if !ok {
			return nil, decodeErrf(where+".moves", "unknown move %q", sub[0])
		}
		pp, err := strconv.Atoi(sub[1])
		if err != nil {
			return nil, decodeErrf(where+".moves", "pp %q is not an integer", sub[1])
		}
		mv.PP = pp
		mv.Disabled = sub[2] == "1"
		p.Moves = append(p.Moves, mv)
	}
	return p, nil
}

func decodeField(src string, st *State) error {
	fields := strings.Split(src, ";")
	if len(fields) != 5 {
		return decodeErrf("field", "expected 5 entries, got %d", len(fields))
	}
	weather, ok := WeatherFromName(fields[0])
	if !ok {
		return decodeErrf("field.weather", "unknown weather %q", fields[0])
	}
	st.Weather = weather

	turns, err := strconv.Atoi(fields[1])
	if err != nil {
		return decodeErrf("field.weather-turns", "%q is not an integer", fields[1])
	}
	st.WeatherTurns = turns

	terrain, ok := TerrainFromName(fields[2])
	if !ok {
		return decodeErrf("field.terrain", "unknown terrain %q", fields[2])
	}
	st.Terrain = terrain

	turns, err = strconv.Atoi(fields[3])
	if err != nil {
		return decodeErrf("field.terrain-turns", "%q is not an integer", fields[3])
	}
	st.TerrainTurns = turns

	switch fields[4] {
	case "0":
		st.TrickRoom = false
	case "1":
		st.TrickRoom = true
	default:
		return decodeErrf("field.trickroom", "%q is not 0 or 1", fields[4])
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
