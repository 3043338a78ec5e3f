package battle

import "fmt"

// ChoiceKind discriminates an action: use a move slot, switch to a roster
// slot, or do nothing (only legal when nothing else is).
type ChoiceKind uint8

const (
	ChoiceNone ChoiceKind = iota
	ChoiceMove
	ChoiceSwitch
)

// Choice is one action for one side. Index is a move slot for ChoiceMove
// and a roster slot for ChoiceSwitch.
type Choice struct {
	Kind  ChoiceKind
	Index int
}

func (c Choice) String() string {
	switch c.Kind {
	case ChoiceMove:
		return fmt.Sprintf("move:%d", c.Index)
	case ChoiceSwitch:
		return fmt.Sprintf("switch:%d", c.Index)
	}
	return "none"
}

// Describe renders a choice with the names from the given side.
func (s *Side) Describe(c Choice) string {
	switch c.Kind {
	case ChoiceMove:
		return s.ActivePokemon().Moves[c.Index].ID
	case ChoiceSwitch:
		return "switch " + s.Pokemon[c.Index].ID
	}
	return "none"
}

// Options enumerates the legal actions for one side in a fixed order:
// usable moves by slot, then switches by roster slot. A side whose active
// combatant fainted may only switch; a side with nothing available gets
// the single ChoiceNone action.
func (s *Side) Options() []Choice {
	var opts []Choice
	active := s.ActivePokemon()

	if !active.Fainted() {
		for i := range active.Moves {
			if active.Moves[i].Usable() {
				opts = append(opts, Choice{Kind: ChoiceMove, Index: i})
			}
		}
	}
	for i := range s.Pokemon {
		if i == s.Active || s.Pokemon[i].Fainted() {
			continue
		}
		opts = append(opts, Choice{Kind: ChoiceSwitch, Index: i})
	}

	if len(opts) == 0 {
		opts = append(opts, Choice{Kind: ChoiceNone})
	}
	return opts
}

// Legal reports whether the choice is among the side's current options.
func (s *Side) Legal(c Choice) bool {
	for _, o := range s.Options() {
		if o == c {
			return true
		}
	}
	return false
}

// ChoiceFromString parses a user-supplied action name: a move id on the
// active combatant, or a species id of a healthy benched teammate.
func (s *Side) ChoiceFromString(name string) (Choice, error) {
	if name == "none" {
		return Choice{Kind: ChoiceNone}, nil
	}
	for i := range s.Pokemon {
		if s.Pokemon[i].ID == name && i != s.Active {
			return Choice{Kind: ChoiceSwitch, Index: i}, nil
		}
	}
	active := s.ActivePokemon()
	for i := range active.Moves {
		if active.Moves[i].ID == name {
			return Choice{Kind: ChoiceMove, Index: i}, nil
		}
	}
	return Choice{}, fmt.Errorf("%w: %q matches no move or benched teammate", ErrIllegalAction, name)
}
