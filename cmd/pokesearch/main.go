// Command pokesearch is an interactive shell around the battle engine:
// load an encoded state, inspect it, generate and apply instruction
// branches, and run the three search strategies against it.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/lunargale/pokesearch/pkg/battle"
	"github.com/lunargale/pokesearch/pkg/dex"
	"github.com/lunargale/pokesearch/pkg/resolve"
	"github.com/lunargale/pokesearch/pkg/search"
)

func main() {
	var (
		stateFlag   = flag.String("state", "", "encoded battle state (required)")
		genFlag     = flag.String("gen", "gen9", "built-in rule variant: gen4 or gen9")
		variantFlag = flag.String("variant", "", "path to a custom rule variant yaml, overrides -gen")
		runFlag     = flag.String("run", "", "run a single command and exit, e.g. 'id 200'")
	)
	flag.Parse()

	if *stateFlag == "" {
		fmt.Fprintln(os.Stderr, "pokesearch: -state is required")
		flag.Usage()
		os.Exit(2)
	}

	var (
		gen *dex.Generation
		err error
	)
	if *variantFlag != "" {
		gen, err = dex.LoadFile(*variantFlag)
	} else {
		gen, err = dex.Load(*genFlag)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pokesearch: %v\n", err)
		os.Exit(1)
	}

	st, err := battle.Decode(*stateFlag, gen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pokesearch: %v\n", err)
		os.Exit(1)
	}

	r := newREPL(st, gen)
	if *runFlag != "" {
		if !r.dispatch(strings.Fields(*runFlag)) {
			os.Exit(0)
		}
		return
	}
	r.loop()
}

type repl struct {
	st     *battle.State
	gen    *dex.Generation
	res    *resolve.Resolver
	eng    *battle.Engine
	output *termenv.Output

	// Last generated branch set, target of the apply command.
	branches []battle.Branch
}

func newREPL(st *battle.State, gen *dex.Generation) *repl {
	return &repl{
		st:     st,
		gen:    gen,
		res:    resolve.New(gen),
		eng:    battle.NewEngine(st),
		output: termenv.NewOutput(os.Stdout),
	}
}

func (r *repl) loop() {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if r.dispatch(fields) {
			return
		}
	}
}

// dispatch runs one command; returns true to exit the loop.
func (r *repl) dispatch(args []string) bool {
	cmd, args := args[0], args[1:]
	switch cmd {
	case "exit", "quit", "q":
		return true
	case "help", "h":
		r.help()
	case "state", "s":
		r.showState()
	case "serialize", "ser":
		fmt.Println(battle.Encode(r.st))
	case "options", "legal-moves", "o":
		r.showOptions()
	case "matchup", "m":
		r.showMatchup()
	case "evaluate", "ev":
		fmt.Printf("%.2f\n", search.Evaluate(r.st))
	case "generate-instructions", "g":
		r.generate(args)
	case "apply", "a":
		r.apply(args)
	case "pop", "p":
		if err := r.eng.Revert(); err != nil {
			r.errorf("%v", err)
		}
	case "pop-all", "pa":
		r.eng.RevertAll()
	case "calculate-damage", "d":
		r.damage(args)
	case "expectiminimax", "e":
		r.expectimax(args)
	case "iterative-deepening", "id":
		r.deepening(args)
	case "monte-carlo", "mc":
		r.monteCarlo(args)
	default:
		r.errorf("unknown command %q, try help", cmd)
	}
	return false
}

func (r *repl) help() {
	fmt.Print(`commands:
  state, s                      show the battle state
  serialize, ser                print the encoded state
  options, o                    list legal actions per side
  matchup, m                    actives, speeds and turn order
  evaluate, ev                  score the state
  generate-instructions, g A B  branch the turn on actions A and B
  apply, a N                    apply generated branch N
  pop, p                        undo the last applied branch
  pop-all, pa                   undo everything
  calculate-damage, d A B       damage rolls for actions A and B
  expectiminimax, e [depth] [prune]
  iterative-deepening, id [ms]
  monte-carlo, mc [ms]
  exit, q
`)
}

func (r *repl) errorf(format string, args ...any) {
	msg := r.output.String(fmt.Sprintf(format, args...)).Foreground(termenv.ANSIRed)
	fmt.Println(msg)
}

func (r *repl) headline(s string) {
	fmt.Println(r.output.String(s).Bold())
}

func (r *repl) showState() {
	for _, id := range []battle.SideID{battle.SideOne, battle.SideTwo} {
		s := r.st.Side(id)
		r.headline(id.String())
		for i := range s.Pokemon {
			p := &s.Pokemon[i]
			marker := "  "
			if i == s.Active {
				marker = "* "
			}
			line := fmt.Sprintf("%s%-12s %4d/%-4d hp  status=%s", marker, p.ID, p.HP, p.MaxHP, p.Status)
			if p.Fainted() {
				line = r.output.String(line).Faint().String()
			}
			fmt.Println(line)
			if i == s.Active {
				for j := range p.Moves {
					m := &p.Moves[j]
					state := ""
					if !m.Usable() {
						state = " (unusable)"
					}
					fmt.Printf("      %-14s %s %-8s pp=%d%s\n", m.ID, m.Type, m.Category, m.PP, state)
				}
			}
		}
		conds := ""
		for c := battle.SideCondition(0); c < battle.NumSideConditions; c++ {
			if n := s.Condition(c); n > 0 {
				conds += fmt.Sprintf(" %s=%d", c, n)
			}
		}
		if conds != "" {
			fmt.Printf("  conditions:%s\n", conds)
		}
	}
	fmt.Printf("field: weather=%s(%d) terrain=%s(%d) trickroom=%v\n",
		r.st.Weather, r.st.WeatherTurns, r.st.Terrain, r.st.TerrainTurns, r.st.TrickRoom)
	fmt.Printf("undo stack: %d\n", r.eng.Depth())
}

func (r *repl) showOptions() {
	for _, id := range []battle.SideID{battle.SideOne, battle.SideTwo} {
		s := r.st.Side(id)
		names := make([]string, 0, 8)
		for _, c := range s.Options() {
			names = append(names, s.Describe(c))
		}
		fmt.Printf("%s: %s\n", id, strings.Join(names, ", "))
	}
}

func (r *repl) showMatchup() {
	div := r.gen.Mech.ParalysisSpeedDivisor
	for _, id := range []battle.SideID{battle.SideOne, battle.SideTwo} {
		p := r.st.Side(id).ActivePokemon()
		fmt.Printf("%s: %s %d/%d hp, effective speed %d\n",
			id, p.ID, p.HP, p.MaxHP, r.st.EffectiveSpeed(id, div))
	}
}

// parseChoices resolves two action names, one per side.
func (r *repl) parseChoices(args []string) (battle.Choice, battle.Choice, bool) {
	if len(args) != 2 {
		r.errorf("expected two action names, e.g. 'g flamethrower gigadrain'")
		return battle.Choice{}, battle.Choice{}, false
	}
	c1, err := r.st.Side(battle.SideOne).ChoiceFromString(battle.NormalizeName(args[0]))
	if err != nil {
		r.errorf("side-one: %v", err)
		return battle.Choice{}, battle.Choice{}, false
	}
	c2, err := r.st.Side(battle.SideTwo).ChoiceFromString(battle.NormalizeName(args[1]))
	if err != nil {
		r.errorf("side-two: %v", err)
		return battle.Choice{}, battle.Choice{}, false
	}
	return c1, c2, true
}

func (r *repl) generate(args []string) {
	c1, c2, ok := r.parseChoices(args)
	if !ok {
		return
	}
	branches, err := r.res.Branches(r.st, c1, c2)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	r.branches = branches
	for i, b := range branches {
		fmt.Printf("[%d] %s\n", i, b)
	}
}

func (r *repl) apply(args []string) {
	if len(args) != 1 {
		r.errorf("expected a branch index")
		return
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil || idx < 0 || idx >= len(r.branches) {
		r.errorf("no generated branch %q, run generate-instructions first", args[0])
		return
	}
	r.eng.Apply(r.branches[idx])
	r.branches = nil
}

func (r *repl) damage(args []string) {
	c1, c2, ok := r.parseChoices(args)
	if !ok {
		return
	}
	rolls, err := r.res.DamageRolls(r.st, c1, c2)
	if err != nil {
		r.errorf("%v", err)
		return
	}
	for i, id := range []battle.SideID{battle.SideOne, battle.SideTwo} {
		fmt.Printf("%s: %v\n", id, rolls[i])
	}
}

func (r *repl) expectimax(args []string) {
	depth := 2
	prune := false
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 1 {
			r.errorf("bad depth %q", args[0])
			return
		}
		depth = d
	}
	if len(args) > 1 {
		prune = args[1] == "prune"
	}
	res := search.NewExpectimax(r.res, prune).Search(r.st, depth)
	r.printResult(res)
}

func (r *repl) deepening(args []string) {
	ms, ok := parseMillis(args, 300)
	if !ok {
		r.errorf("bad time budget")
		return
	}
	d := search.NewDeepening(r.res, true, search.DefaultLimits().SetMovetime(ms))
	res := d.Search(r.st)
	fmt.Printf("completed depth %d in %dms\n", res.Depth, d.Limiter.Elapsed())
	r.printResult(res)
}

func (r *repl) monteCarlo(args []string) {
	ms, ok := parseMillis(args, 300)
	if !ok {
		r.errorf("bad time budget")
		return
	}
	m := search.NewMonteCarlo(r.res, search.DefaultLimits().SetMovetime(ms))
	res := m.Search(r.st)

	side := r.st.Side(battle.SideOne)
	for _, vs := range res.VisitStats {
		fmt.Printf("%-20s visits=%-6d mean=%.3f\n", side.Describe(vs.Choice), vs.Visits, vs.Mean)
	}
	fmt.Printf("best: %s (%.3f) stop=%s\n",
		r.output.String(side.Describe(res.Choice)).Foreground(termenv.ANSIGreen), res.Value, res.Stop)
}

func (r *repl) printResult(res search.Result) {
	side := r.st.Side(battle.SideOne)
	for _, alt := range res.Alternatives {
		fmt.Printf("%-20s %.2f\n", side.Describe(alt.Choice), alt.Value)
	}
	label := side.Describe(res.Choice)
	if res.Fallback {
		label += " (fallback)"
	}
	fmt.Printf("best: %s (%.2f)\n", r.output.String(label).Foreground(termenv.ANSIGreen), res.Value)
}

func parseMillis(args []string, fallback int) (int, bool) {
	if len(args) == 0 {
		return fallback, true
	}
	ms, err := strconv.Atoi(args[0])
	if err != nil || ms < 0 {
		return 0, false
	}
	return ms, true
}
