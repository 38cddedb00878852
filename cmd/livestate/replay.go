package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/livestate/internal/errors"
	"github.com/vango-dev/livestate/internal/logging"
	"github.com/vango-dev/livestate/pkg/observe"
	"github.com/vango-dev/livestate/pkg/reactive"
	"github.com/vango-dev/livestate/pkg/remote"
)

// script is a replay document.
type script struct {
	// State is the initial root.
	State map[string]any `yaml:"state"`

	// Watch subscribes one Prop per path.
	Watch []reactive.Path `yaml:"watch"`

	// Derive combines several paths into one value.
	Derive []derivation `yaml:"derive"`

	// Render tracks a view that reads these paths.
	Render []reactive.Path `yaml:"render"`

	// Steps are applied in order, each as one batch.
	Steps []remote.Event `yaml:"steps"`
}

type derivation struct {
	Name    string          `yaml:"name"`
	Combine string          `yaml:"combine"`
	Paths   []reactive.Path `yaml:"paths"`
}

// combiners are the combine functions a derivation can name.
var combiners = map[string]func(values ...any) any{
	"list": func(values ...any) any {
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = reactive.Unwrap(v)
		}
		return out
	},
	"sum": func(values ...any) any {
		var total float64
		for _, v := range values {
			if f, ok := number(v); ok {
				total += f
			}
		}
		return total
	},
	"count": func(values ...any) any {
		n := 0
		for _, v := range values {
			if v != nil {
				n++
			}
		}
		return n
	},
	"all": func(values ...any) any {
		for _, v := range values {
			if !truthy(v) {
				return false
			}
		}
		return true
	},
}

func replayCmd() *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay a state script and print every emission",
		Long: `Replay loads a YAML script, wraps its state, subscribes the listed
paths, and applies each step as one batch. Every emission is printed.

Script structure:

  state:
    round: {number: 1, prompt: draw a cat}
    scores: {}
  watch: [round.number]
  derive:
    - name: total
      combine: sum        # list, sum, count or all
      paths: [scores.ann, scores.bob]
  render: [round.prompt, scores]
  steps:
    - name: next round
      assignments:
        - {path: round, value: {number: 2, prompt: draw a dog}}
        - {path: scores.ann, value: 3}

Examples:
  livestate replay game.yaml
  livestate replay game.yaml --trace`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.New("E501").WithPath(args[0]).Wrap(err)
			}
			if trace {
				log := logging.New(slog.LevelDebug, "text", cmd.ErrOrStderr())
				prev := reactive.SetObserver(observe.NewLog(log, slog.LevelDebug))
				defer reactive.SetObserver(prev)
			}
			return runReplay(data, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&trace, "trace", "t", false, "Log engine callbacks to stderr")

	return cmd
}

// parseScript decodes and checks a replay script.
func parseScript(data []byte) (*script, error) {
	var s script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return nil, errors.New("E501").WithDetail("The script is empty.")
		}
		return nil, errors.New("E501").Wrap(err)
	}
	if s.State == nil {
		s.State = map[string]any{}
	}
	for i, d := range s.Derive {
		if _, ok := combiners[d.Combine]; !ok {
			return nil, errors.New("E501").WithDetail(fmt.Sprintf(
				"derive[%d] names combine %q; use one of %s.", i, d.Combine, combinerNames()))
		}
		if len(d.Paths) == 0 {
			return nil, errors.New("E501").WithDetail(fmt.Sprintf("derive[%d] has no paths.", i))
		}
	}
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return nil, errors.New("E501").
				WithDetail(fmt.Sprintf("steps[%d] is not a valid event.", i)).
				Wrap(err)
		}
	}
	return &s, nil
}

// runReplay executes a script and writes one line per emission to w.
func runReplay(data []byte, w io.Writer) error {
	s, err := parseScript(data)
	if err != nil {
		return err
	}

	applier, err := remote.NewApplier(s.State)
	if err != nil {
		return err
	}
	root := applier.Root()

	var unsubs []reactive.Unsubscribe
	defer func() {
		for _, off := range unsubs {
			off()
		}
	}()

	for _, p := range s.Watch {
		unsubs = append(unsubs, reactive.Prop(root, p).Subscribe(func(v any) {
			fmt.Fprintf(w, "watch %s = %s\n", p, encode(v))
		}))
	}

	for _, d := range s.Derive {
		derived := reactive.Props(root, d.Paths, combiners[d.Combine],
			reactive.WithDerivedEquals(reflect.DeepEqual))
		unsubs = append(unsubs, derived.Subscribe(func(v any) {
			fmt.Fprintf(w, "derive %s = %s\n", d.Name, encode(v))
		}))
	}

	var tracker *reactive.Tracker[map[string]any]
	if len(s.Render) > 0 {
		tracker = reactive.NewTracker(root, func(v *reactive.View) map[string]any {
			out := make(map[string]any, len(s.Render))
			for _, p := range s.Render {
				out[p.String()] = viewValue(v.Path(p))
			}
			return out
		}, reactive.TrackerName("replay"))
		defer tracker.Dispose()
		fmt.Fprintf(w, "render %s\n", encode(tracker.Run()))
	}

	for i, step := range s.Steps {
		name := step.Name
		if name == "" {
			name = "step " + strconv.Itoa(i+1)
		}
		fmt.Fprintf(w, "-- %s\n", name)
		res, err := applier.Apply(step)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "applied %d, skipped %d\n", res.Applied, res.Skipped)

		if tracker != nil && tracker.Dirty() {
			fmt.Fprintf(w, "render %s\n", encode(tracker.Run()))
		}
	}
	return nil
}

// viewValue unwraps what a View read returned.
func viewValue(v any) any {
	if view, ok := v.(*reactive.View); ok {
		return reactive.Unwrap(view.Value())
	}
	return reactive.Unwrap(v)
}

// encode renders v as compact JSON, falling back to %v.
func encode(v any) string {
	data, err := json.Marshal(reactive.Unwrap(v))
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func number(v any) (float64, bool) {
	rv := reflect.ValueOf(reactive.Unwrap(v))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func truthy(v any) bool {
	switch x := reactive.Unwrap(v).(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	if f, ok := number(v); ok {
		return f != 0
	}
	return true
}

func combinerNames() string {
	names := make([]string, 0, len(combiners))
	for name := range combiners {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
