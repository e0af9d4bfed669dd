package resolve

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// Recognizer handles one kind of metadata directive.
//
// Recognize reports whether line is a directive of its kind. A recognized
// line is recorded into meta and stripped from the flattened source. A
// non-nil error marks the directive malformed; the resolver then replaces
// the line with "#error <err>".
type Recognizer interface {
	Recognize(line string, meta *Metadata) (bool, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(line string, meta *Metadata) (bool, error)

// Recognize calls f(line, meta).
func (f RecognizerFunc) Recognize(line string, meta *Metadata) (bool, error) {
	return f(line, meta)
}

// DefaultRecognizers returns the built-in switch, range and label grammar.
func DefaultRecognizers() []Recognizer {
	return []Recognizer{
		PragmaRecognizer("switch", parseSwitch),
		PragmaRecognizer("range", parseRange),
		PragmaRecognizer("label", parseLabel),
	}
}

// PragmaRecognizer returns a Recognizer for lines of the form
//
//	#pragma <keyword>(arg, arg, ...)
//
// Arguments are split on top-level commas; commas inside parentheses or
// double-quoted strings do not split. parse receives the trimmed arguments.
func PragmaRecognizer(keyword string, parse func(args []string, meta *Metadata) error) Recognizer {
	head := regexp.MustCompile(`^\s*#pragma\s+` + regexp.QuoteMeta(keyword) + `\b`)
	full := regexp.MustCompile(`^\s*#pragma\s+` + regexp.QuoteMeta(keyword) + `\s*\((.*)\)\s*$`)
	return RecognizerFunc(func(line string, meta *Metadata) (bool, error) {
		if !head.MatchString(line) {
			return false, nil
		}
		m := full.FindStringSubmatch(line)
		if m == nil {
			return true, fmt.Errorf("malformed %s directive: %s", keyword, strings.TrimSpace(line))
		}
		args, err := splitArgs(m[1])
		if err != nil {
			return true, fmt.Errorf("malformed %s directive: %w", keyword, err)
		}
		if err := parse(args, meta); err != nil {
			return true, fmt.Errorf("malformed %s directive: %w", keyword, err)
		}
		return true, nil
	})
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func parseName(arg string) (string, error) {
	if !identPattern.MatchString(arg) {
		return "", fmt.Errorf("invalid name %q", arg)
	}
	return arg, nil
}

func parseSwitch(args []string, meta *Metadata) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("want (NAME[, DEFAULT]), got %d arguments", len(args))
	}
	name, err := parseName(args[0])
	if err != nil {
		return err
	}
	s := SwitchFlag{Name: name}
	if len(args) == 2 {
		v, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid default %q", args[1])
		}
		s.Default = v
	}
	meta.setSwitch(s)
	return nil
}

func parseRange(args []string, meta *Metadata) error {
	if len(args) < 3 || len(args) > 4 {
		return fmt.Errorf("want (NAME, MIN, MAX[, DEFAULT]), got %d arguments", len(args))
	}
	name, err := parseName(args[0])
	if err != nil {
		return err
	}
	r := UniformRange{Name: name}
	if r.Min, err = evalNumber(args[1]); err != nil {
		return err
	}
	if r.Max, err = evalNumber(args[2]); err != nil {
		return err
	}
	if r.Min > r.Max {
		return fmt.Errorf("min %g greater than max %g", r.Min, r.Max)
	}
	if len(args) == 4 {
		d, err := evalNumber(args[3])
		if err != nil {
			return err
		}
		if d < r.Min || d > r.Max {
			return fmt.Errorf("default %g outside [%g, %g]", d, r.Min, r.Max)
		}
		r.Default = &d
	}
	meta.setRange(r)
	return nil
}

func parseLabel(args []string, meta *Metadata) error {
	if len(args) != 2 {
		return fmt.Errorf("want (NAME, \"TEXT\"), got %d arguments", len(args))
	}
	name, err := parseName(args[0])
	if err != nil {
		return err
	}
	text, err := strconv.Unquote(args[1])
	if err != nil || !strings.HasPrefix(args[1], `"`) {
		return fmt.Errorf("label text must be a quoted string, got %s", args[1])
	}
	meta.setLabel(Label{Name: name, Text: text})
	return nil
}

// constants visible to range bound expressions.
var exprConstants = map[string]any{
	"pi":  math.Pi,
	"tau": 2 * math.Pi,
	"e":   math.E,
}

// evalNumber evaluates a constant numeric expression such as "2.0 * pi".
func evalNumber(src string) (float64, error) {
	if src == "" {
		return 0, errors.New("empty expression")
	}
	if v, err := strconv.ParseFloat(src, 64); err == nil {
		return v, nil
	}
	program, err := expr.Compile(src, expr.Env(exprConstants))
	if err != nil {
		return 0, fmt.Errorf("invalid expression %q", src)
	}
	out, err := expr.Run(program, exprConstants)
	if err != nil {
		return 0, fmt.Errorf("evaluating %q: %w", src, err)
	}
	var v float64
	switch n := out.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	default:
		return 0, fmt.Errorf("expression %q is not numeric", src)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("expression %q is not finite", src)
	}
	return v, nil
}

// splitArgs splits s on commas that are outside parentheses and strings.
func splitArgs(s string) ([]string, error) {
	var (
		args  []string
		depth int
		quote bool
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote:
			switch c {
			case '\\':
				i++
			case '"':
				quote = false
			}
		case c == '"':
			quote = true
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return nil, errors.New("unbalanced parentheses")
			}
		case c == ',' && depth == 0:
			args = append(args, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if quote {
		return nil, errors.New("unterminated string")
	}
	if depth != 0 {
		return nil, errors.New("unbalanced parentheses")
	}
	last := strings.TrimSpace(s[start:])
	if last != "" || len(args) > 0 {
		args = append(args, last)
	}
	return args, nil
}
