package expression

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/danielpatrickdp/exprdiag/internal/axis"
	"github.com/danielpatrickdp/exprdiag/internal/gate"
	"gopkg.in/yaml.v3"
)

// #region load
// LoadDefinition reads an expression definition from JSON or YAML.
func LoadDefinition(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read expression %s: %w", path, err)
	}
	return ParseDefinition(data, filepath.Ext(path))
}

// ParseDefinition decodes definition bytes. ext selects YAML for ".yaml" or
// ".yml"; anything else is treated as JSON.
func ParseDefinition(data []byte, ext string) (Definition, error) {
	var def Definition
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &def)
	default:
		err = json.Unmarshal(data, &def)
	}
	if err != nil {
		return Definition{}, fmt.Errorf("parse expression: %w", err)
	}
	return def, nil
}

// #endregion load

// #region build
// Build converts a definition into a tree. Multiple prerequisites are joined
// under a synthetic AND root.
func Build(def Definition) (*Expression, error) {
	if len(def.Prerequisites) == 0 {
		return nil, &MalformedExpressionError{Clause: def.ID, Reason: "no prerequisites"}
	}

	var root *Node
	if len(def.Prerequisites) == 1 {
		n, err := parseNode(def.Prerequisites[0].Logic, "0")
		if err != nil {
			return nil, err
		}
		root = n
	} else {
		root = &Node{ID: "0", Kind: KindAnd, Raw: "prerequisites"}
		for i, p := range def.Prerequisites {
			child, err := parseNode(p.Logic, fmt.Sprintf("0.%d", i))
			if err != nil {
				return nil, err
			}
			root.Children = append(root.Children, child)
		}
	}

	e := &Expression{ID: def.ID, Root: root}
	var walk func(n *Node)
	walk = func(n *Node) {
		n.Index = len(e.Nodes)
		e.Nodes = append(e.Nodes, n)
		if n.Kind == KindLeaf {
			e.Leaves = append(e.Leaves, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return e, nil
}

func parseNode(raw any, id string) (*Node, error) {
	text := compact(raw)
	obj, ok := asObject(raw)
	if !ok || len(obj) != 1 {
		return nil, &MalformedExpressionError{Clause: text, Reason: "expected an object with exactly one operator"}
	}

	var key string
	var arg any
	for k, v := range obj {
		key, arg = k, v
	}

	switch key {
	case "and", "or":
		items, ok := arg.([]any)
		if !ok || len(items) == 0 {
			return nil, &MalformedExpressionError{Clause: text, Reason: key + " requires a non-empty array"}
		}
		kind := KindAnd
		if key == "or" {
			kind = KindOr
		}
		n := &Node{ID: id, Kind: kind, Raw: text}
		for i, item := range items {
			child, err := parseNode(item, fmt.Sprintf("%s.%d", id, i))
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
		return n, nil

	case "not", "!":
		inner := arg
		if items, ok := arg.([]any); ok {
			if len(items) != 1 {
				return nil, &MalformedExpressionError{Clause: text, Reason: "not requires exactly one operand"}
			}
			inner = items[0]
		}
		child, err := parseNode(inner, id+".0")
		if err != nil {
			return nil, err
		}
		return &Node{ID: id, Kind: KindNot, Raw: text, Children: []*Node{child}}, nil
	}

	op, ok := gate.ParseOperator(key)
	if !ok {
		return &Node{ID: id, Kind: KindUnsupported, Op: key, Raw: text}, nil
	}
	cmp, err := parseComparison(op, arg, text)
	if err != nil {
		return nil, err
	}
	return &Node{ID: id, Kind: KindLeaf, Leaf: cmp, Raw: text}, nil
}

func parseComparison(op gate.Operator, arg any, text string) (*Comparison, error) {
	items, ok := arg.([]any)
	if !ok || len(items) != 2 {
		return nil, &MalformedExpressionError{Clause: text, Reason: "comparison requires [var, threshold]"}
	}

	var threshold float64
	var numOK bool
	path, pathOK := varPath(items[0])
	if pathOK {
		threshold, numOK = number(items[1])
	} else if p, ok := varPath(items[1]); ok {
		// threshold written first: mirror the operator
		path, pathOK = p, true
		threshold, numOK = number(items[0])
		op = op.Mirror()
	}
	if !pathOK {
		return nil, &MalformedExpressionError{Clause: text, Reason: "missing var path"}
	}
	if !numOK {
		return nil, &MalformedExpressionError{Clause: text, Reason: "missing numeric threshold"}
	}

	ref, err := ParseVarPath(path)
	if errors.Is(err, axis.ErrUnknownAxis) {
		return nil, fmt.Errorf("clause %s: %w", text, err)
	}
	if err != nil {
		return nil, &MalformedExpressionError{Clause: text, Reason: err.Error()}
	}
	return &Comparison{VarPath: path, Ref: ref, Operator: op, Threshold: threshold}, nil
}

// #endregion build

// #region var-path
// ParseVarPath splits a variable path into its domain and name. A path
// naming no known domain is an UnknownAxisError; a known domain with no name
// after the dot is malformed.
func ParseVarPath(path string) (Ref, error) {
	path = strings.TrimSpace(path)
	switch path {
	case "sexualArousal", "SA", "sexual_arousal":
		return Ref{Domain: DomainSexualArousal, Name: "sexual_arousal"}, nil
	}
	prefix, name, _ := strings.Cut(path, ".")
	switch Domain(prefix) {
	case DomainMood, DomainSexualAxis, DomainTrait, DomainEmotion, DomainSexualState:
		if name == "" {
			return Ref{}, fmt.Errorf("var path %q has no name", path)
		}
		return Ref{Domain: Domain(prefix), Name: name}, nil
	}
	return Ref{}, &axis.UnknownAxisError{Name: path, Context: "var path"}
}

func varPath(v any) (string, bool) {
	obj, ok := asObject(v)
	if !ok {
		return "", false
	}
	switch p := obj["var"].(type) {
	case string:
		return p, p != ""
	case []any:
		if len(p) > 0 {
			s, ok := p[0].(string)
			return s, ok && s != ""
		}
	}
	return "", false
}

// #endregion var-path

// #region helpers
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// compact renders a decoded value as stable JSON for error messages.
func compact(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalizeKeys(v)); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSpace(buf.String())
}

func normalizeKeys(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m, _ := asObject(t)
		return normalizeKeys(m)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(t))
		for _, k := range keys {
			out[k] = normalizeKeys(t[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalizeKeys(t[i])
		}
		return out
	}
	return v
}

// #endregion helpers
