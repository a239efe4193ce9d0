package declarative

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/hupe1980/cognisphere/agent"
	"github.com/hupe1980/cognisphere/core"
)

const (
	truthyFunc  = "_truthy"
	compareFunc = "_compare"
)

// ParseCondition compiles a condition expression over blackboard state into
// an agent.Condition. Expressions use the expr language restricted to
// comparisons of a state key with a literal, combined with &&, || and !:
//
//	score >= 0.8 && (category == 'legal' || !reviewed)
//
// A bare key holds when its value is truthy. Absent keys never satisfy a
// comparison. Numeric literals compare numerically, converting textual state
// values; text comparisons ignore case and surrounding whitespace. A condition
// that fails to evaluate does not hold.
func ParseCondition(src string) (agent.Condition, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.New("condition: empty expression")
	}

	p := &conditionPatcher{}
	program, err := expr.Compile(src,
		expr.AllowUndefinedVariables(),
		expr.Patch(p),
		expr.Function(truthyFunc, func(params ...any) (any, error) {
			return truthy(params[0]), nil
		}, new(func(any) bool)),
		expr.Function(compareFunc, func(params ...any) (any, error) {
			return compare(params[0].(string), params[1], params[2]), nil
		}, new(func(string, any, any) bool)),
	)
	if p.err != nil {
		return nil, fmt.Errorf("condition %q: %w", src, p.err)
	}
	if err != nil {
		return nil, fmt.Errorf("condition %q: %w", src, err)
	}

	return func(bb *core.Blackboard) bool {
		out, err := expr.Run(program, bb.State())
		if err != nil {
			return false
		}
		return truthy(out)
	}, nil
}

// conditionPatcher rewrites comparisons into lenient calls and makes the
// operands of logical operators truthy.
type conditionPatcher struct {
	err error
}

func (p *conditionPatcher) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.UnaryNode:
		if n.Operator == "!" || n.Operator == "not" {
			n.Node = truthyCall(n.Node)
		}
	case *ast.BinaryNode:
		switch n.Operator {
		case "&&", "||", "and", "or":
			n.Left = truthyCall(n.Left)
			n.Right = truthyCall(n.Right)
		case "==", "!=", ">=", "<=", ">", "<":
			call, err := compareCall(n)
			if err != nil {
				if p.err == nil {
					p.err = err
				}
				return
			}
			*node = call
		}
	}
}

func truthyCall(n ast.Node) ast.Node {
	return &ast.CallNode{
		Callee:    &ast.IdentifierNode{Value: truthyFunc},
		Arguments: []ast.Node{n},
	}
}

var mirrored = map[string]string{
	"==": "==", "!=": "!=",
	">=": "<=", "<=": ">=",
	">": "<", "<": ">",
}

// compareCall turns key-op-literal (or literal-op-key) into a _compare call
// with the key first.
func compareCall(n *ast.BinaryNode) (ast.Node, error) {
	key, lit, op := n.Left, n.Right, n.Operator
	if !isKey(key) {
		key, lit, op = n.Right, n.Left, mirrored[n.Operator]
	}
	if !isKey(key) || !isLiteral(lit) {
		return nil, fmt.Errorf("%s must compare a state key with a literal", n.Operator)
	}
	if _, ok := lit.(*ast.BoolNode); ok && op != "==" && op != "!=" {
		return nil, fmt.Errorf("operator %s does not apply to booleans", op)
	}

	return &ast.CallNode{
		Callee:    &ast.IdentifierNode{Value: compareFunc},
		Arguments: []ast.Node{&ast.StringNode{Value: op}, key, lit},
	}, nil
}

func isKey(n ast.Node) bool {
	switch n.(type) {
	case *ast.IdentifierNode, *ast.MemberNode:
		return true
	}
	return false
}

func isLiteral(n ast.Node) bool {
	switch x := n.(type) {
	case *ast.IntegerNode, *ast.FloatNode, *ast.StringNode, *ast.BoolNode:
		return true
	case *ast.UnaryNode:
		if x.Operator == "-" || x.Operator == "+" {
			switch x.Node.(type) {
			case *ast.IntegerNode, *ast.FloatNode:
				return true
			}
		}
	}
	return false
}

func compare(op string, got, want any) bool {
	if got == nil {
		return false
	}

	switch w := want.(type) {
	case bool:
		switch op {
		case "==":
			return truthy(got) == w
		case "!=":
			return truthy(got) != w
		}
		return false
	case string:
		return compareOrdered(fold(fmt.Sprint(got)), fold(w), op)
	}

	wf, ok := toFloat(want)
	if !ok {
		return false
	}
	gf, ok := toFloat(got)
	if !ok {
		return false
	}
	return compareOrdered(gf, wf, op)
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func compareOrdered[T float64 | string](a, b T, op string) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case "<":
		return a < b
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		s := fold(x)
		return s != "" && s != "false" && s != "0"
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}
