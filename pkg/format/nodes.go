package format

import (
	"fmt"

	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/source"
	"github.com/weave-lang/weave/pkg/werrors"
)

var zeroSpan = source.Span{}

// nodeToAny renders an ast.Node as the generic JSON-shaped value
// (map[string]any/[]any/string/float64/bool/nil) encoding/json already
// knows how to marshal, tagged with the node's closed Kind so
// anyToNode can invert it. Spans are not round-tripped: an imported
// story's nodes carry the zero span, same as any other construction
// site outside the parser.
func nodeToAny(n ast.Node) (any, error) {
	if n == nil {
		return nil, nil
	}
	switch v := n.(type) {
	case *ast.Text:
		return map[string]any{"kind": "Text", "value": v.Value}, nil
	case *ast.InlineExpr:
		expr, err := nodeToAny(v.Expr)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "InlineExpr", "expr": expr}, nil
	case *ast.InlineConditional:
		cond, err := nodeToAny(v.Cond)
		if err != nil {
			return nil, err
		}
		then, err := nodesToAny(v.Then)
		if err != nil {
			return nil, err
		}
		els, err := nodesToAny(v.Else)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "InlineConditional", "cond": cond, "then": then, "else": els}, nil
	case *ast.Assignment:
		val, err := nodeToAny(v.Value)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "Assignment", "name": v.Name, "op": v.Op, "value": val}, nil
	case *ast.Conditional:
		cond, err := nodeToAny(v.Cond)
		if err != nil {
			return nil, err
		}
		then, err := nodesToAny(v.Then)
		if err != nil {
			return nil, err
		}
		elifs := make([]any, len(v.Elifs))
		for i, ei := range v.Elifs {
			ec, err := nodeToAny(ei.Cond)
			if err != nil {
				return nil, err
			}
			eb, err := nodesToAny(ei.Body)
			if err != nil {
				return nil, err
			}
			elifs[i] = map[string]any{"cond": ec, "body": eb}
		}
		var elseVal any
		if v.Else != nil {
			eb, err := nodesToAny(v.Else.Body)
			if err != nil {
				return nil, err
			}
			elseVal = map[string]any{"body": eb}
		}
		return map[string]any{"kind": "Conditional", "cond": cond, "then": then, "elifs": elifs, "else": elseVal}, nil
	case *ast.Divert:
		return map[string]any{"kind": "Divert", "target": v.Target}, nil
	case *ast.TunnelCall:
		return map[string]any{"kind": "TunnelCall", "target": v.Target}, nil
	case *ast.TunnelReturn:
		return map[string]any{"kind": "TunnelReturn"}, nil
	case *ast.ThreadStart:
		return map[string]any{"kind": "ThreadStart", "target": v.Target}, nil
	case *ast.Literal:
		return map[string]any{"kind": "Literal", "literal_kind": string(v.LKind), "value": v.Value}, nil
	case *ast.VariableRef:
		var idx any
		var err error
		if v.Index != nil {
			idx, err = nodeToAny(v.Index)
			if err != nil {
				return nil, err
			}
		}
		return map[string]any{"kind": "VariableRef", "name": v.Name, "index": idx}, nil
	case *ast.BinaryExpr:
		left, err := nodeToAny(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := nodeToAny(v.Right)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "BinaryExpr", "op": v.Op, "left": left, "right": right}, nil
	case *ast.UnaryExpr:
		operand, err := nodeToAny(v.Operand)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "UnaryExpr", "op": v.Op, "operand": operand}, nil
	case *ast.FunctionCall:
		args, err := nodesToAny(v.Args)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "FunctionCall", "name": v.Name, "args": args}, nil
	case *ast.ListLiteral:
		elems, err := nodesToAny(v.Elements)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": "ListLiteral", "elements": elems}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported node kind %s", werrors.ErrValidation, n.Kind())
	}
}

func nodesToAny(nodes []ast.Node) ([]any, error) {
	if nodes == nil {
		return nil, nil
	}
	out := make([]any, len(nodes))
	for i, n := range nodes {
		v, err := nodeToAny(n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// anyToNode inverts nodeToAny. v is the generic value produced by
// encoding/json decoding into interface{} (so numbers arrive as
// float64, objects as map[string]interface{}, arrays as []interface{}).
func anyToNode(v any) (ast.Node, error) {
	if v == nil {
		return nil, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON object node", werrors.ErrValidation)
	}
	kind, _ := obj["kind"].(string)
	switch kind {
	case "Text":
		s, _ := obj["value"].(string)
		return ast.NewText(zeroSpan, s), nil
	case "InlineExpr":
		expr, err := anyToNode(obj["expr"])
		if err != nil {
			return nil, err
		}
		return ast.NewInlineExpr(zeroSpan, expr), nil
	case "InlineConditional":
		cond, err := anyToNode(obj["cond"])
		if err != nil {
			return nil, err
		}
		then, err := anyToNodes(obj["then"])
		if err != nil {
			return nil, err
		}
		els, err := anyToNodes(obj["else"])
		if err != nil {
			return nil, err
		}
		return ast.NewInlineConditional(zeroSpan, cond, then, els), nil
	case "Assignment":
		name, _ := obj["name"].(string)
		op, _ := obj["op"].(string)
		val, err := anyToNode(obj["value"])
		if err != nil {
			return nil, err
		}
		return ast.NewAssignment(zeroSpan, name, op, val), nil
	case "Conditional":
		cond, err := anyToNode(obj["cond"])
		if err != nil {
			return nil, err
		}
		then, err := anyToNodes(obj["then"])
		if err != nil {
			return nil, err
		}
		var elifs []*ast.ElifClause
		if raw, ok := obj["elifs"].([]any); ok {
			for _, e := range raw {
				em, ok := e.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%w: elif clause must be an object", werrors.ErrValidation)
				}
				ec, err := anyToNode(em["cond"])
				if err != nil {
					return nil, err
				}
				eb, err := anyToNodes(em["body"])
				if err != nil {
					return nil, err
				}
				elifs = append(elifs, ast.NewElifClause(zeroSpan, ec, eb))
			}
		}
		var elseClause *ast.ElseClause
		if em, ok := obj["else"].(map[string]any); ok {
			eb, err := anyToNodes(em["body"])
			if err != nil {
				return nil, err
			}
			elseClause = ast.NewElseClause(zeroSpan, eb)
		}
		return ast.NewConditional(zeroSpan, cond, then, elifs, elseClause), nil
	case "Divert":
		t, _ := obj["target"].(string)
		return ast.NewDivert(zeroSpan, t), nil
	case "TunnelCall":
		t, _ := obj["target"].(string)
		return ast.NewTunnelCall(zeroSpan, t), nil
	case "TunnelReturn":
		return ast.NewTunnelReturn(zeroSpan), nil
	case "ThreadStart":
		t, _ := obj["target"].(string)
		return ast.NewThreadStart(zeroSpan, t), nil
	case "Literal":
		lk, _ := obj["literal_kind"].(string)
		return ast.NewLiteral(zeroSpan, ast.LiteralKind(lk), obj["value"]), nil
	case "VariableRef":
		name, _ := obj["name"].(string)
		idx, err := anyToNode(obj["index"])
		if err != nil {
			return nil, err
		}
		return ast.NewVariableRef(zeroSpan, name, idx), nil
	case "BinaryExpr":
		op, _ := obj["op"].(string)
		left, err := anyToNode(obj["left"])
		if err != nil {
			return nil, err
		}
		right, err := anyToNode(obj["right"])
		if err != nil {
			return nil, err
		}
		return ast.NewBinaryExpr(zeroSpan, op, left, right), nil
	case "UnaryExpr":
		op, _ := obj["op"].(string)
		operand, err := anyToNode(obj["operand"])
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpr(zeroSpan, op, operand), nil
	case "FunctionCall":
		name, _ := obj["name"].(string)
		args, err := anyToNodes(obj["args"])
		if err != nil {
			return nil, err
		}
		return ast.NewFunctionCall(zeroSpan, name, args), nil
	case "ListLiteral":
		elems, err := anyToNodes(obj["elements"])
		if err != nil {
			return nil, err
		}
		return ast.NewListLiteral(zeroSpan, elems), nil
	default:
		return nil, fmt.Errorf("%w: unknown node kind %q", werrors.ErrValidation, kind)
	}
}

func anyToNodes(v any) ([]ast.Node, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a JSON array of nodes", werrors.ErrValidation)
	}
	out := make([]ast.Node, len(raw))
	for i, r := range raw {
		n, err := anyToNode(r)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
