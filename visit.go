package rql

/*
Populates the builder from the query's filter. A query without a filter leaves
the builder untouched. Select, sort and limit parts are ignored here; see
`Ords.FromSort` and `Query.Limit`.

The whole tree is checked before the first builder call: unknown nodes,
operators that don't match the node category, and null comparisons other than
"eq" and "ne" are rejected without touching the builder. Rejections wrap
`ErrRejected`. Errors returned by the builder itself, such as unknown fields,
abort the walk and are returned as-is; predicates appended before such an error
remain in the builder. Use `Cond.Filter` for all-or-nothing semantics.
*/
func Visit(query Query, bui Builder) error {
	return VisitNode(query.Filter, bui)
}

// Populates the builder from a single filter node. A nil node is a nop.
func VisitNode(node Node, bui Builder) error {
	if node == nil {
		return nil
	}

	err := checkNode(node)
	if err != nil {
		return err
	}
	return visitNode(node, bui, ConnAnd)
}

// Dereferences pointer nodes and rejects nodes that can't appear in a filter.
func filterNode(node Node) (Node, error) {
	switch val := node.(type) {
	case Scalar, Array, Logical:
		return node, nil
	case *Scalar:
		if val != nil {
			return *val, nil
		}
	case *Array:
		if val != nil {
			return *val, nil
		}
	case *Logical:
		if val != nil {
			return *val, nil
		}
	case nil:
		return nil, rejectf(`unexpected nil node`)
	default:
		return nil, rejectf(`unknown node %q of type %T`, node.NodeName(), node)
	}
	return nil, rejectf(`unexpected nil node of type %T`, node)
}

func checkNode(node Node) error {
	node, err := filterNode(node)
	if err != nil {
		return err
	}

	switch node := node.(type) {
	case Scalar:
		if _, ok := ScalarOps[node.Op]; !ok {
			return rejectf(`unknown scalar node %q`, node.Op)
		}
		if normValue(node.Value) == nil && node.Op != OpEq && node.Op != OpNe {
			return rejectf(`only the "eq" and "ne" operators can be used when comparing %q to null, found %q`,
				node.Field, node.Op)
		}

	case Array:
		if _, ok := ArrayOps[node.Op]; !ok {
			return rejectf(`unknown array node %q`, node.Op)
		}

	case Logical:
		if !LogicalOps[node.Op] {
			return rejectf(`unknown or unsupported logical node %q`, node.Op)
		}
		for _, child := range node.Queries {
			err := checkNode(child)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func visitNode(node Node, bui Builder, conn Conn) error {
	node, err := filterNode(node)
	if err != nil {
		return err
	}

	switch node := node.(type) {
	case Scalar:
		return visitScalar(node, bui, conn)
	case Array:
		return visitArray(node, bui, conn)
	case Logical:
		return visitLogical(node, bui, conn)
	}
	return nil
}

func visitScalar(node Scalar, bui Builder, conn Conn) error {
	val := normValue(node.Value)
	if val == nil {
		return bui.WhereNull(node.Field, conn, node.Op == OpNe)
	}
	return bui.Where(node.Field, node.Op, val, conn)
}

func visitArray(node Array, bui Builder, conn Conn) error {
	return bui.WhereIn(node.Field, normValues(node.Values), conn, ArrayOps[node.Op])
}

func visitLogical(node Logical, bui Builder, conn Conn) error {
	inner, negate := ConnAnd, node.Op == OpNot
	if node.Op == OpOr {
		inner = ConnOr
	}

	return bui.WhereGroup(func(group Builder) error {
		for _, child := range node.Queries {
			err := visitNode(child, group, inner)
			if err != nil {
				return err
			}
		}
		return nil
	}, conn, negate)
}
