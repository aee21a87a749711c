package compiler

import (
	"github.com/Urethramancer/avr/ast"
	"github.com/Urethramancer/avr/diag"
)

// handler performs one phase's work for a node. Returned errors become
// diagnostics and the traversal continues with the next node.
type handler func(c *Compilation, u *Unit, id ast.NodeID) error

// handlers says what each phase does with each node kind. A nil entry does
// nothing.
var handlers map[ast.Kind][numPhases]handler

func init() {
	handlers = map[ast.Kind][numPhases]handler{
		ast.KindUnit:        {visitChildren, visitChildren, visitChildren},
		ast.KindBlock:       {visitChildren, visitChildren, visitChildren},
		ast.KindLabel:       {gatherLabel, placeLabel, placeLabel},
		ast.KindEqu:         {gatherConstant, assignConstant, nil},
		ast.KindSet:         {gatherConstant, assignConstant, assignConstant},
		ast.KindDef:         {defineAlias, defineAlias, defineAlias},
		ast.KindOrg:         {nil, moveOrigin, moveOrigin},
		ast.KindSegment:     {selectSegment, selectSegment, selectSegment},
		ast.KindData:        {nil, allocateData, writeData},
		ast.KindReserve:     {nil, reserve, reserve},
		ast.KindInclude:     {include, include, include},
		ast.KindConditional: {decideConditional, replayConditional, replayConditional},
		ast.KindMacro:       {gatherMacro, nil, nil},
		ast.KindMessage:     {message, nil, nil},
		ast.KindDevice:      {checkDevice, nil, nil},
		ast.KindExit:        {exit, exit, exit},
		ast.KindInstruction: {nil, resolveInstruction, generateInstruction},
		ast.KindError:       {nil, nil, nil},
	}
}

// visit dispatches id to the current phase's handler. Nothing happens once
// the run is aborted, the error budget is spent or the unit hit .exit.
func (c *Compilation) visit(u *Unit, id ast.NodeID) {
	if c.internal != nil || c.HasReachedMaxErrors() || u.exited {
		return
	}
	n := u.tree.Node(id)
	hs, ok := handlers[n.Kind]
	if !ok {
		c.fail(u, id, diag.Internalf(n.Region, "%s node outside an expression", n.Kind))
		return
	}
	if h := hs[c.phase]; h != nil {
		if err := h(c, u, id); err != nil {
			c.fail(u, id, err)
		}
	}
}

func visitChildren(c *Compilation, u *Unit, id ast.NodeID) error {
	for _, child := range u.tree.Children(id) {
		c.visit(u, child)
	}
	return nil
}
