// lint.go implements the nested-acquisition check.
//
// The rule being checked is the library's reentrancy guideline: never
// lock the same cell more than once on the same goroutine at the same
// time. The check is lexical — it flags a Read/Write/TryRead/TryWrite
// call on a cell identifier while a guard obtained from the same
// identifier is still live in an enclosing scope. A guard is live from
// its acquisition until an Unlock call on the guard variable or the end
// of the enclosing block, whichever comes first.
//
// Being lexical, the check cannot see aliasing through function calls or
// cells reached through fields of different names. That is fine for a
// lint: the common bug is exactly the nested call spelled on the same
// variable.
package main

import (
	"fmt"
	"go/ast"
	"go/token"
)

// acquisitionMethods are the cell methods that take the lock.
var acquisitionMethods = map[string]bool{
	"Read":     true,
	"Write":    true,
	"TryRead":  true,
	"TryWrite": true,
}

// Finding is one flagged nested acquisition.
type Finding struct {
	Pos    token.Position
	Cell   string
	Method string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: nested %s() on %q while a guard on it is still held", f.Pos, f.Method, f.Cell)
}

// lintFile checks every function in the file.
func lintFile(fset *token.FileSet, file *ast.File) []Finding {
	var findings []Finding
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		findings = append(findings, lintBlock(fset, fn.Body, map[string]bool{}, map[string]string{})...)
	}
	return findings
}

// lintBlock walks one block statement by statement.
//
// active maps cell identifiers to "a guard on this cell is live here";
// guards maps guard variable names back to their cell identifier so an
// Unlock can retire the right entry. Nested blocks get copies, so a
// guard acquired inside an if body does not leak into the code after it.
func lintBlock(fset *token.FileSet, block *ast.BlockStmt, active map[string]bool, guards map[string]string) []Finding {
	var findings []Finding

	for _, stmt := range block.List {
		// Unlock on a known guard variable retires its cell.
		if g := unlockedGuard(stmt); g != "" {
			if cell, ok := guards[g]; ok {
				delete(active, cell)
				delete(guards, g)
			}
		}

		// Flag acquisitions on already-active cells, then activate new
		// ones. Nested blocks are not inspected here; they are linted
		// below with their own copies of the scope, so guards acquired
		// inside them do not leak out.
		if _, isBlock := stmt.(*ast.BlockStmt); !isBlock {
			inspectAcquisitions(fset, stmt, active, guards, &findings)
		}

		for _, nested := range nestedBlocks(stmt) {
			findings = append(findings, lintBlock(fset, nested, copyMap(active), copyMap(guards))...)
		}
	}
	return findings
}

// inspectAcquisitions records and flags acquisition calls in the
// non-block parts of one statement.
func inspectAcquisitions(fset *token.FileSet, stmt ast.Stmt, active map[string]bool, guards map[string]string, findings *[]Finding) {
	ast.Inspect(stmt, func(n ast.Node) bool {
		if _, isBlock := n.(*ast.BlockStmt); isBlock {
			return false // handled by the caller with scope copies
		}
		cell, method, ok := acquisitionCall(n)
		if !ok {
			return true
		}
		if active[cell] {
			*findings = append(*findings, Finding{
				Pos:    fset.Position(n.Pos()),
				Cell:   cell,
				Method: method,
			})
			return true
		}
		active[cell] = true
		if g := guardVar(stmt, n); g != "" {
			guards[g] = cell
		}
		return true
	})
}

// acquisitionCall matches `ident.Method(...)` for an acquisition method.
func acquisitionCall(n ast.Node) (cell, method string, ok bool) {
	call, isCall := n.(*ast.CallExpr)
	if !isCall {
		return "", "", false
	}
	sel, isSel := call.Fun.(*ast.SelectorExpr)
	if !isSel || !acquisitionMethods[sel.Sel.Name] {
		return "", "", false
	}
	ident, isIdent := sel.X.(*ast.Ident)
	if !isIdent {
		return "", "", false
	}
	return ident.Name, sel.Sel.Name, true
}

// guardVar returns the variable the guard from call is assigned to, if
// stmt is an assignment with call on its right-hand side.
func guardVar(stmt ast.Stmt, call ast.Node) string {
	assign, ok := stmt.(*ast.AssignStmt)
	if !ok || len(assign.Lhs) == 0 {
		return ""
	}
	for _, rhs := range assign.Rhs {
		if rhs == call {
			if ident, ok := assign.Lhs[0].(*ast.Ident); ok && ident.Name != "_" {
				return ident.Name
			}
		}
	}
	return ""
}

// unlockedGuard matches a plain `g.Unlock()` statement and returns g.
// A deferred Unlock does not retire the guard: it keeps the lock held to
// the end of the function, which is exactly when nested acquisitions are
// still bugs.
func unlockedGuard(stmt ast.Stmt) string {
	expr, ok := stmt.(*ast.ExprStmt)
	if !ok {
		return ""
	}
	call, ok := expr.X.(*ast.CallExpr)
	if !ok {
		return ""
	}
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Unlock" {
		return ""
	}
	if ident, ok := sel.X.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

// nestedBlocks returns the block statements directly under stmt.
func nestedBlocks(stmt ast.Stmt) []*ast.BlockStmt {
	var blocks []*ast.BlockStmt
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		blocks = append(blocks, s)
	case *ast.IfStmt:
		blocks = append(blocks, s.Body)
		if elseBlock, ok := s.Else.(*ast.BlockStmt); ok {
			blocks = append(blocks, elseBlock)
		}
	case *ast.ForStmt:
		blocks = append(blocks, s.Body)
	case *ast.RangeStmt:
		blocks = append(blocks, s.Body)
	case *ast.SwitchStmt:
		for _, c := range s.Body.List {
			if cc, ok := c.(*ast.CaseClause); ok {
				blocks = append(blocks, &ast.BlockStmt{List: cc.Body})
			}
		}
	case *ast.SelectStmt:
		for _, c := range s.Body.List {
			if cc, ok := c.(*ast.CommClause); ok {
				blocks = append(blocks, &ast.BlockStmt{List: cc.Body})
			}
		}
	}
	return blocks
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
