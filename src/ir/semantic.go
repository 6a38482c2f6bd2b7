// semantic.go implements the combined semantic analyzer and SSA/IR code
// generator: a single depth-first, pre-order walk of the AST that
// type-checks each node and, immediately after, emits the IR for it. This
// collapses the reference compiler's double-dispatch visitor into a type
// switch (see ast.go), since Go has no native tagged union but a closed
// interface plus a type switch gives the same traversal guarantee with
// none of the per-node Accept/Visit boilerplate.
//
// Every expression visit method sets the node's resolved type (after
// checking) and its IR operand string (after emission), in that order, so
// any later reader of either field observes a fully visited node.
package ir

import (
	"fmt"

	"corec/src/diag"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Visitor owns the symbol tables and IR buffer for one compilation and
// drives the single tree walk that type-checks and emits IR.
type Visitor struct {
	tables *Tables
	buf    *Buffer
	sink   *diag.Sink

	strings    []string // interned string literal contents, in declaration order
	curFunc    *FuncDecl
	whileDepth int
}

// NewVisitor returns a Visitor ready to walk a parsed program.
func NewVisitor(sink *diag.Sink) *Visitor {
	return &Visitor{
		tables: NewTables(sink),
		buf:    NewBuffer(),
		sink:   sink,
	}
}

// ---------------------
// ----- functions -----
// ---------------------

// Run type-checks and emits IR for the whole program, returning the
// complete textual IR (preamble, globals, then function bodies) on
// success. It halts via the diagnostic sink on the first error.
func (v *Visitor) Run(funcs *Funcs) string {
	v.visitFuncs(funcs)

	var out string
	out += preamble
	for i, s := range v.strings {
		out += fmt.Sprintf("@str%d = private unnamed_addr constant [%d x i8] c\"%s\\00\"\n", i, len(s)+1, escapeForLLVM(s))
	}
	out += v.buf.String()
	return out
}

// preamble declares the runtime surface every program depends on: printf,
// exit and print_error_message (the last unused by this visitor's own
// emission but kept as part of the fixed runtime surface), plus the
// format-string and error-message globals used by print/printi and the
// division-by-zero guard.
const preamble = `declare i32 @printf(i8*, ...)
declare void @exit(i32)
declare void @print_error_message()
@.int_specifier = constant [4 x i8] c"%d\0A\00"
@.str_specifier = constant [4 x i8] c"%s\0A\00"
@.div_zero_msg = constant [24 x i8] c"Error division by zero\0A\00"
`

// escapeForLLVM escapes a decoded string literal's bytes for an LLVM
// c"..." constant: every byte outside printable ASCII, plus the quote and
// backslash characters themselves, is rendered as a \HH hex escape (as
// the fixed division-by-zero message above already does for its \0A).
const hexDigits = "0123456789ABCDEF"

func escapeForLLVM(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7E || c == '"' || c == '\\' {
			out = append(out, '\\', hexDigits[c>>4], hexDigits[c&0xF])
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// internString records s as a global string constant and returns the IR
// symbol for it (e.g. "@str3").
func (v *Visitor) internString(s string) string {
	idx := len(v.strings)
	v.strings = append(v.strings, s)
	return fmt.Sprintf("@str%d", idx)
}

// --------------------------------
// ----- Top-level traversal  -----
// --------------------------------

// visitFuncs is the two-phase entry point: first every function is
// inserted into the global table (rejecting duplicates and requiring
// void main()), then every body is visited to emit its IR.
func (v *Visitor) visitFuncs(f *Funcs) {
	for _, fn := range f.List {
		formalTypes := make([]Type, len(fn.Formals.List))
		for i, formal := range fn.Formals.List {
			formalTypes[i] = formal.Type
		}
		v.tables.InsertFunction(fn.Line, fn.Name, fn.ReturnType, formalTypes)
	}

	mainSym, ok := v.tables.functions["main"]
	if !ok || mainSym.ReturnType != VOID || len(mainSym.FormalTypes) != 0 {
		v.sink.MainMissing()
		panic("unreachable")
	}

	for _, fn := range f.List {
		v.visitFuncDecl(fn)
	}
}

// visitFuncDecl emits the signature, the parameter-binding prologue, the
// body, and a trailing fallback return guaranteeing IR validity even when
// the source path falls off the end of the function without an explicit
// return.
func (v *Visitor) visitFuncDecl(fn *FuncDecl) {
	v.curFunc = fn
	v.tables.ResetOffsets()
	v.tables.BeginScope()

	sig := fn.ReturnType.LLVM() + " @" + fn.Name + "("
	for i, formal := range fn.Formals.List {
		if i > 0 {
			sig += ", "
		}
		arg := fmt.Sprintf("%%arg%d", i)
		formal.SetValue(arg)
		sig += formal.Type.LLVM() + " " + arg
	}
	sig += ") {"
	v.buf.EmitRaw("%s", "define "+sig)
	v.buf.EmitLabel("entry")

	for _, formal := range fn.Formals.List {
		sym := v.tables.InsertParam(formal.Line, formal.Name, formal.Type)
		addr := v.buf.FreshTemp()
		sym.EmittedName = addr
		v.buf.Emit("%s = alloca %s", addr, formal.Type.LLVM())
		v.buf.Emit("store %s %s, %s* %s", formal.Type.LLVM(), formal.Value(), formal.Type.LLVM(), addr)
	}

	v.visitStatements(fn.Body)

	v.tables.EndScope()
	if fn.ReturnType == VOID {
		v.buf.Emit("ret void")
	} else {
		v.buf.Emit("ret %s %s", fn.ReturnType.LLVM(), zeroValue(fn.ReturnType))
	}
	v.buf.EmitRaw("}")
	v.curFunc = nil
}

// zeroValue returns the default-initialised literal for t: every built-in
// type (bool, byte, int) shares the same zero bit pattern.
func zeroValue(t Type) string {
	return "0"
}

// -----------------------
// ----- Statements  -----
// -----------------------

func (v *Visitor) visitStatements(s *Statements) {
	v.tables.BeginScope()
	for _, n := range s.List {
		v.visitStatement(n)
	}
	v.tables.EndScope()
}

// visitStatement dispatches on the concrete statement/declaration type.
// Call is also a valid statement: a call whose result is discarded.
func (v *Visitor) visitStatement(n Node) {
	switch s := n.(type) {
	case *VarDecl:
		v.visitVarDecl(s)
	case *Assign:
		v.visitAssign(s)
	case *If:
		v.visitIf(s)
	case *While:
		v.visitWhile(s)
	case *Break:
		v.visitBreak(s)
	case *Continue:
		v.visitContinue(s)
	case *Return:
		v.visitReturn(s)
	case *Statements:
		v.visitStatements(s)
	case *Call:
		v.visitCall(s)
	default:
		panic(fmt.Sprintf("ir: unhandled statement node %T", n))
	}
}

func (v *Visitor) visitVarDecl(s *VarDecl) {
	// STRING is literal-only: it cannot be stored in a user variable.
	if s.Type == STRING {
		v.sink.Mismatch(s.Line)
		panic("unreachable")
	}
	sym := v.tables.InsertSymbol(s.Line, s.Name, s.Type)
	addr := v.buf.FreshTemp()
	sym.EmittedName = addr
	v.buf.Emit("%s = alloca %s", addr, s.Type.LLVM())

	if s.Init != nil {
		v.visitExpr(s.Init)
		val := v.widenTo(s.Line, s.Init, s.Type)
		v.buf.Emit("store %s %s, %s* %s", s.Type.LLVM(), val, s.Type.LLVM(), addr)
	} else {
		v.buf.Emit("store %s %s, %s* %s", s.Type.LLVM(), zeroValue(s.Type), s.Type.LLVM(), addr)
	}
}

func (v *Visitor) visitAssign(s *Assign) {
	sym := v.tables.GetSymbol(s.Line, s.Name)
	v.visitExpr(s.Exp)
	val := v.widenTo(s.Line, s.Exp, sym.Type)
	v.buf.Emit("store %s %s, %s* %s", sym.Type.LLVM(), val, sym.Type.LLVM(), sym.EmittedName)
}

func (v *Visitor) visitIf(s *If) {
	v.visitExpr(s.Cond)
	if s.Cond.ResolvedType() != BOOL {
		v.sink.Mismatch(s.Line)
		panic("unreachable")
	}

	thenLabel := v.buf.FreshLabel()
	endLabel := v.buf.FreshLabel()
	elseLabel := endLabel
	if s.Else != nil {
		elseLabel = v.buf.FreshLabel()
	}

	v.buf.Emit("br i1 %s, label %%%s, label %%%s", s.Cond.Value(), thenLabel, elseLabel)

	v.buf.EmitLabel(thenLabel)
	v.visitStatements(s.Then)
	v.buf.Emit("br label %%%s", endLabel)

	if s.Else != nil {
		v.buf.EmitLabel(elseLabel)
		v.visitStatements(s.Else)
		v.buf.Emit("br label %%%s", endLabel)
	}

	v.buf.EmitLabel(endLabel)
}

func (v *Visitor) visitWhile(s *While) {
	condLabel := v.buf.FreshLabel()
	bodyLabel := v.buf.FreshLabel()
	endLabel := v.buf.FreshLabel()

	v.buf.PushLoop(condLabel, endLabel)
	v.whileDepth++

	v.buf.Emit("br label %%%s", condLabel)
	v.buf.EmitLabel(condLabel)
	v.visitExpr(s.Cond)
	if s.Cond.ResolvedType() != BOOL {
		v.sink.Mismatch(s.Line)
		panic("unreachable")
	}
	v.buf.Emit("br i1 %s, label %%%s, label %%%s", s.Cond.Value(), bodyLabel, endLabel)

	v.buf.EmitLabel(bodyLabel)
	v.visitStatements(s.Body)
	v.buf.Emit("br label %%%s", condLabel)

	v.buf.EmitLabel(endLabel)

	v.whileDepth--
	v.buf.PopLoop()
}

func (v *Visitor) visitBreak(s *Break) {
	if v.whileDepth == 0 {
		v.sink.UnexpectedBreak(s.Line)
		panic("unreachable")
	}
	end, _ := v.buf.LoopEnd()
	v.buf.Emit("br label %%%s", end)
}

func (v *Visitor) visitContinue(s *Continue) {
	if v.whileDepth == 0 {
		v.sink.UnexpectedContinue(s.Line)
		panic("unreachable")
	}
	start, _ := v.buf.LoopStart()
	v.buf.Emit("br label %%%s", start)
}

func (v *Visitor) visitReturn(s *Return) {
	want := v.curFunc.ReturnType
	if s.Exp == nil {
		if want != VOID {
			v.sink.Mismatch(s.Line)
			panic("unreachable")
		}
		v.buf.Emit("ret void")
		return
	}
	if want == VOID {
		v.sink.Mismatch(s.Line)
		panic("unreachable")
	}
	v.visitExpr(s.Exp)
	val := v.widenTo(s.Line, s.Exp, want)
	v.buf.Emit("ret %s %s", want.LLVM(), val)
}

// widenTo type-checks exp's resolved type against want (allowing the
// single BYTE->INT implicit conversion) and returns the IR operand to use,
// inserting a zext when widening actually occurred.
func (v *Visitor) widenTo(line int, exp Expr, want Type) string {
	got := exp.ResolvedType()
	if got == want {
		return exp.Value()
	}
	if !got.Widens(want) {
		v.sink.Mismatch(line)
		panic("unreachable")
	}
	t := v.buf.FreshTemp()
	v.buf.Emit("%s = zext %s %s to %s", t, got.LLVM(), exp.Value(), want.LLVM())
	return t
}

// ------------------------
// ----- Expressions  -----
// ------------------------

// visitExpr dispatches on the concrete expression type, setting the
// node's resolved type and IR value before returning.
func (v *Visitor) visitExpr(n Expr) {
	switch e := n.(type) {
	case *Num:
		e.SetResolvedType(INT)
		e.SetValue(fmt.Sprintf("%d", e.Lit))
	case *NumB:
		if e.Lit > 255 {
			v.sink.ByteTooLarge(e.Line, e.Lit)
			panic("unreachable")
		}
		e.SetResolvedType(BYTE)
		e.SetValue(fmt.Sprintf("%d", e.Lit))
	case *String:
		v.visitString(e)
	case *Bool:
		e.SetResolvedType(BOOL)
		if e.Lit {
			e.SetValue("1")
		} else {
			e.SetValue("0")
		}
	case *ID:
		v.visitID(e)
	case *BinOp:
		v.visitBinOp(e)
	case *RelOp:
		v.visitRelOp(e)
	case *Not:
		v.visitNot(e)
	case *And:
		v.visitAndOr(e, e.Left, e.Right, true)
	case *Or:
		v.visitAndOr(e, e.Left, e.Right, false)
	case *Cast:
		v.visitCast(e)
	case *Call:
		v.visitCall(e)
	default:
		panic(fmt.Sprintf("ir: unhandled expression node %T", n))
	}
}

// visitString interns the literal's decoded contents as a global constant
// and resolves the node's IR value to an i8* pointer at its first byte,
// the same pointer print's printf call needs.
func (v *Visitor) visitString(e *String) {
	sym := v.internString(e.Lit)
	n := len(e.Lit) + 1
	ptr := v.buf.FreshTemp()
	v.buf.Emit("%s = getelementptr [%d x i8], [%d x i8]* %s, i32 0, i32 0", ptr, n, n, sym)
	e.SetResolvedType(STRING)
	e.SetValue(ptr)
}

// visitID resolves a bare identifier to the variable it names. GetSymbol
// never yields a function: a name used as a variable that instead
// resolves to a function halts with DefAsFunc (see symtab.go).
func (v *Visitor) visitID(e *ID) {
	sym := v.tables.GetSymbol(e.Line, e.Name)
	t := v.buf.FreshTemp()
	v.buf.Emit("%s = load %s, %s* %s", t, sym.Type.LLVM(), sym.Type.LLVM(), sym.EmittedName)
	e.SetResolvedType(sym.Type)
	e.SetValue(t)
}

// arithResultType implements INTxINT->INT, BYTExBYTE->BYTE, mixed->INT.
func arithResultType(a, b Type) Type {
	if a == INT || b == INT {
		return INT
	}
	return BYTE
}

func (v *Visitor) visitBinOp(e *BinOp) {
	v.visitExpr(e.Left)
	v.visitExpr(e.Right)

	lt, rt := e.Left.ResolvedType(), e.Right.ResolvedType()
	if (lt != INT && lt != BYTE) || (rt != INT && rt != BYTE) {
		v.sink.Mismatch(e.Line)
		panic("unreachable")
	}
	result := arithResultType(lt, rt)
	lv := v.widenTo(e.Line, e.Left, result)
	rv := v.widenTo(e.Line, e.Right, result)

	if e.Op == DIV {
		e.SetResolvedType(result)
		e.SetValue(v.emitGuardedDiv(result, lv, rv))
		return
	}

	op := map[BinOpKind]string{ADD: "add", SUB: "sub", MUL: "mul"}[e.Op]
	t := v.buf.FreshTemp()
	v.buf.Emit("%s = %s %s %s, %s", t, op, result.LLVM(), lv, rv)
	e.SetResolvedType(result)
	e.SetValue(t)
}

// emitGuardedDiv emits the zero-check required before any division: on a
// zero divisor it prints the fixed error message and exits; otherwise it
// falls through to a signed or unsigned division, according to typ.
func (v *Visitor) emitGuardedDiv(typ Type, lv, rv string) string {
	errLabel := v.buf.FreshLabel()
	okLabel := v.buf.FreshLabel()

	isZero := v.buf.FreshTemp()
	v.buf.Emit("%s = icmp eq %s %s, 0", isZero, typ.LLVM(), rv)
	v.buf.Emit("br i1 %s, label %%%s, label %%%s", isZero, errLabel, okLabel)

	v.buf.EmitLabel(errLabel)
	v.buf.Emit("call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([24 x i8], [24 x i8]* @.div_zero_msg, i32 0, i32 0))")
	v.buf.Emit("call void @exit(i32 1)")
	v.buf.Emit("br label %%%s", okLabel)

	v.buf.EmitLabel(okLabel)
	result := v.buf.FreshTemp()
	instr := "sdiv"
	if typ == BYTE {
		instr = "udiv"
	}
	v.buf.Emit("%s = %s %s %s, %s", result, instr, typ.LLVM(), lv, rv)
	return result
}

var relCodes = map[RelOpKind]string{EQ: "eq", NE: "ne", LT: "slt", LE: "sle", GT: "sgt", GE: "sge"}

func (v *Visitor) visitRelOp(e *RelOp) {
	v.visitExpr(e.Left)
	v.visitExpr(e.Right)

	lt, rt := e.Left.ResolvedType(), e.Right.ResolvedType()
	if (lt != INT && lt != BYTE) || (rt != INT && rt != BYTE) {
		v.sink.Mismatch(e.Line)
		panic("unreachable")
	}
	result := arithResultType(lt, rt)
	lv := v.widenTo(e.Line, e.Left, result)
	rv := v.widenTo(e.Line, e.Right, result)

	t := v.buf.FreshTemp()
	v.buf.Emit("%s = icmp %s %s %s, %s", t, relCodes[e.Op], result.LLVM(), lv, rv)
	e.SetResolvedType(BOOL)
	e.SetValue(t)
}

func (v *Visitor) visitNot(e *Not) {
	v.visitExpr(e.Operand)
	if e.Operand.ResolvedType() != BOOL {
		v.sink.Mismatch(e.Line)
		panic("unreachable")
	}
	t := v.buf.FreshTemp()
	v.buf.Emit("%s = xor i1 1, %s", t, e.Operand.Value())
	e.SetResolvedType(BOOL)
	e.SetValue(t)
}

// visitAndOr implements short-circuit evaluation for And/Or. A stack slot
// holds the final result: the right operand is only evaluated inside the
// "second-operand" block, which is reachable only along the non-shortcut
// path, so the IR itself witnesses the short-circuit.
func (v *Visitor) visitAndOr(e Expr, left, right Expr, isAnd bool) {
	slot := v.buf.FreshTemp()
	v.buf.Emit("%s = alloca i1", slot)
	v.buf.Emit("store i1 0, i1* %s", slot)

	v.visitExpr(left)
	if left.ResolvedType() != BOOL {
		v.sink.Mismatch(e.SourceLine())
		panic("unreachable")
	}

	secondLabel := v.buf.FreshLabel()
	shortcutLabel := v.buf.FreshLabel()
	endLabel := v.buf.FreshLabel()

	if isAnd {
		v.buf.Emit("br i1 %s, label %%%s, label %%%s", left.Value(), secondLabel, shortcutLabel)
	} else {
		v.buf.Emit("br i1 %s, label %%%s, label %%%s", left.Value(), shortcutLabel, secondLabel)
	}

	v.buf.EmitLabel(secondLabel)
	v.visitExpr(right)
	if right.ResolvedType() != BOOL {
		v.sink.Mismatch(e.SourceLine())
		panic("unreachable")
	}
	combined := v.buf.FreshTemp()
	instr := "and"
	if !isAnd {
		instr = "or"
	}
	v.buf.Emit("%s = %s i1 %s, %s", combined, instr, left.Value(), right.Value())
	v.buf.Emit("store i1 %s, i1* %s", combined, slot)
	v.buf.Emit("br label %%%s", endLabel)

	v.buf.EmitLabel(shortcutLabel)
	shortcutVal := "0"
	if !isAnd {
		shortcutVal = "1"
	}
	v.buf.Emit("store i1 %s, i1* %s", shortcutVal, slot)
	v.buf.Emit("br label %%%s", endLabel)

	v.buf.EmitLabel(endLabel)
	result := v.buf.FreshTemp()
	v.buf.Emit("%s = load i1, i1* %s", result, slot)
	e.SetResolvedType(BOOL)
	e.SetValue(result)
}

func (v *Visitor) visitCast(e *Cast) {
	v.visitExpr(e.Operand)
	from := e.Operand.ResolvedType()
	to := e.Target
	if (from != INT && from != BYTE) || (to != INT && to != BYTE) {
		v.sink.Mismatch(e.Line)
		panic("unreachable")
	}
	if from == to {
		e.SetResolvedType(to)
		e.SetValue(e.Operand.Value())
		return
	}
	t := v.buf.FreshTemp()
	if from == BYTE && to == INT {
		v.buf.Emit("%s = zext i8 %s to i32", t, e.Operand.Value())
	} else {
		v.buf.Emit("%s = trunc i32 %s to i8", t, e.Operand.Value())
	}
	e.SetResolvedType(to)
	e.SetValue(t)
}

func (v *Visitor) visitCall(e *Call) {
	if e.Func == "print" {
		v.visitPrint(e)
		return
	}
	if e.Func == "printi" {
		v.visitPrinti(e)
		return
	}

	sym := v.tables.GetFunction(e.Line, e.Func)
	if len(e.Args) != len(sym.FormalTypes) {
		v.sink.PrototypeMismatch(e.Line, e.Func, typeNamesUpper(sym.FormalTypes))
		panic("unreachable")
	}

	argvals := make([]string, len(e.Args))
	for i, arg := range e.Args {
		v.visitExpr(arg)
		want := sym.FormalTypes[i]
		got := arg.ResolvedType()
		switch {
		case got == want:
			argvals[i] = arg.Value()
		case got.Widens(want):
			argvals[i] = v.widenTo(e.Line, arg, want)
		case want == BYTE && got == INT:
			// Lenient by design: the reference compiler truncates an INT
			// actual unconditionally when the formal is BYTE, even for a
			// runtime value. Preserved here; see the open question this
			// behaviour raises about whether an explicit cast should be
			// required instead.
			t := v.buf.FreshTemp()
			v.buf.Emit("%s = trunc i32 %s to i8", t, arg.Value())
			argvals[i] = t
		default:
			v.sink.PrototypeMismatch(e.Line, e.Func, typeNamesUpper(sym.FormalTypes))
			panic("unreachable")
		}
	}

	args := ""
	for i, av := range argvals {
		if i > 0 {
			args += ", "
		}
		args += sym.FormalTypes[i].LLVM() + " " + av
	}

	if sym.ReturnType == VOID {
		v.buf.Emit("call void @%s(%s)", sym.Name, args)
		e.SetResolvedType(VOID)
		e.SetValue("")
		return
	}
	t := v.buf.FreshTemp()
	v.buf.Emit("%s = call %s @%s(%s)", t, sym.ReturnType.LLVM(), sym.Name, args)
	e.SetResolvedType(sym.ReturnType)
	e.SetValue(t)
}

func (v *Visitor) visitPrint(e *Call) {
	if len(e.Args) != 1 {
		v.sink.PrototypeMismatch(e.Line, "print", []string{"STRING"})
		panic("unreachable")
	}
	v.visitExpr(e.Args[0])
	if e.Args[0].ResolvedType() != STRING {
		v.sink.PrototypeMismatch(e.Line, "print", []string{"STRING"})
		panic("unreachable")
	}

	t := v.buf.FreshTemp()
	v.buf.Emit(`%s = call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* @.str_specifier, i32 0, i32 0), i8* %s)`, t, e.Args[0].Value())
	e.SetResolvedType(VOID)
	e.SetValue("")
}

func (v *Visitor) visitPrinti(e *Call) {
	if len(e.Args) != 1 {
		v.sink.PrototypeMismatch(e.Line, "printi", []string{"INT"})
		panic("unreachable")
	}
	v.visitExpr(e.Args[0])
	got := e.Args[0].ResolvedType()
	if got != INT && got != BYTE {
		v.sink.PrototypeMismatch(e.Line, "printi", []string{"INT"})
		panic("unreachable")
	}
	val := v.widenTo(e.Line, e.Args[0], INT)
	t := v.buf.FreshTemp()
	v.buf.Emit(`%s = call i32 (i8*, ...) @printf(i8* getelementptr inbounds ([4 x i8], [4 x i8]* @.int_specifier, i32 0, i32 0), i32 %s)`, t, val)
	e.SetResolvedType(VOID)
	e.SetValue("")
}

// typeNamesUpper renders a formal-type list in the upper-case spelling the
// PrototypeMismatch reporter expects.
func typeNamesUpper(types []Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		switch t {
		case INT:
			out[i] = "INT"
		case BYTE:
			out[i] = "BYTE"
		case BOOL:
			out[i] = "BOOL"
		case STRING:
			out[i] = "STRING"
		case VOID:
			out[i] = "VOID"
		}
	}
	return out
}
