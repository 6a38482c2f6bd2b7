package frontend

import (
	"bytes"
	"testing"

	"corec/src/diag"
	"corec/src/ir"
)

func newTestParseSink() (*diag.Sink, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &diag.Sink{
		Out: buf,
		Exit: func(code int) {
			panic(diag.Halt{Code: code})
		},
	}, buf
}

func TestParseMinimalMain(t *testing.T) {
	sink, _ := newTestParseSink()
	src := `void main() { int x = 5; printi(x); }`
	funcs := Parse(src, sink)

	if len(funcs.List) != 1 {
		t.Fatalf("expected 1 function, got %d", len(funcs.List))
	}
	fn := funcs.List[0]
	if fn.Name != "main" || fn.ReturnType != ir.VOID {
		t.Fatalf("unexpected function: %+v", fn)
	}
	if len(fn.Body.List) != 2 {
		t.Fatalf("expected 2 statements in body, got %d", len(fn.Body.List))
	}
	decl, ok := fn.Body.List[0].(*ir.VarDecl)
	if !ok {
		t.Fatalf("expected VarDecl, got %T", fn.Body.List[0])
	}
	if decl.Name != "x" || decl.Type != ir.INT {
		t.Fatalf("unexpected decl: %+v", decl)
	}
	num, ok := decl.Init.(*ir.Num)
	if !ok || num.Lit != 5 {
		t.Fatalf("unexpected init expression: %+v", decl.Init)
	}
	call, ok := fn.Body.List[1].(*ir.Call)
	if !ok || call.Func != "printi" || len(call.Args) != 1 {
		t.Fatalf("unexpected call: %+v", fn.Body.List[1])
	}
}

func TestParseIfElse(t *testing.T) {
	sink, _ := newTestParseSink()
	src := `void main(){ int a=0; int b=1; if (a<b) { printi(a); } else { printi(b); } }`
	funcs := Parse(src, sink)

	fn := funcs.List[0]
	ifStmt, ok := fn.Body.List[2].(*ir.If)
	if !ok {
		t.Fatalf("expected If, got %T", fn.Body.List[2])
	}
	rel, ok := ifStmt.Cond.(*ir.RelOp)
	if !ok || rel.Op != ir.LT {
		t.Fatalf("expected RelOp LT condition, got %+v", ifStmt.Cond)
	}
	if ifStmt.Else == nil {
		t.Fatal("expected an else branch")
	}
}

func TestParseWhileBreakContinue(t *testing.T) {
	sink, _ := newTestParseSink()
	src := `void main(){ while (true) { break; continue; } }`
	funcs := Parse(src, sink)

	fn := funcs.List[0]
	w, ok := fn.Body.List[0].(*ir.While)
	if !ok {
		t.Fatalf("expected While, got %T", fn.Body.List[0])
	}
	if _, ok := w.Body.List[0].(*ir.Break); !ok {
		t.Fatalf("expected Break, got %T", w.Body.List[0])
	}
	if _, ok := w.Body.List[1].(*ir.Continue); !ok {
		t.Fatalf("expected Continue, got %T", w.Body.List[1])
	}
}

func TestParseCastAndShortCircuit(t *testing.T) {
	sink, _ := newTestParseSink()
	src := `void main(){ byte b = 10b; int y = (int) b; bool c = true && false || true; }`
	funcs := Parse(src, sink)

	fn := funcs.List[0]
	decl, ok := fn.Body.List[1].(*ir.VarDecl)
	if !ok {
		t.Fatalf("expected VarDecl, got %T", fn.Body.List[1])
	}
	cast, ok := decl.Init.(*ir.Cast)
	if !ok || cast.Target != ir.INT {
		t.Fatalf("expected Cast to INT, got %+v", decl.Init)
	}

	boolDecl, ok := fn.Body.List[2].(*ir.VarDecl)
	if !ok {
		t.Fatalf("expected VarDecl, got %T", fn.Body.List[2])
	}
	or, ok := boolDecl.Init.(*ir.Or)
	if !ok {
		t.Fatalf("expected top-level Or, got %T", boolDecl.Init)
	}
	if _, ok := or.Left.(*ir.And); !ok {
		t.Fatalf("expected And on the left of Or (&& binds tighter), got %T", or.Left)
	}
}

func TestParseSyntaxErrorHalts(t *testing.T) {
	sink, buf := newTestParseSink()
	defer func() {
		r := recover()
		if _, ok := r.(diag.Halt); !ok {
			t.Fatalf("expected diag.Halt, got %v", r)
		}
		if !bytes.Contains(buf.Bytes(), []byte("syntax error")) {
			t.Fatalf("unexpected diagnostic: %s", buf.String())
		}
	}()
	Parse(`void main() { int = 5; }`, sink)
}
