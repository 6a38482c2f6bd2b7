package ir

import (
	"bytes"
	"testing"

	"corec/src/diag"
)

func newTestTables() (*Tables, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	sink := &diag.Sink{
		Out: buf,
		Exit: func(code int) {
			panic(diag.Halt{Code: code})
		},
	}
	return NewTables(sink), buf
}

func TestBuiltinsPreseeded(t *testing.T) {
	tbl, _ := newTestTables()
	if !tbl.IsFunctionDefined("print") {
		t.Fatal("print should be pre-seeded")
	}
	if !tbl.IsFunctionDefined("printi") {
		t.Fatal("printi should be pre-seeded")
	}
	sym := tbl.GetFunction(1, "printi")
	if sym.ReturnType != VOID || len(sym.FormalTypes) != 1 || sym.FormalTypes[0] != INT {
		t.Fatalf("unexpected printi signature: %+v", sym)
	}
}

func TestScopeShadowingAndOffsets(t *testing.T) {
	tbl, _ := newTestTables()
	tbl.ResetOffsets()
	tbl.BeginScope()

	a := tbl.InsertParam(1, "a", INT)
	b := tbl.InsertParam(1, "b", BYTE)
	if a.Offset != -1 || b.Offset != -2 {
		t.Fatalf("unexpected param offsets: a=%d b=%d", a.Offset, b.Offset)
	}

	x := tbl.InsertSymbol(2, "x", INT)
	y := tbl.InsertSymbol(3, "y", BYTE)
	if x.Offset != 0 || y.Offset != 1 {
		t.Fatalf("unexpected local offsets: x=%d y=%d", x.Offset, y.Offset)
	}

	tbl.BeginScope()
	z := tbl.InsertSymbol(4, "z", INT)
	if z.Offset != 2 {
		t.Fatalf("nested scope offset should keep counting: got %d", z.Offset)
	}
	got := tbl.GetSymbol(5, "x")
	if got != x {
		t.Fatal("expected to find outer-scope symbol x from nested scope")
	}
	tbl.EndScope()

	if tbl.IsSymbolDefined("z") {
		t.Fatal("z should no longer be visible after EndScope")
	}
}

func TestInsertSymbolRedefinitionHalts(t *testing.T) {
	tbl, buf := newTestTables()
	tbl.BeginScope()
	tbl.InsertSymbol(1, "x", INT)
	tbl.BeginScope()

	defer func() {
		r := recover()
		if _, ok := r.(diag.Halt); !ok {
			t.Fatalf("expected diag.Halt, got %v", r)
		}
		if !bytes.Contains(buf.Bytes(), []byte("x is already defined")) {
			t.Fatalf("unexpected diagnostic: %s", buf.String())
		}
	}()
	tbl.InsertSymbol(2, "x", BYTE)
}

func TestGetSymbolUndefinedHalts(t *testing.T) {
	tbl, buf := newTestTables()
	tbl.BeginScope()

	defer func() {
		r := recover()
		if _, ok := r.(diag.Halt); !ok {
			t.Fatalf("expected diag.Halt, got %v", r)
		}
		if !bytes.Contains(buf.Bytes(), []byte("q is not defined")) {
			t.Fatalf("unexpected diagnostic: %s", buf.String())
		}
	}()
	tbl.GetSymbol(1, "q")
}

func TestGetFunctionOnVariableNameHalts(t *testing.T) {
	tbl, buf := newTestTables()
	tbl.BeginScope()
	tbl.InsertSymbol(1, "x", INT)

	defer func() {
		r := recover()
		if _, ok := r.(diag.Halt); !ok {
			t.Fatalf("expected diag.Halt, got %v", r)
		}
		if !bytes.Contains(buf.Bytes(), []byte("x is a variable")) {
			t.Fatalf("unexpected diagnostic: %s", buf.String())
		}
	}()
	tbl.GetFunction(2, "x")
}

func TestInsertFunctionRedefinitionHalts(t *testing.T) {
	tbl, buf := newTestTables()
	tbl.InsertFunction(1, "f", VOID, nil)

	defer func() {
		r := recover()
		if _, ok := r.(diag.Halt); !ok {
			t.Fatalf("expected diag.Halt, got %v", r)
		}
		if !bytes.Contains(buf.Bytes(), []byte("f is already defined")) {
			t.Fatalf("unexpected diagnostic: %s", buf.String())
		}
	}()
	tbl.InsertFunction(2, "f", INT, nil)
}

func TestInsertSymbolCollidesWithFunctionHalts(t *testing.T) {
	tbl, buf := newTestTables()
	tbl.BeginScope()

	defer func() {
		r := recover()
		if _, ok := r.(diag.Halt); !ok {
			t.Fatalf("expected diag.Halt, got %v", r)
		}
		if !bytes.Contains(buf.Bytes(), []byte("print is a function, not a variable")) {
			t.Fatalf("unexpected diagnostic: %s", buf.String())
		}
	}()
	tbl.InsertSymbol(1, "print", INT)
}

func TestInsertParamCollidesWithFunctionHalts(t *testing.T) {
	tbl, buf := newTestTables()
	tbl.BeginScope()

	defer func() {
		r := recover()
		if _, ok := r.(diag.Halt); !ok {
			t.Fatalf("expected diag.Halt, got %v", r)
		}
		if !bytes.Contains(buf.Bytes(), []byte("printi is a function, not a variable")) {
			t.Fatalf("unexpected diagnostic: %s", buf.String())
		}
	}()
	tbl.InsertParam(1, "printi", INT)
}

func TestIsSymbolDefinedTrueForFunctionName(t *testing.T) {
	tbl, _ := newTestTables()
	if !tbl.IsSymbolDefined("print") {
		t.Fatal("print is a declared function: IsSymbolDefined should report it as taken")
	}
}

func TestEndScopeUnderflowPanics(t *testing.T) {
	tbl, _ := newTestTables()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on EndScope with no open scope")
		}
	}()
	tbl.EndScope()
}
