package diag

import (
	"bytes"
	"strings"
	"testing"
)

// newTestSink returns a Sink whose Exit panics with Halt instead of killing
// the test process, and a buffer holding everything written to Out.
func newTestSink() (*Sink, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	s := &Sink{
		Out: buf,
		Exit: func(code int) {
			panic(Halt{Code: code})
		},
	}
	return s, buf
}

func expectHalt(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected reporter to halt, but it returned normally")
		}
		if _, ok := r.(Halt); !ok {
			panic(r) // not ours: re-panic.
		}
	}()
	fn()
}

func TestReportersHaltWithMessage(t *testing.T) {
	cases := []struct {
		name string
		call func(s *Sink)
		want string
	}{
		{"Lex", func(s *Sink) { s.Lex(3) }, "line 3: lexical error"},
		{"Syn", func(s *Sink) { s.Syn(4) }, "line 4: syntax error"},
		{"Undef", func(s *Sink) { s.Undef(5, "x") }, "x is not defined"},
		{"DefAsFunc", func(s *Sink) { s.DefAsFunc(6, "f") }, "f is a function"},
		{"UndefFunc", func(s *Sink) { s.UndefFunc(7, "g") }, "function g is not defined"},
		{"DefAsVar", func(s *Sink) { s.DefAsVar(8, "h") }, "h is a variable"},
		{"Def", func(s *Sink) { s.Def(9, "y") }, "y is already defined"},
		{"PrototypeMismatch", func(s *Sink) { s.PrototypeMismatch(10, "f", []string{"INT", "BYTE"}) }, "INT,BYTE"},
		{"Mismatch", func(s *Sink) { s.Mismatch(11) }, "type mismatch"},
		{"UnexpectedBreak", func(s *Sink) { s.UnexpectedBreak(12) }, "unexpected break"},
		{"UnexpectedContinue", func(s *Sink) { s.UnexpectedContinue(13) }, "unexpected continue"},
		{"MainMissing", func(s *Sink) { s.MainMissing() }, "void main()"},
		{"ByteTooLarge", func(s *Sink) { s.ByteTooLarge(14, 300) }, "300"},
		{"UnknownChar", func(s *Sink) { s.UnknownChar(15, '$') }, "'$'"},
		{"UnclosedString", func(s *Sink) { s.UnclosedString(16) }, "unclosed string"},
		{"UndefinedEscape", func(s *Sink) { s.UndefinedEscape(17, "q") }, `\q`},
		{"UndefinedHexEscape", func(s *Sink) { s.UndefinedHexEscape(18, "xG") }, `\xG`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s, buf := newTestSink()
			expectHalt(t, func() { c.call(s) })
			if !strings.Contains(buf.String(), c.want) {
				t.Errorf("output %q does not contain %q", buf.String(), c.want)
			}
		})
	}
}
