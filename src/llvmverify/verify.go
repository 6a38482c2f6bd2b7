// Package llvmverify parses the textual IR produced by package ir against
// the system LLVM installation and runs its module verifier over it. It is
// an optional, opt-in pass: the compiler emits valid IR without it, but
// wiring the real LLVM library catches anything the hand-written visitor
// got wrong before a user feeds the output to llc or lli.
package llvmverify

import (
	"fmt"

	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"
)

// Verify parses ir as LLVM textual IR and runs LLVM's own module verifier
// over the result. A non-nil error either names a parse failure (malformed
// IR syntax) or carries the verifier's own diagnostic text.
func Verify(ir string) error {
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	buf := llvm.NewMemoryBufferFromMemoryRangeCopy([]byte(ir), "module")
	mod, err := ctx.ParseIR(buf)
	if err != nil {
		return errors.Wrap(err, "parsing generated IR")
	}
	defer mod.Dispose()

	if err := llvm.VerifyModule(mod, llvm.ReturnStatusAction); err != nil {
		return errors.Wrap(err, "LLVM module verification failed")
	}
	return nil
}

// Dump parses ir and returns the module's own canonical textual rendering,
// so a caller can diff the visitor's hand-written output against what LLVM
// itself considers the same module.
func Dump(ir string) (string, error) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()

	buf := llvm.NewMemoryBufferFromMemoryRangeCopy([]byte(ir), "module")
	mod, err := ctx.ParseIR(buf)
	if err != nil {
		return "", errors.Wrap(err, "parsing generated IR")
	}
	defer mod.Dispose()

	return fmt.Sprint(mod.String()), nil
}
