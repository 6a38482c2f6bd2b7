package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"

	"corec/src/diag"
	"corec/src/frontend"
	"corec/src/ir"
	"corec/src/llvmverify"
	"corec/src/util"
)

// run reads source code and drives the compiler's stages in order, writing
// the final result through w. Behaviour is governed by the Options value
// returned by util.ParseArgs.
func run(opt util.Options, w *util.Writer) error {
	src, err := util.ReadSource(opt)
	if err != nil {
		return errors.Wrap(err, "could not read source code")
	}

	sink := diag.NewSink()

	// If -ts flag was passed: output token stream and exit.
	if opt.TokenStream {
		w.WriteString(frontend.TokenStream(src, sink))
		return nil
	}

	// Lex and parse source code into the syntax tree.
	funcs := frontend.Parse(src, sink)

	// Type-check and lower the syntax tree to textual IR in a single pass.
	out := ir.NewVisitor(sink).Run(funcs)

	if opt.VerifyLLVM {
		if err := llvmverify.Verify(out); err != nil {
			return errors.Wrap(err, "generated IR failed LLVM verification")
		}
	}

	w.WriteString(out)
	return nil
}

func main() {
	opt, err := util.ParseArgs()
	if err != nil {
		fmt.Printf("Command line argument error: %s\n", err)
		os.Exit(1)
	}

	// Initiate output writer.
	wg := sync.WaitGroup{}
	if len(opt.Out) > 0 {
		// Attempt to open output file. Create new file if necessary.
		f, err := os.OpenFile(opt.Out, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		defer func(f *os.File) {
			if err := f.Close(); err != nil {
				fmt.Println(err)
			}
		}(f)
		util.ListenWrite(opt, f, &wg)
	} else {
		// Write results to stdout.
		util.ListenWrite(opt, nil, &wg)
	}

	w := util.NewWriter()
	runErr := run(opt, &w)
	w.Close()
	util.Close()

	// Wait for the listener to drain the final write before exiting.
	wg.Wait()

	if runErr != nil {
		fmt.Printf("Error: %s\n", runErr)
		os.Exit(1)
	}
}
