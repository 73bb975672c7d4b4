package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

const (
	envInput  = "FASTVEC_INPUT"
	envOutDir = "FASTVEC_OUT_DIR"
)

// stderrIsTTY is a small seam for tests.
var stderrIsTTY = func() bool { return term.IsTerminal(int(os.Stderr.Fd())) }

func resolveInput(inFlag string) (string, error) {
	in := strings.TrimSpace(inFlag)
	if in == "" {
		return "", fmt.Errorf("--input is required unless %s is set", envInput)
	}
	st, err := os.Stat(in)
	if err != nil {
		return "", err
	}
	if st.IsDir() {
		return "", fmt.Errorf("input is a directory: %s", in)
	}
	return filepath.Clean(in), nil
}

// resolveVecOut picks the .vec output path. An explicit flag wins; otherwise
// the input's base name is placed in FASTVEC_OUT_DIR or ./out. The bool
// reports whether the path was defaulted.
func resolveVecOut(input, outFlag string) (string, bool, error) {
	outFlag = strings.TrimSpace(outFlag)
	if outFlag != "" {
		out := filepath.Clean(outFlag)
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return "", false, err
		}
		return out, false, nil
	}

	base := filepath.Base(filepath.Clean(input))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", true, errors.New("cannot derive output name from input; set --output")
	}
	base = strings.TrimSuffix(base, filepath.Ext(base))

	dir := strings.TrimSpace(os.Getenv(envOutDir))
	if dir == "" {
		dir = filepath.Join(".", "out")
	}
	out := filepath.Join(dir, base+".vec")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", true, err
	}
	return out, true, nil
}
