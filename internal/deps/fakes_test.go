package deps

import (
	"context"
	"fmt"

	"github.com/oshokin/linux-deps/internal/platform"
	"github.com/oshokin/linux-deps/internal/shell"
	"github.com/oshokin/linux-deps/internal/sysroot"
)

type acquireCall struct {
	kind sysroot.Kind
	arch platform.Arch
}

type fakeSysroots struct {
	calls []acquireCall
	err   error
}

func (f *fakeSysroots) Acquire(_ context.Context, kind sysroot.Kind, arch platform.Arch) (string, error) {
	f.calls = append(f.calls, acquireCall{kind: kind, arch: arch})
	if f.err != nil {
		return "", f.err
	}

	return fmt.Sprintf("/sysroots/%s-%s", kind, arch), nil
}

type extractCall struct {
	files   []string
	sysroot string
}

// fakeExtractor answers every call with the next prepared result.
type fakeExtractor struct {
	results [][]Set
	calls   []extractCall
}

func (f *fakeExtractor) Extract(_ context.Context, files []string, _ platform.Arch, sysroot string) ([]Set, error) {
	f.calls = append(f.calls, extractCall{files: append([]string(nil), files...), sysroot: sysroot})
	if len(f.results) == 0 {
		return nil, nil
	}

	next := f.results[0]
	f.results = f.results[1:]

	return next, nil
}

type staticBaseline map[platform.Arch][]string

func (b staticBaseline) Lookup(_ platform.PackageType, arch platform.Arch) []string {
	return b[arch]
}

// fakeRunner records commands and answers from a callback.
type fakeRunner struct {
	commands []shell.Command
	answer   func(cmd shell.Command) ([]byte, error)
}

func (f *fakeRunner) Run(_ context.Context, cmd shell.Command) ([]byte, error) {
	f.commands = append(f.commands, cmd)

	return f.answer(cmd)
}
