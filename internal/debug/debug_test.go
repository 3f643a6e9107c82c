package debug_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/segmentio/memo/internal/debug"
)

func TestLog(t *testing.T) {
	buf := new(bytes.Buffer)
	debug.SetOutput(buf)
	defer debug.SetOutput(os.Stderr)
	defer debug.Toggle(debug.Enabled())

	debug.Toggle(false)
	debug.Log("msg", "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug log written while disabled: %q", buf.String())
	}

	debug.Toggle(true)
	debug.Log("msg", "visible", "n", 42)

	out := buf.String()
	for _, want := range []string{"level=debug", "msg=visible", "n=42"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in debug output: %q", want, out)
		}
	}
}

func TestDo(t *testing.T) {
	defer debug.Toggle(debug.Enabled())

	called := false
	debug.Toggle(false)
	debug.Do(func() { called = true })
	if called {
		t.Fatal("function called while debug mode is off")
	}

	debug.Toggle(true)
	debug.Do(func() { called = true })
	if !called {
		t.Fatal("function not called while debug mode is on")
	}
}
