// Package test contains helpers shared by the tests of this module.
package test

import (
	"fmt"
	"testing"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// Diff returns a unified diff of two texts, or an empty string if they are
// equal.
func Diff(want, got string) string {
	if want == got {
		return ""
	}
	edits := myers.ComputeEdits(span.URIFromPath("want"), want, got)
	return fmt.Sprint(gotextdiff.ToUnified("want", "got", want, edits))
}

// AssertTextEqual reports a test error showing the differences between want
// and got when they are not equal.
func AssertTextEqual(t testing.TB, want, got string) bool {
	t.Helper()

	if diff := Diff(want, got); diff != "" {
		t.Errorf("text mismatch:\n%s", diff)
		return false
	}
	return true
}
