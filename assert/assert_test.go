package assert_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/kolkov/sharedguard/assert"
)

func TestEqualsPassAndFail(t *testing.T) {
	if err := assert.Equals(1, 1); err != nil {
		t.Fatalf("Equals(1, 1) = %v, want nil", err)
	}

	err := assert.Equals(1, 2)
	if err == nil {
		t.Fatal("Equals(1, 2) = nil, want error")
	}

	var ae *assert.Error
	if !errors.As(err, &ae) {
		t.Fatalf("error is %T, want *assert.Error", err)
	}
	if !strings.Contains(ae.Condition, "'1' == '2'") {
		t.Errorf("Condition = %q, want the rendered comparison", ae.Condition)
	}
	if ae.File == "" || ae.Line == 0 {
		t.Errorf("call site not captured: file=%q line=%d", ae.File, ae.Line)
	}
	if !strings.Contains(ae.Func, "TestEqualsPassAndFail") {
		t.Errorf("Func = %q, want the calling test", ae.Func)
	}
	if !strings.Contains(ae.Error(), "assert_test.go") {
		t.Errorf("Error() should include the file, got %q", ae.Error())
	}
}

func TestThatCarriesMessage(t *testing.T) {
	if err := assert.That(true, "unused"); err != nil {
		t.Fatalf("That(true) = %v", err)
	}

	err := assert.That(false, "widget %d missing", 7)
	if err == nil {
		t.Fatal("That(false) = nil, want error")
	}
	var ae *assert.Error
	errors.As(err, &ae)
	if ae.Message != "widget 7 missing" {
		t.Errorf("Message = %q", ae.Message)
	}
}

func TestOrderingHelpers(t *testing.T) {
	if err := assert.Less(1, 2); err != nil {
		t.Errorf("Less(1, 2) = %v", err)
	}
	if err := assert.Less(2, 2); err == nil {
		t.Error("Less(2, 2) = nil, want error")
	}
	if err := assert.LessOrEqual(2, 2); err != nil {
		t.Errorf("LessOrEqual(2, 2) = %v", err)
	}
	if err := assert.NotEquals("a", "b"); err != nil {
		t.Errorf("NotEquals(a, b) = %v", err)
	}
	if err := assert.NotEquals("a", "a"); err == nil {
		t.Error("NotEquals(a, a) = nil, want error")
	}
}

func TestFuzzyEquals(t *testing.T) {
	if err := assert.FuzzyEquals(1.0, 1.05, 0.1); err != nil {
		t.Errorf("FuzzyEquals within tolerance = %v", err)
	}

	err := assert.FuzzyEquals(1.0, 2.0, 0.1)
	if err == nil {
		t.Fatal("FuzzyEquals outside tolerance = nil, want error")
	}
	if !strings.Contains(err.Error(), "tolerance") {
		t.Errorf("error should mention the tolerance: %v", err)
	}
}
