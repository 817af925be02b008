package environment

import "testing"

func TestStringOr(t *testing.T) {
	t.Setenv("AGENTSTORE_TEST_STRING", "set")
	if got := StringOr("AGENTSTORE_TEST_STRING", "fallback"); got != "set" {
		t.Errorf("set variable: got %q", got)
	}
	if got := StringOr("AGENTSTORE_TEST_STRING_MISSING", "fallback"); got != "fallback" {
		t.Errorf("missing variable: got %q", got)
	}

	t.Setenv("AGENTSTORE_TEST_STRING_EMPTY", "")
	if got := StringOr("AGENTSTORE_TEST_STRING_EMPTY", "fallback"); got != "fallback" {
		t.Errorf("empty variable: got %q", got)
	}
}

func TestIntOr(t *testing.T) {
	t.Setenv("AGENTSTORE_TEST_INT", "42")
	if got := IntOr("AGENTSTORE_TEST_INT", 7); got != 42 {
		t.Errorf("numeric variable: got %d", got)
	}

	t.Setenv("AGENTSTORE_TEST_INT_BAD", "not-a-number")
	if got := IntOr("AGENTSTORE_TEST_INT_BAD", 7); got != 7 {
		t.Errorf("unparsable variable: got %d", got)
	}
	if got := IntOr("AGENTSTORE_TEST_INT_MISSING", 7); got != 7 {
		t.Errorf("missing variable: got %d", got)
	}
}

func TestBoolOr(t *testing.T) {
	cases := map[string]bool{
		"true": true, "1": true, "false": false, "0": false,
	}
	for raw, want := range cases {
		t.Setenv("AGENTSTORE_TEST_BOOL", raw)
		if got := BoolOr("AGENTSTORE_TEST_BOOL", !want); got != want {
			t.Errorf("%q: got %v, want %v", raw, got, want)
		}
	}

	t.Setenv("AGENTSTORE_TEST_BOOL", "maybe")
	if got := BoolOr("AGENTSTORE_TEST_BOOL", true); got != true {
		t.Errorf("unparsable variable should fall back: got %v", got)
	}
	if got := BoolOr("AGENTSTORE_TEST_BOOL_MISSING", true); got != true {
		t.Errorf("missing variable should fall back: got %v", got)
	}
}
