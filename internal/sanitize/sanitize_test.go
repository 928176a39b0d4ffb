package sanitize

import "testing"

func TestInteger(t *testing.T) {
	cases := []struct {
		in   any
		want int
		ok   bool
	}{
		{42, 42, true},
		{"17", 17, true},
		{int64(5), 5, true},
		{"abc", 0, false},
		{nil, 0, false},
		{[]int{1}, 0, false},
	}
	for _, tc := range cases {
		got, ok := Integer(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Integer(%v) = %d,%v want %d,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestBoolean(t *testing.T) {
	if b, ok := Boolean("true"); !ok || !b {
		t.Error("expected \"true\" to sanitize to true")
	}
	if _, ok := Boolean("maybe"); ok {
		t.Error("expected \"maybe\" to fail")
	}
	if _, ok := Boolean(nil); ok {
		t.Error("expected nil to fail")
	}
}

func TestString(t *testing.T) {
	if s, ok := String(3.5); !ok || s != "3.5" {
		t.Errorf("String(3.5) = %q,%v", s, ok)
	}
	if _, ok := String(map[string]any{}); ok {
		t.Error("expected map to fail string conversion")
	}
}

func TestIsPlainObject(t *testing.T) {
	if !IsPlainObject(map[string]any{"a": 1}) {
		t.Error("expected plain object")
	}
	if IsPlainObject([]any{1}) || IsPlainObject("x") || IsPlainObject(nil) {
		t.Error("non-objects must fail")
	}
}

func TestValidators(t *testing.T) {
	if !Email("dev@example.com") || Email("not-an-email") {
		t.Error("email validation broken")
	}
	if !URL("https://example.com/x") || URL("::nope::") {
		t.Error("url validation broken")
	}
	if !IP("10.0.0.1") || !IP("::1") || IP("999.1.1.1") {
		t.Error("ip validation broken")
	}
}
