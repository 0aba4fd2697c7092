package server

import "testing"

func TestIntArg(t *testing.T) {
	args := map[string]any{"timeout": float64(5000), "bad": "soon"}

	if v, msg := intArg(args, "timeout", 30000); v != 5000 || msg != "" {
		t.Errorf("intArg(timeout) = %d, %q", v, msg)
	}
	if v, msg := intArg(args, "absent", 30000); v != 30000 || msg != "" {
		t.Errorf("intArg(absent) = %d, %q", v, msg)
	}
	if _, msg := intArg(args, "bad", 30000); msg != "Timeout must be an integer" {
		t.Errorf("intArg(bad) msg = %q", msg)
	}
}

func TestFloatArg(t *testing.T) {
	args := map[string]any{"delay": 0.5, "bad": true}

	if v, msg := floatArg(args, "delay", 1.0); v != 0.5 || msg != "" {
		t.Errorf("floatArg(delay) = %f, %q", v, msg)
	}
	if v, msg := floatArg(args, "absent", 1.0); v != 1.0 || msg != "" {
		t.Errorf("floatArg(absent) = %f, %q", v, msg)
	}
	if _, msg := floatArg(args, "bad", 1.0); msg == "" {
		t.Error("floatArg(bad) should report a message")
	}
}

func TestBoolArg(t *testing.T) {
	args := map[string]any{"on": true, "off": false, "junk": "yes"}

	if !boolArg(args, "on", false) {
		t.Error("boolArg(on) = false")
	}
	if boolArg(args, "off", true) {
		t.Error("boolArg(off) = true")
	}
	if !boolArg(args, "junk", true) {
		t.Error("boolArg with non-bool value should fall back")
	}
	if boolArg(args, "absent", false) {
		t.Error("boolArg(absent) should fall back")
	}
}

func TestStringMapArg(t *testing.T) {
	args := map[string]any{
		"good":  map[string]any{"a": "1", "n": float64(2)},
		"wrong": []any{"x"},
	}

	m, ok := stringMapArg(args, "good")
	if !ok {
		t.Fatal("good object rejected")
	}
	if m["a"] != "1" || m["n"] != "2" {
		t.Errorf("map = %v", m)
	}

	if _, ok := stringMapArg(args, "wrong"); ok {
		t.Error("non-object should be rejected")
	}

	m, ok = stringMapArg(args, "absent")
	if !ok || m != nil {
		t.Errorf("absent key = %v, %v; want nil, true", m, ok)
	}
}
