package spec

import "testing"

func TestMethodNameResolvesKnownPairs(t *testing.T) {
	name, ok := MethodName(ClassConnection, 11)
	if !ok || name != "connection.start-ok" {
		t.Fatalf("unexpected method name: %q ok=%v", name, ok)
	}
	name, ok = MethodName(ClassBasic, 120)
	if !ok || name != "basic.nack" {
		t.Fatalf("unexpected method name: %q ok=%v", name, ok)
	}
}

func TestMethodNameUnknownPairs(t *testing.T) {
	if _, ok := MethodName(ClassBasic, 999); ok {
		t.Fatalf("expected unknown method id to be unresolved")
	}
	if _, ok := MethodName(1234, 10); ok {
		t.Fatalf("expected unknown class id to be unresolved")
	}
}

func TestLookupMethodInvertsTable(t *testing.T) {
	for _, name := range MethodNames() {
		id, ok := LookupMethod(name)
		if !ok {
			t.Fatalf("lookup %q failed", name)
		}
		back, ok := MethodName(id.Class, id.Method)
		if !ok || back != name {
			t.Fatalf("round trip %q -> %+v -> %q", name, id, back)
		}
	}
}

func TestClassName(t *testing.T) {
	if name, ok := ClassName(ClassBasic); !ok || name != "basic" {
		t.Fatalf("unexpected class name: %q ok=%v", name, ok)
	}
}
