package main

import "testing"

func TestSplitMethodRef(t *testing.T) {
	name, desc, ok := splitMethodRef("decrypt(J)Ljava/lang/String;")
	if !ok {
		t.Fatal("expected a successful split")
	}
	if name != "decrypt" || desc != "(J)Ljava/lang/String;" {
		t.Errorf("got (%q, %q)", name, desc)
	}
}

func TestSplitMethodRefNoParens(t *testing.T) {
	if _, _, ok := splitMethodRef("decrypt"); ok {
		t.Error("a ref with no descriptor should fail to split")
	}
}
