package errors

import (
	"errors"
	"testing"
)

// TestWrapKeepsCodeAndChain 验证 Wrap/Code/errors.Is 的基础行为。
func TestWrapKeepsCodeAndChain(t *testing.T) {
	base := errors.New("broken pipe")
	e := Wrap(CodeTransportIO, "transport write failed", base)
	if Code(e) != CodeTransportIO {
		t.Fatalf("code=%d", Code(e))
	}
	if !errors.Is(e, base) {
		t.Fatalf("unwrap failed")
	}
	w := Wrap(CodeSinkWrite, "sink write failed", nil)
	if Code(w) != CodeSinkWrite || w.Unwrap() != nil {
		t.Fatalf("wrap nil: code=%d unwrap=%v", Code(w), w.Unwrap())
	}
}

// TestCodeFallback 验证非 CodeError 与 nil 的错误码回退。
func TestCodeFallback(t *testing.T) {
	if Code(errors.New("x")) != CodeInternal {
		t.Fatalf("expected internal fallback")
	}
	if Code(nil) != 0 {
		t.Fatalf("expected code 0 for nil")
	}
}

// TestWithMessagePreservesCode 验证 WithMessage 对 CodeError 与普通错误的处理。
func TestWithMessagePreservesCode(t *testing.T) {
	ce := New(CodeTransportTimeout, "read timeout")
	w := WithMessage(ce, "interactive send")
	if Code(w) != CodeTransportTimeout {
		t.Fatalf("code=%d", Code(w))
	}
	if w.Error() == "" {
		t.Fatalf("expected message")
	}
	plain := WithMessage(errors.New("x"), "ctx")
	if Code(plain) != CodeInternal {
		t.Fatalf("expected internal fallback after wrap")
	}
	if WithMessage(nil, "ctx") != nil {
		t.Fatalf("expected nil passthrough")
	}
}
