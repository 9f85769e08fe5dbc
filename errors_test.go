package pureshell

import (
	"errors"
	"strings"
	"testing"
)

// ============================================================================
// Error Taxonomy Tests
// ============================================================================

func TestErrors_WrapRoot(t *testing.T) {
	errs := []error{
		&ProviderError{Entity: "Cart", Method: "Total"},
		&PureFunctionError{Function: "Total", Provider: "CartRules", Tier: TierType, Entity: "Cart"},
		&LiveAttributeError{Attr: "items", Entity: "Cart", Method: "Total"},
		&NonStaticMemberError{Ruleset: "CartRules", Member: "Apply"},
		&UnauthorizedLogicError{Entity: "Cart", Member: "Calculate"},
		&DeclarationError{Type: "Cart", Reason: "bad"},
		&CallError{Entity: "Cart", Method: "Total", Reason: "bad"},
	}
	for _, err := range errs {
		if !errors.Is(err, ErrPureShell) {
			t.Errorf("expected %T to wrap ErrPureShell", err)
		}
		if !strings.HasPrefix(err.Error(), "pureshell: ") {
			t.Errorf("expected pureshell prefix, got %q", err.Error())
		}
	}
}

func TestErrors_KindsAreDistinct(t *testing.T) {
	err := &LiveAttributeError{Attr: "items", Entity: "Cart", Method: "Total"}
	if !errors.Is(err, ErrMissingLiveAttribute) {
		t.Error("expected ErrMissingLiveAttribute")
	}
	if errors.Is(err, ErrMissingProvider) || errors.Is(err, ErrMissingPureFunction) {
		t.Error("expected live attribute error to match only its own kind")
	}
}

func TestErrors_MessagesNameContext(t *testing.T) {
	tests := []struct {
		err  error
		want []string
	}{
		{&ProviderError{Entity: "Cart", Method: "Total"}, []string{`"Cart"`, `"Total"`, "SetRules"}},
		{&PureFunctionError{Function: "Total", Provider: "Rules", Tier: TierInstance, Entity: "Cart"}, []string{`"Total"`, `"Rules"`, "instance"}},
		{&LiveAttributeError{Attr: "items", Entity: "Cart", Method: "Total"}, []string{`"items"`, `"Cart"`, `"Total"`}},
		{&DeclarationError{Type: "Cart", Member: "Get", Reason: "no fields"}, []string{`"Get"`, "no fields"}},
	}
	for _, tt := range tests {
		msg := tt.err.Error()
		for _, w := range tt.want {
			if !strings.Contains(msg, w) {
				t.Errorf("expected %q in %q", w, msg)
			}
		}
	}
}
