package location

import (
	"context"
	"testing"
)

func Test_Extract_NilGatewayReturnsNoLocation(t *testing.T) {
	t.Parallel()
	a := New(nil)
	r := a.Extract(context.Background(), "show me Seattle")
	if r.Name != nil {
		t.Errorf("Name = %v, want nil", *r.Name)
	}
	if r.Confidence != 0 {
		t.Errorf("Confidence = %v, want 0", r.Confidence)
	}
}
