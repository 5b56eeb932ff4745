package discovery

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type stubSource struct {
	name      string
	endpoints []string
	err       error
	calls     int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Discover(ctx context.Context) ([]string, error) {
	s.calls++
	return s.endpoints, s.err
}

func TestTieredSource_FirstNonEmptyWins(t *testing.T) {
	first := &stubSource{name: "first", endpoints: []string{"http://a:8899"}}
	second := &stubSource{name: "second", endpoints: []string{"http://b:8899"}}

	source := NewTieredSource(discardLogger(), first, second)

	got, err := source.Discover(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"http://a:8899"}) {
		t.Errorf("got %v", got)
	}
	if second.calls != 0 {
		t.Error("second tier should not run when the first yields endpoints")
	}
}

func TestTieredSource_ErrorFallsThrough(t *testing.T) {
	failing := &stubSource{name: "failing", err: errors.New("spawn error")}
	empty := &stubSource{name: "empty"}
	seeds := &stubSource{name: "seeds", endpoints: []string{"http://seed:8899"}}

	source := NewTieredSource(discardLogger(), failing, empty, seeds)

	got, err := source.Discover(context.Background())
	if err != nil {
		t.Fatalf("tier errors must not surface: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"http://seed:8899"}) {
		t.Errorf("got %v", got)
	}
}

func TestTieredSource_AllTiersEmpty(t *testing.T) {
	source := NewTieredSource(discardLogger(), &stubSource{name: "a"}, &stubSource{name: "b"})

	got, err := source.Discover(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no endpoints, got %v", got)
	}
}

func TestStaticSeedSource(t *testing.T) {
	source := NewStaticSeedSource("https://rpc.testnet.x1.xyz", discardLogger())

	got, err := source.Discover(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"https://rpc.testnet.x1.xyz",
		"http://localhost:8899",
		"http://127.0.0.1:8899",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
