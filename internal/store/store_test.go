package store

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{" aapl", "MSFT", "", "Aapl ", "spy", "  "})
	want := []string{"AAPL", "MSFT", "SPY"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAddRemove(t *testing.T) {
	list := []string{"AAPL"}

	list, added := Add(list, " msft ")
	if !added || !reflect.DeepEqual(list, []string{"AAPL", "MSFT"}) {
		t.Errorf("add msft: %v %v", list, added)
	}
	if _, added := Add(list, "aapl"); added {
		t.Error("duplicate should not be added")
	}
	if _, added := Add(list, "   "); added {
		t.Error("blank should not be added")
	}

	list, removed := Remove(list, "aapl")
	if !removed || !reflect.DeepEqual(list, []string{"MSFT"}) {
		t.Errorf("remove aapl: %v %v", list, removed)
	}
	if _, removed := Remove(list, "ZZZ"); removed {
		t.Error("removing an absent symbol should report false")
	}
}

func testRoundTrip(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("fresh store should be empty, got %v", got)
	}

	if err := s.Save(ctx, []string{"msft", "AAPL", "spy"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if want := []string{"MSFT", "AAPL", "SPY"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if err := s.Save(ctx, []string{"QQQ"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = s.Load(ctx)
	if want := []string{"QQQ"}; !reflect.DeepEqual(got, want) {
		t.Errorf("after overwrite got %v, want %v", got, want)
	}

	if err := s.Save(ctx, nil); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	got, _ = s.Load(ctx)
	if len(got) != 0 {
		t.Errorf("after clearing got %v", got)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "data", "symbols.txt"))
	defer s.Close()
	testRoundTrip(t, s)
}

func TestFileStore_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.txt")
	if err := os.WriteFile(path, []byte("aapl\n\n  msft  \r\nSpy"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path)
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if want := []string{"AAPL", "MSFT", "SPY"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if err := s.Save(context.Background(), []string{"aapl", "tsla"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "AAPL\nTSLA\n" {
		t.Errorf("file contents = %q", data)
	}
}

func TestFileStore_LoadDropsRepeats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.txt")
	if err := os.WriteFile(path, []byte("AAPL\naapl\nAAPL\nmsft\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := NewFileStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if want := []string{"AAPL", "MSFT"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(RedisConfig{Addr: mr.Addr(), Key: "test:symbols"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	s, mr := newTestRedisStore(t)
	testRoundTrip(t, s)

	if err := s.Save(context.Background(), []string{"aapl", "spy"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := mr.List("test:symbols")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if want := []string{"AAPL", "SPY"}; !reflect.DeepEqual(got, want) {
		t.Errorf("stored list = %v, want %v", got, want)
	}
}

func TestRedisStore_LoadCleansForeignEntries(t *testing.T) {
	s, mr := newTestRedisStore(t)
	for _, v := range []string{" aapl ", "AAPL", "", "msft"} {
		mr.RPush("test:symbols", v)
	}
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if want := []string{"AAPL", "MSFT"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRedisStore_UnreachableServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	if _, err := NewRedisStore(RedisConfig{Addr: addr}); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "watchlist.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	testRoundTrip(t, s)
}
