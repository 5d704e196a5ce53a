package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestSubmitAndWait(t *testing.T) {
	p := New(2)
	defer p.Close()

	f := Submit(p, func() (int, error) { return 42, nil })
	got, err := f.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestSubmitPropagatesError(t *testing.T) {
	p := New(1)
	defer p.Close()

	wantErr := errors.New("boom")
	f := Submit(p, func() (int, error) { return 0, wantErr })
	_, err := f.Wait()
	if err != wantErr {
		t.Fatalf("Wait err = %v, want %v", err, wantErr)
	}
}

func TestCloseWaitsForInFlightTasks(t *testing.T) {
	p := New(4)
	var completed int32
	for i := 0; i < 20; i++ {
		Submit(p, func() (int, error) {
			atomic.AddInt32(&completed, 1)
			return 0, nil
		})
	}
	p.Close()
	if completed != 20 {
		t.Fatalf("completed = %d, want 20", completed)
	}
}

func TestMapPreservesOrder(t *testing.T) {
	p := New(4)
	defer p.Close()

	items := []int{1, 2, 3, 4, 5}
	results, err := Map(context.Background(), p, items, func(i int) (int, error) {
		return i * i, nil
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	want := []int{1, 4, 9, 16, 25}
	for i := range want {
		if results[i] != want[i] {
			t.Fatalf("results = %v, want %v", results, want)
		}
	}
}

func TestMapPropagatesFirstError(t *testing.T) {
	p := New(4)
	defer p.Close()

	wantErr := errors.New("bad item")
	_, err := Map(context.Background(), p, []int{1, 2, 3}, func(i int) (int, error) {
		if i == 2 {
			return 0, wantErr
		}
		return i, nil
	})
	if err != wantErr {
		t.Fatalf("Map err = %v, want %v", err, wantErr)
	}
}
