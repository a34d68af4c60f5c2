package stream

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
)

func divideByTwo(n int) int {
	return n / 2
}

func isNonZero(n int) bool {
	return n != 0
}

func TestStream1(t *testing.T) {
	data := []int{0, 2, 4, 6, 8}
	ctx := context.Background()
	myStream := Slice(ctx, data)
	result := Collect(ctx,
		Transform(ctx, divideByTwo,
			Filter(ctx, isNonZero,
				myStream)))

	if !slices.Equal([]int{1, 2, 3, 4}, result) {
		t.Errorf("Expected [1, 2, 3, 4], got %v", result)
	}
}

func TestNDJSON(t *testing.T) {
	type row struct {
		N int `json:"n"`
	}
	in := strings.NewReader(`{"n":1}
{"n":2}
{"n":3}`)
	ctx := context.Background()
	got := Collect(ctx, NDJSON[row](ctx, in))
	if len(got) != 3 || got[0].N != 1 || got[2].N != 3 {
		t.Errorf("got %v", got)
	}
}

func TestTee(t *testing.T) {
	data := []int{0, 2, 4, 6, 8}
	ctx := context.Background()
	s := Slice(ctx, data)

	out1, out2 := Tee(ctx, s)

	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		r1 := Collect(ctx, out1)
		if !slices.Equal(data, r1) {
			t.Errorf("Expected %v, got %v", data, r1)
		}
	}()
	go func() {
		defer wg.Done()
		r2 := Collect(ctx, out2)
		if !slices.Equal(data, r2) {
			t.Errorf("Expected %v, got %v", data, r2)
		}
	}()
	wg.Wait()
}
