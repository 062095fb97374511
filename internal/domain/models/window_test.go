package models

import (
	"sync"
	"testing"
)

func candle(ts int64, close float64) Candle {
	return Candle{Timestamp: ts, Open: close, High: close, Low: close, Close: close, Volume: 1}
}

func TestWindowAppendEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	for i := int64(1); i <= 5; i++ {
		w.Append(candle(i, float64(i)))
	}
	if w.Len() != 3 {
		t.Fatalf("len = %d", w.Len())
	}
	got := w.Snapshot()
	if got[0].Timestamp != 3 || got[2].Timestamp != 5 {
		t.Fatalf("unexpected contents %v", got)
	}
}

func TestWindowSeedKeepsMostRecent(t *testing.T) {
	w := NewWindow(2)
	w.Append(candle(99, 99))
	w.Seed([]Candle{candle(1, 1), candle(2, 2), candle(3, 3)})
	got := w.Snapshot()
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Timestamp != 2 || got[1].Timestamp != 3 {
		t.Fatalf("unexpected contents %v", got)
	}
}

func TestWindowSnapshotIsCopy(t *testing.T) {
	w := NewWindow(3)
	w.Append(candle(1, 1))
	snap := w.Snapshot()
	snap[0].Close = 42
	if w.Snapshot()[0].Close != 1 {
		t.Fatalf("snapshot mutated the window")
	}
}

func TestWindowDefaultCapacity(t *testing.T) {
	w := NewWindow(0)
	for i := int64(1); i <= DefaultWindowSize+10; i++ {
		w.Append(candle(i, 1))
	}
	if w.Len() != DefaultWindowSize {
		t.Fatalf("len = %d, want %d", w.Len(), DefaultWindowSize)
	}
}

func TestWindowConcurrentAppendSnapshot(t *testing.T) {
	w := NewWindow(100)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := int64(0); i < 1000; i++ {
			w.Append(candle(i+1, 1))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = w.Snapshot()
		}
	}()
	wg.Wait()
	if w.Len() != 100 {
		t.Fatalf("len = %d", w.Len())
	}
}

func TestCandleNormalize(t *testing.T) {
	c := Candle{Timestamp: 1, Open: 10, High: 9, Low: 11, Close: 12, Volume: 1}
	n := c.Normalize()
	if n.High != 12 {
		t.Fatalf("high = %v", n.High)
	}
	if n.Low != 10 {
		t.Fatalf("low = %v", n.Low)
	}
}

func TestCandleValid(t *testing.T) {
	if (Candle{Timestamp: 0, Close: 1}).Valid() {
		t.Fatalf("zero timestamp should be invalid")
	}
	if (Candle{Timestamp: 1, Close: -1}).Valid() {
		t.Fatalf("negative price should be invalid")
	}
	if !(Candle{Timestamp: 1, Open: 1, High: 1, Low: 1, Close: 1, Volume: 0}).Valid() {
		t.Fatalf("zero volume should be valid")
	}
}
