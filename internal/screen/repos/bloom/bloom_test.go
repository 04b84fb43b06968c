package bloom

import (
	"fmt"
	"sync"
	"testing"
)

func TestFactory_New_Basic(t *testing.T) {
	bf := NewFactory().New(128, 0.01)
	if bf == nil {
		t.Fatalf("expected non-nil bloom filter")
	}

	key := []byte("8613812345678")
	if bf.MightContain(key) {
		t.Fatalf("unexpected positive before add")
	}
	bf.Add(key)
	if !bf.MightContain(key) {
		t.Fatalf("expected maybe after add")
	}
}

func TestFactory_New_Defaults(t *testing.T) {
	bf := NewFactory().New(0, 0)
	key := []byte("5550100")
	bf.Add(key)
	if !bf.MightContain(key) {
		t.Fatalf("expected maybe after add with default-sized bloom")
	}
}

func TestSize_CommonCases(t *testing.T) {
	m, k := size(1, 0.01)
	if m < 10 || k != 7 {
		t.Fatalf("n=1,p=0.01: got m=%d k=%d; want m>=10 k=7", m, k)
	}

	m, k = size(1_000_000, 0.01)
	if m < 9_500_000 || m > 9_700_000 {
		t.Fatalf("n=1e6,p=0.01: unexpected m=%d (expected around 9.6e6)", m)
	}
	if k != 7 {
		t.Fatalf("n=1e6,p=0.01: k=%d; want 7", k)
	}

	m, k = size(10_000, 0.5)
	if k != 1 || m == 0 {
		t.Fatalf("p=0.5: m=%d k=%d; want m>=1 k=1", m, k)
	}
}

func TestSize_ClampingAndDefaults(t *testing.T) {
	if m, k := size(0, 0); m == 0 || k == 0 {
		t.Fatalf("n=0,p=0: expected m>=1 and k>=1; got m=%d k=%d", m, k)
	}
	if m, k := size(100, 1.0); m == 0 || k == 0 {
		t.Fatalf("p>=1 default: expected m>=1 and k>=1; got m=%d k=%d", m, k)
	}
}

func TestFilter_ConcurrentReadsDuringWrites(t *testing.T) {
	f := NewFactory().New(256, 0.01)

	var wg sync.WaitGroup
	done := make(chan struct{})
	keys := [][]byte{[]byte("1"), []byte("22"), []byte("333")}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10_000; i++ {
			f.Add(keys[i%3])
		}
		close(done)
	}()

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_ = f.MightContain([]byte("4444"))
				}
			}
		}()
	}

	wg.Wait()
}

func BenchmarkFilter_Negative(b *testing.B) {
	const n = 1000
	f := NewFactory().New(n, 0.01)
	for i := 0; i < n; i++ {
		f.Add([]byte(fmt.Sprintf("555%04d", i)))
	}
	absent := []byte("8613812345678")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = f.MightContain(absent)
	}
}
