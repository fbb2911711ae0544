package service

import (
	"math/rand"
	"testing"
)

func TestAllocateAmountEvenSplit(t *testing.T) {
	shares := AllocateAmount(30000, 3)
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(shares))
	}
	for i, share := range shares {
		if share != 10000 {
			t.Fatalf("share %d want 10000 got %d", i, share)
		}
	}
}

func TestAllocateAmountRemainderOnLast(t *testing.T) {
	shares := AllocateAmount(100, 3)
	if len(shares) != 3 {
		t.Fatalf("expected 3 shares, got %d", len(shares))
	}
	if shares[0] != 33 || shares[1] != 33 || shares[2] != 34 {
		t.Fatalf("unexpected shares: %v", shares)
	}
}

func TestAllocateAmountSingleTarget(t *testing.T) {
	shares := AllocateAmount(12345, 1)
	if len(shares) != 1 || shares[0] != 12345 {
		t.Fatalf("unexpected shares: %v", shares)
	}
}

func TestAllocateAmountConservation(t *testing.T) {
	cases := []struct {
		amount int64
		n      int
	}{
		{1, 1},
		{1, 7},
		{99, 2},
		{100000001, 13},
		{45000, 4},
	}
	for _, tc := range cases {
		shares := AllocateAmount(tc.amount, tc.n)
		if len(shares) != tc.n {
			t.Fatalf("amount=%d n=%d: expected %d shares, got %d", tc.amount, tc.n, tc.n, len(shares))
		}
		var sum int64
		for _, share := range shares {
			sum += share
		}
		if sum != tc.amount {
			t.Fatalf("amount=%d n=%d: shares sum to %d", tc.amount, tc.n, sum)
		}
	}
}

func TestAllocateAmountConservationRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		amount := rng.Int63n(10_000_000) + 1
		n := rng.Intn(20) + 1
		shares := AllocateAmount(amount, n)
		var sum int64
		for j, share := range shares {
			if share < 0 {
				t.Fatalf("amount=%d n=%d: negative share at %d: %v", amount, n, j, shares)
			}
			sum += share
		}
		if sum != amount {
			t.Fatalf("amount=%d n=%d: shares sum to %d", amount, n, sum)
		}
		// 前 n-1 份相等，余数全部落在最后一份
		base := amount / int64(n)
		for j := 0; j < n-1; j++ {
			if shares[j] != base {
				t.Fatalf("amount=%d n=%d: share %d should be %d, got %v", amount, n, j, base, shares)
			}
		}
		if last := shares[n-1]; last < base || last >= base+int64(n) {
			t.Fatalf("amount=%d n=%d: unexpected last share %d", amount, n, last)
		}
	}
}

func TestAllocateAmountInvalidCount(t *testing.T) {
	if shares := AllocateAmount(100, 0); shares != nil {
		t.Fatalf("expected nil for zero targets, got %v", shares)
	}
	if shares := AllocateAmount(100, -1); shares != nil {
		t.Fatalf("expected nil for negative targets, got %v", shares)
	}
}
