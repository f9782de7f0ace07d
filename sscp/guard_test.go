package sscp

import (
	"testing"
	"time"
)

func TestGuardTime_BlocksSecondCall(t *testing.T) {
	var g guardTime

	start := time.Now()
	g.GuardTime(30 * time.Millisecond) // nothing armed yet, returns at once
	if waited := time.Since(start); waited > 20*time.Millisecond {
		t.Fatalf("first arm should not block, waited %v", waited)
	}

	start = time.Now()
	g.GuardTime(10 * time.Millisecond) // must wait out the 30ms arm first
	if waited := time.Since(start); waited < 20*time.Millisecond {
		t.Fatalf("second arm returned after %v, want >=20ms", waited)
	}
}

func TestWaitGuardTime_ConsumesArm(t *testing.T) {
	var g guardTime
	g.GuardTime(30 * time.Millisecond)

	start := time.Now()
	g.WaitGuardTime()
	if waited := time.Since(start); waited < 20*time.Millisecond {
		t.Fatalf("wait returned after %v, want >=20ms", waited)
	}

	start = time.Now()
	g.WaitGuardTime() // arm was consumed, nothing left to wait for
	if waited := time.Since(start); waited > 10*time.Millisecond {
		t.Fatalf("second wait blocked for %v with no arm", waited)
	}
}

func TestClose_ZeroizesSessionKeys(t *testing.T) {
	s := NewSelfTestSession()
	if err := s.Authenticate(); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	cipherAB := s.keyCipherAB
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Authenticated() {
		t.Fatalf("session still reports authenticated after Close")
	}
	for i, b := range cipherAB {
		if b != 0 {
			t.Fatalf("key byte %d not zeroized", i)
		}
	}
}
