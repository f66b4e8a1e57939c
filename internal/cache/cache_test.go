package cache

import (
	"sync"
	"testing"
	"time"
)

func TestPutThenGet_ReturnsMostRecent(t *testing.T) {
	c := New()
	before := time.Now()
	c.Put(Mids, map[string]string{"BTC": "50000"})

	payload, updatedAt, ok := c.Get(Mids)
	if !ok {
		t.Fatal("expected slot to be present after Put")
	}
	if updatedAt.Before(before) {
		t.Errorf("updatedAt = %v, want >= %v", updatedAt, before)
	}
	mids := payload.(map[string]string)
	if mids["BTC"] != "50000" {
		t.Errorf("got %v", mids)
	}
}

func TestGet_AbsentSlot(t *testing.T) {
	c := New()
	if _, _, ok := c.Get(AssetCtxs); ok {
		t.Error("expected absent slot to report ok == false")
	}
}

func TestPut_NeverNullsOnceSet(t *testing.T) {
	c := New()
	c.Put(PerpMetas, []string{"BTC"})
	c.Put(PerpMetas, []string{"BTC", "ETH"})

	payload, _, ok := c.Get(PerpMetas)
	if !ok {
		t.Fatal("slot should remain present")
	}
	metas := payload.([]string)
	if len(metas) != 2 {
		t.Errorf("got %v, want the latest write", metas)
	}
}

func TestStatus_ReflectsPresenceAndAge(t *testing.T) {
	c := New()
	c.Put(Mids, map[string]string{"BTC": "1"})

	status := c.Status()
	if !status[Mids].Present {
		t.Error("mids should be present")
	}
	if status[AssetCtxs].Present {
		t.Error("assetCtxs should not be present")
	}
	if status[Mids].AgeMS < 0 {
		t.Errorf("age should be non-negative, got %d", status[Mids].AgeMS)
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.Put(Mids, map[string]string{"BTC": "x"})
		}(i)
		go func() {
			defer wg.Done()
			c.Get(Mids)
			c.Status()
		}()
	}
	wg.Wait()
}
