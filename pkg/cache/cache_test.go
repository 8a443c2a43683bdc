package cache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb), mr
}

func seedTransaction(t *testing.T, mr *miniredis.Miniredis, version uint64) {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{"version": version})
	if err != nil {
		t.Fatalf("marshal seed transaction: %v", err)
	}
	if err := mr.Set(keyFor(version), string(b)); err != nil {
		t.Fatalf("seed transaction %d: %v", version, err)
	}
}

func keyFor(version uint64) string {
	return versionPrefix + itoa(version)
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func TestCoverage_DataNotReady(t *testing.T) {
	c, mr := newTestClient(t)
	mr.Set(latestKey, "100")
	mr.Set(oldestKey, "0")

	cov, err := c.Coverage(context.Background(), 200)
	if err != nil {
		t.Fatalf("Coverage() error = %v", err)
	}
	if cov != DataNotReady {
		t.Errorf("Coverage() = %v, want DataNotReady", cov)
	}
}

func TestCoverage_Evicted(t *testing.T) {
	c, mr := newTestClient(t)
	mr.Set(latestKey, "1000")
	mr.Set(oldestKey, "500")

	cov, err := c.Coverage(context.Background(), 10)
	if err != nil {
		t.Fatalf("Coverage() error = %v", err)
	}
	if cov != CacheEvicted {
		t.Errorf("Coverage() = %v, want CacheEvicted", cov)
	}
}

func TestCoverage_Hit(t *testing.T) {
	c, mr := newTestClient(t)
	mr.Set(latestKey, "1000")
	mr.Set(oldestKey, "0")

	cov, err := c.Coverage(context.Background(), 500)
	if err != nil {
		t.Fatalf("Coverage() error = %v", err)
	}
	if cov != CacheHit {
		t.Errorf("Coverage() = %v, want CacheHit", cov)
	}
}

func TestChainID_CachesAfterFirstLookup(t *testing.T) {
	c, mr := newTestClient(t)
	mr.Set(chainIDKey, "4")

	id, err := c.ChainID(context.Background())
	if err != nil {
		t.Fatalf("ChainID() error = %v", err)
	}
	if id != 4 {
		t.Errorf("ChainID() = %d, want 4", id)
	}

	mr.Set(chainIDKey, "99")
	id, err = c.ChainID(context.Background())
	if err != nil {
		t.Fatalf("ChainID() second call error = %v", err)
	}
	if id != 4 {
		t.Errorf("ChainID() second call = %d, want cached 4", id)
	}
}

func TestRead_StopsAtFirstMiss(t *testing.T) {
	c, mr := newTestClient(t)
	seedTransaction(t, mr, 10)
	seedTransaction(t, mr, 11)
	// version 12 intentionally absent
	seedTransaction(t, mr, 13)

	txns, _, _, err := c.Read(context.Background(), 10, 4)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("Read() returned %d transactions, want 2 (stop at first gap)", len(txns))
	}
	if txns[0].Version != 10 || txns[1].Version != 11 {
		t.Errorf("Read() versions = [%d,%d], want [10,11]", txns[0].Version, txns[1].Version)
	}
}
