package cache

import (
	"strings"
	"testing"
)

func TestRedisKeyNamespacesWithoutRehashing(t *testing.T) {
	s := &RedisStore{}
	logical := Key("list", "education", "house")
	got := s.redisKey(logical)
	if got != "billtracker:cache:"+logical {
		t.Fatalf("redisKey = %q, want prefix plus the logical key unchanged", got)
	}
	if !strings.HasSuffix(got, logical) {
		t.Fatalf("redis key %q no longer traceable to logical key %q", got, logical)
	}
}
