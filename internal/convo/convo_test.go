package convo

import (
	"testing"
	"time"

	"github.com/54b3r/geostac/internal/geo"
)

func Test_Get_CreatesOnMiss(t *testing.T) {
	t.Parallel()
	s := New()
	ctx := s.Get("session-1")
	if ctx.QueryCount != 0 {
		t.Fatalf("QueryCount = %d, want 0 on first access", ctx.QueryCount)
	}
	if ctx.SessionID != "session-1" {
		t.Fatalf("SessionID = %q, want session-1", ctx.SessionID)
	}
}

func Test_Update_BumpsQueryCountAndHistory(t *testing.T) {
	t.Parallel()
	s := New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bbox := geo.BBox{-122.5, 47.4, -122.2, 47.7}

	unlock := s.Lock("session-1")
	s.Update("session-1", "show me Seattle", "Showing 3 tiles.", &bbox, []string{"sentinel-2-l2a"}, true, now)
	unlock()

	ctx := s.Get("session-1")
	if ctx.QueryCount != 1 {
		t.Fatalf("QueryCount = %d, want 1", ctx.QueryCount)
	}
	if len(ctx.ChatHistory) != 2 {
		t.Fatalf("len(ChatHistory) = %d, want 2 (user + assistant)", len(ctx.ChatHistory))
	}
	if !ctx.HasRenderedMap {
		t.Fatalf("HasRenderedMap = false, want true")
	}
	if ctx.LastBbox == nil || *ctx.LastBbox != bbox {
		t.Fatalf("LastBbox = %v, want %v", ctx.LastBbox, bbox)
	}
}

func Test_ChatHistory_BoundedAt20(t *testing.T) {
	t.Parallel()
	s := New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 15; i++ {
		unlock := s.Lock("session-1")
		s.Update("session-1", "query", "response", nil, nil, false, now.Add(time.Duration(i)*time.Second))
		unlock()
	}

	ctx := s.Get("session-1")
	if len(ctx.ChatHistory) > maxHistory {
		t.Fatalf("len(ChatHistory) = %d, want <= %d", len(ctx.ChatHistory), maxHistory)
	}
	for i := 1; i < len(ctx.ChatHistory); i++ {
		if ctx.ChatHistory[i].Timestamp.Before(ctx.ChatHistory[i-1].Timestamp) {
			t.Fatalf("timestamps not non-decreasing at index %d", i)
		}
	}
}

func Test_Reset_ClearsQueryCount(t *testing.T) {
	t.Parallel()
	s := New()
	now := time.Now()
	unlock := s.Lock("session-1")
	s.Update("session-1", "q", "a", nil, nil, false, now)
	unlock()

	s.Reset("session-1")

	ctx := s.Get("session-1")
	if ctx.QueryCount != 0 {
		t.Fatalf("QueryCount after reset = %d, want 0", ctx.QueryCount)
	}
}

func Test_Lock_SerializesSameSession(t *testing.T) {
	t.Parallel()
	s := New()
	unlock := s.Lock("session-1")

	done := make(chan struct{})
	go func() {
		unlock2 := s.Lock("session-1")
		close(done)
		unlock2()
	}()

	select {
	case <-done:
		t.Fatal("second Lock acquired before first was released")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	<-done
}

func Test_RecentHistory_LimitsExchanges(t *testing.T) {
	t.Parallel()
	s := New()
	now := time.Now()
	for i := 0; i < 5; i++ {
		unlock := s.Lock("session-1")
		s.Update("session-1", "q", "a", nil, nil, false, now)
		unlock()
	}
	text := s.RecentHistory("session-1", 2)
	if text == "" {
		t.Fatal("RecentHistory returned empty string")
	}
}
