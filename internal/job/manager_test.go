package job

import (
	"testing"
	"time"
)

func TestManager_InitAndFinishPage(t *testing.T) {
	m := NewManager(time.Hour)
	m.Init("p1", 3)
	m.FinishPage("p1")
	m.FinishPage("p1")

	r, ok := m.GetStatus("p1")
	if !ok {
		t.Fatal("expected record to exist")
	}
	if r.Total != 3 || r.Achieved != 2 {
		t.Fatalf("got %+v", r)
	}
	if r.DerivedStatus() != "IN_PROGRESS" {
		t.Fatalf("expected IN_PROGRESS, got %s", r.DerivedStatus())
	}
}

func TestManager_DerivedStatusDone(t *testing.T) {
	m := NewManager(time.Hour)
	m.Init("p1", 2)
	m.FinishPage("p1")
	m.FinishPage("p1")
	m.FinishUpload("p1", "https://example.test/p1", "https://example.test/p1.pdf")

	r, _ := m.GetStatus("p1")
	if r.DerivedStatus() != "DONE" {
		t.Fatalf("expected DONE, got %s", r.DerivedStatus())
	}
	if r.WebURL == "" || r.PDFURL == "" {
		t.Fatalf("expected URLs to be recorded, got %+v", r)
	}
}

func TestManager_DerivedStatusFailed(t *testing.T) {
	m := NewManager(time.Hour)
	m.Init("p1", 2)
	m.Fail("p1")

	r, _ := m.GetStatus("p1")
	if r.DerivedStatus() != "FAILED" {
		t.Fatalf("expected FAILED, got %s", r.DerivedStatus())
	}
}

func TestManager_GetStatusUnknown(t *testing.T) {
	m := NewManager(time.Hour)
	_, ok := m.GetStatus("missing")
	if ok {
		t.Fatal("expected unknown prompt id to report not-ok")
	}
}

func TestManager_EvictsStaleEntries(t *testing.T) {
	m := NewManager(time.Millisecond)
	m.Init("p1", 1)

	time.Sleep(5 * time.Millisecond)
	evicted := m.Evict(time.Now())
	if evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	_, ok := m.GetStatus("p1")
	if ok {
		t.Fatal("expected evicted record to be gone")
	}
}

func TestManager_InitReplacesPriorRecord(t *testing.T) {
	m := NewManager(time.Hour)
	m.Init("p1", 5)
	m.FinishPage("p1")
	m.Init("p1", 2)

	r, _ := m.GetStatus("p1")
	if r.Total != 2 || r.Achieved != 0 {
		t.Fatalf("expected fresh record after re-init, got %+v", r)
	}
}
