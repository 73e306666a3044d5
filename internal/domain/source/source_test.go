package source

import (
	"testing"
	"time"

	"github.com/kailas-cloud/tracksearch/internal/domain/document"
)

func TestPullRequest_ToDocument(t *testing.T) {
	updated := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	pr := PullRequest{
		ID:         42,
		Repository: "web",
		Title:      "Add login cache",
		Status:     "active",
		IsDraft:    true,
		Author:     &Person{ID: "u1", Name: "Kim"},
		UpdatedAt:  updated,
		URL:        "https://dev.example/pr/42",
		WorkItems:  []int64{7},
	}

	d := pr.ToDocument("acme", "Portal", []float32{1})
	if d.Key() != "pr:web/42" {
		t.Errorf("Key() = %q", d.Key())
	}
	if d.SourceType != document.SourcePR || d.ExternalID != 42 {
		t.Errorf("type/id = %s/%d", d.SourceType, d.ExternalID)
	}
	if d.Description != nil || d.Content != nil {
		t.Error("empty text parts must stay nil")
	}
	if d.RepoName == nil || *d.RepoName != "web" {
		t.Errorf("RepoName = %v", d.RepoName)
	}
	if d.AuthorName == nil || *d.AuthorName != "Kim" {
		t.Errorf("AuthorName = %v", d.AuthorName)
	}
	if !d.IsDraft || !d.UpdatedAt.Equal(updated) {
		t.Errorf("draft/updated = %v/%v", d.IsDraft, d.UpdatedAt)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWorkItem_ToDocument(t *testing.T) {
	prio := 1
	wi := WorkItem{
		ID:           1001,
		Title:        "Crash on save",
		Description:  "Stack trace attached",
		ExtraContent: "repro steps",
		Type:         "Bug",
		State:        "Active",
		Priority:     &prio,
		AssignedTo:   &Person{ID: "u2", Name: "Alex"},
	}

	d := wi.ToDocument("acme", "Portal", nil)
	if d.Key() != "work_item:1001" {
		t.Errorf("Key() = %q", d.Key())
	}
	if d.ItemType == nil || *d.ItemType != "Bug" {
		t.Errorf("ItemType = %v", d.ItemType)
	}
	if d.Priority == nil || *d.Priority != 1 {
		t.Errorf("Priority = %v", d.Priority)
	}
	if d.AssignedToName == nil || *d.AssignedToName != "Alex" {
		t.Errorf("AssignedToName = %v", d.AssignedToName)
	}
	if got := wi.EmbeddingText(); got != "Crash on save\n\nStack trace attached\n\nrepro steps" {
		t.Errorf("EmbeddingText() = %q", got)
	}
}
