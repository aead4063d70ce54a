package contextmgr

import (
	"strings"
	"testing"

	"assistant/pkg/llm"
)

func TestAddAndClear(t *testing.T) {
	cm := New(0)
	cm.AddMessage(llm.RoleUser, "first")
	cm.AddMessage(llm.RoleAssistant, "second")

	if got := len(cm.Messages()); got != 2 {
		t.Fatalf("expected 2 messages, got %d", got)
	}
	if cm.CountTokens() <= 0 {
		t.Error("expected a positive token count")
	}

	cm.Clear()
	if got := len(cm.Messages()); got != 0 {
		t.Errorf("expected empty context after Clear, got %d messages", got)
	}
	if cm.Summary() != "empty context" {
		t.Errorf("unexpected summary: %s", cm.Summary())
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	cm := New(0)
	cm.AddMessage(llm.RoleUser, "original")

	msgs := cm.Messages()
	msgs[0].Content = "mutated"

	if cm.Messages()[0].Content != "original" {
		t.Error("Messages must return a copy, not the internal slice")
	}
}

func TestCompactDropsOldestFirst(t *testing.T) {
	big := strings.Repeat("lengthy message content ", 50)
	cm := New(100)
	cm.AddMessage(llm.RoleUser, big)
	cm.AddMessage(llm.RoleAssistant, big)
	cm.AddMessage(llm.RoleUser, "latest")

	cm.CompactIfNeeded()

	msgs := cm.Messages()
	if len(msgs) == 0 {
		t.Fatal("compaction must not drop everything")
	}
	if msgs[len(msgs)-1].Content != "latest" {
		t.Error("the newest message must survive compaction")
	}
}

func TestCompactPreservesSystemMessage(t *testing.T) {
	big := strings.Repeat("lengthy message content ", 50)
	cm := New(150)
	cm.AddMessage(llm.RoleSystem, "system instructions")
	cm.AddMessage(llm.RoleUser, big)
	cm.AddMessage(llm.RoleAssistant, big)
	cm.AddMessage(llm.RoleUser, "latest")

	cm.CompactIfNeeded()

	msgs := cm.Messages()
	if len(msgs) == 0 || msgs[0].Role != llm.RoleSystem {
		t.Fatalf("leading system message must survive, got %+v", msgs)
	}
}

func TestCompactDisabledWithoutBudget(t *testing.T) {
	cm := New(0)
	for i := 0; i < 20; i++ {
		cm.AddMessage(llm.RoleUser, strings.Repeat("content ", 100))
	}
	cm.CompactIfNeeded()
	if got := len(cm.Messages()); got != 20 {
		t.Errorf("budget 0 disables compaction, got %d messages", got)
	}
}
