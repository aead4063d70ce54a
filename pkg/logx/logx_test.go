package logx

import (
	"errors"
	"strings"
	"testing"
)

func TestSetDebugTogglesDomains(t *testing.T) {
	defer SetDebug(false, nil)

	SetDebug(false, nil)
	if IsDebugEnabled() {
		t.Fatal("debug should be off")
	}
	if IsDebugEnabledForDomain("executor") {
		t.Fatal("no domain is enabled while debug is off")
	}

	SetDebug(true, nil)
	if !IsDebugEnabledForDomain("executor") {
		t.Fatal("debug without a domain list enables every domain")
	}

	SetDebug(true, []string{"planner"})
	if !IsDebugEnabledForDomain("planner") {
		t.Fatal("listed domain should be enabled")
	}
	if IsDebugEnabledForDomain("executor") {
		t.Fatal("unlisted domain should be filtered")
	}
}

func TestDebugdRetainsEntries(t *testing.T) {
	defer SetDebug(false, nil)
	SetDebug(true, nil)

	Debugd("executor", "step %s attempt %d", "s1", 2)

	entries := RecentEntries("executor")
	if len(entries) == 0 {
		t.Fatal("expected at least one retained entry")
	}
	last := entries[len(entries)-1]
	if last.Domain != "executor" {
		t.Fatalf("entry domain = %q, want executor", last.Domain)
	}
	if !strings.Contains(last.Message, "step s1 attempt 2") {
		t.Fatalf("entry message = %q", last.Message)
	}
}

func TestRecentEntriesFiltersByDomain(t *testing.T) {
	defer SetDebug(false, nil)
	SetDebug(true, nil)

	Debugd("planner", "classified request")
	Debugd("rules", "evaluated profiles")

	for _, e := range RecentEntries("planner") {
		if e.Domain != "" && e.Domain != "planner" {
			t.Fatalf("filtered listing contains domain %q", e.Domain)
		}
	}
}

func TestWithComponentRetags(t *testing.T) {
	logger := NewLogger("assistant").WithComponent("llm")
	logger.Info("client constructed")

	entries := RecentEntries("")
	if len(entries) == 0 {
		t.Fatal("expected a retained entry")
	}
	last := entries[len(entries)-1]
	if last.Component != "llm" {
		t.Fatalf("entry component = %q, want llm", last.Component)
	}
}

func TestWrapReturnsWrappedError(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Fatal("wrapping nil should stay nil")
	}
	err := Wrap(errors.New("boom"), "loading rules")
	if err == nil || !strings.Contains(err.Error(), "loading rules: boom") {
		t.Fatalf("err = %v", err)
	}
}
