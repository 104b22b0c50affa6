package csp

import (
	"strings"
	"testing"
)

func TestBuilder_Build_EmptyPolicy(t *testing.T) {
	if got := NewBuilder().Build(); got != "" {
		t.Errorf("expected empty policy, got %q", got)
	}
}

func TestBuilder_Build_DirectiveOrder(t *testing.T) {
	policy := NewBuilder().
		ScriptSrc("'self'").
		DefaultSrc("'self'").
		FrameAncestors("'none'").
		Build()

	want := "default-src 'self'; script-src 'self'; frame-ancestors 'none'"
	if policy != want {
		t.Errorf("Build() = %q, want %q", policy, want)
	}
}

func TestBuilder_Build_MultipleSources(t *testing.T) {
	policy := NewBuilder().
		ScriptSrc("'self'", "https://cdn.example.com").
		Build()

	if policy != "script-src 'self' https://cdn.example.com" {
		t.Errorf("unexpected policy: %q", policy)
	}
}

func TestBuilder_HeaderName(t *testing.T) {
	b := NewBuilder()
	if got := b.HeaderName(); got != "Content-Security-Policy" {
		t.Errorf("HeaderName() = %q", got)
	}
	b.ReportOnly(true)
	if got := b.HeaderName(); got != "Content-Security-Policy-Report-Only" {
		t.Errorf("HeaderName() in report-only mode = %q", got)
	}
}

func TestAppPolicy_BlocksFraming(t *testing.T) {
	policy := AppPolicy().Build()

	for _, want := range []string{
		"default-src 'self'",
		"frame-ancestors 'none'",
		"object-src 'none'",
	} {
		if !strings.Contains(policy, want) {
			t.Errorf("AppPolicy missing %q in %q", want, policy)
		}
	}
	if strings.Contains(policy, "'unsafe-eval'") {
		t.Errorf("AppPolicy must not allow 'unsafe-eval': %q", policy)
	}
}

func TestStrictAPIPolicy_DeniesByDefault(t *testing.T) {
	policy := StrictAPIPolicy().Build()

	if !strings.HasPrefix(policy, "default-src 'none'") {
		t.Errorf("StrictAPIPolicy should start with default-src 'none', got %q", policy)
	}
	if !strings.Contains(policy, "connect-src 'self'") {
		t.Errorf("StrictAPIPolicy should allow same-origin connections: %q", policy)
	}
}
