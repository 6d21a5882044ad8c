package main

import (
	"bytes"
	"strings"
	"testing"

	"pkt.systems/mdstream"
)

func TestMeasureRows(t *testing.T) {
	cases := []struct {
		text  string
		width int
		want  int
	}{
		{text: "", width: 10, want: 0},
		{text: "hello", width: 10, want: 1},
		{text: "hello world", width: 5, want: 2},
		{text: "abcdefghij", width: 4, want: 3},
		{text: "a\nb\n", width: 10, want: 3},
	}
	for _, tc := range cases {
		if got := measureRows(tc.text, tc.width); got != tc.want {
			t.Fatalf("measureRows(%q, %d)=%d want %d", tc.text, tc.width, got, tc.want)
		}
	}
}

func TestPlainHostWritesDeltas(t *testing.T) {
	var out bytes.Buffer
	host, err := newTerminalHost(hostRequest{Writer: &out, Width: 20})
	if err != nil {
		t.Fatalf("newTerminalHost: %v", err)
	}
	host.OnBeginModule(1, mdstream.KindParagraph)
	host.OnRevealUpdate(1, "ab")
	host.OnRevealUpdate(1, "abcd")
	host.OnModuleFinalized(1)
	host.OnStreamComplete()
	if out.String() != "abcd\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
	if host.Err() != nil {
		t.Fatalf("unexpected error %v", host.Err())
	}
}

func TestHostHeightFeedback(t *testing.T) {
	host, err := newTerminalHost(hostRequest{Writer: &bytes.Buffer{}, Width: 5})
	if err != nil {
		t.Fatalf("newTerminalHost: %v", err)
	}
	host.OnRevealUpdate(1, "hi")
	if !host.OnHeightFeedback(1) {
		t.Fatalf("first measurement should report a change")
	}
	if host.OnHeightFeedback(1) {
		t.Fatalf("unchanged text should not report a change")
	}
	host.OnRevealUpdate(1, "hi there")
	if !host.OnHeightFeedback(1) {
		t.Fatalf("wrapping to a second row should report a change")
	}
}

func TestHostFlushNotice(t *testing.T) {
	var out bytes.Buffer
	host, err := newTerminalHost(hostRequest{Writer: &out, Width: 20})
	if err != nil {
		t.Fatalf("newTerminalHost: %v", err)
	}
	host.OnRevealUpdate(1, "partial")
	host.OnFlush("rest")
	got := out.String()
	if !strings.HasPrefix(got, "partial\n") || !strings.Contains(got, "4 bytes unrevealed") {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPrettyHostRendersFinalizedModules(t *testing.T) {
	var out bytes.Buffer
	host, err := newTerminalHost(hostRequest{Writer: &out, Width: 40, Pretty: true, Style: "notty"})
	if err != nil {
		t.Fatalf("newTerminalHost: %v", err)
	}
	mod := mdstream.Module{ID: 1, Kind: mdstream.KindFencedCode, Fence: "```", Content: "```\nfmt.Println()\n", Forced: true}
	host.setLookup(func(id int) (mdstream.Module, bool) { return mod, id == 1 })
	host.OnRevealUpdate(1, mod.Content)
	if out.Len() != 0 {
		t.Fatalf("pretty mode should wait for finalize, got %q", out.String())
	}
	host.OnModuleFinalized(1)
	host.OnModuleFinalized(1)
	got := out.String()
	if strings.Count(got, "Println") != 1 {
		t.Fatalf("expected one rendering of the code, got %q", got)
	}
}
