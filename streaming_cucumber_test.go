//go:build cucumber

package mdstream

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cucumber/godog"
)

// TestStreamingScenarios runs the streaming feature scenarios.
func TestStreamingScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "streaming",
		ScenarioInitializer: InitializeStreamingScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("testdata", "features")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeStreamingScenario wires steps for streaming scenarios.
func InitializeStreamingScenario(ctx *godog.ScenarioContext) {
	state := &streamingScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^a session revealing (\d+) (character|word|line)s? per tick$`, state.givenSession)
	ctx.Step(`^the chunk "([^"]*)" is appended$`, state.whenChunkAppended)
	ctx.Step(`^the document "([^"]*)" is appended in chunks of (\d+) bytes$`, state.whenDocumentChunked)
	ctx.Step(`^the stream finishes$`, state.whenFinished)
	ctx.Step(`^the session ticks once$`, state.whenTick)
	ctx.Step(`^the session ticks until done$`, state.whenTickUntilDone)
	ctx.Step(`^the session is aborted$`, state.whenAborted)
	ctx.Step(`^the completed modules are:$`, state.thenModules)
	ctx.Step(`^(\d+) modules? (?:is|are) complete$`, state.thenModuleCount)
	ctx.Step(`^the pending module is a (\w+)$`, state.thenPendingKind)
	ctx.Step(`^the reveals of module (\d+) are "([^"]*)"$`, state.thenReveals)
	ctx.Step(`^the host saw the stream complete$`, state.thenComplete)
	ctx.Step(`^the host was flushed "([^"]*)"$`, state.thenFlushed)
	ctx.Step(`^the modules match the document "([^"]*)" appended whole$`, state.thenMatchesWhole)
}

var stepEscapes = strings.NewReplacer(`\n`, "\n", `\t`, "\t")

func unescapeStep(s string) string {
	return stepEscapes.Replace(s)
}

type streamingScenarioState struct {
	session *Session
	sink    *recordingSink
}

// reset clears scenario state.
func (s *streamingScenarioState) reset() {
	s.session = nil
	s.sink = &recordingSink{}
}

func (s *streamingScenarioState) givenSession(per int, unit string) error {
	u, err := ParseUnit(unit)
	if err != nil {
		return err
	}
	cfg := DefaultConfig()
	cfg.Unit = u
	cfg.UnitsPerChunk = per
	s.session, err = NewSession(SessionRequest{Config: cfg, Sink: s.sink})
	return err
}

func (s *streamingScenarioState) whenChunkAppended(chunk string) error {
	return s.session.Append(unescapeStep(chunk))
}

func (s *streamingScenarioState) whenDocumentChunked(doc string, size int) error {
	doc = unescapeStep(doc)
	for len(doc) > 0 {
		n := min(size, len(doc))
		if err := s.session.Append(doc[:n]); err != nil {
			return err
		}
		doc = doc[n:]
	}
	return nil
}

func (s *streamingScenarioState) whenFinished() error {
	return s.session.Finish()
}

func (s *streamingScenarioState) whenTick() error {
	return s.session.Tick()
}

func (s *streamingScenarioState) whenTickUntilDone() error {
	for i := 0; !s.session.Done(); i++ {
		if i > 10000 {
			return fmt.Errorf("session did not finish, state %s", s.session.State())
		}
		if err := s.session.Tick(); err != nil {
			return err
		}
	}
	return nil
}

func (s *streamingScenarioState) whenAborted() error {
	return s.session.Abort()
}

func (s *streamingScenarioState) thenModules(table *godog.Table) error {
	mods := s.session.Modules()
	rows := table.Rows[1:]
	if len(mods) != len(rows) {
		return fmt.Errorf("expected %d modules, got %d: %+v", len(rows), len(mods), shapeOf(mods))
	}
	for i, row := range rows {
		kind := row.Cells[0].Value
		content := unescapeStep(strings.Trim(row.Cells[1].Value, `"`))
		if mods[i].Kind.String() != kind || mods[i].Content != content {
			return fmt.Errorf("module %d: expected %s %q, got %s %q", i+1, kind, content, mods[i].Kind, mods[i].Content)
		}
	}
	return nil
}

func (s *streamingScenarioState) thenModuleCount(n int) error {
	if got := len(s.session.Modules()); got != n {
		return fmt.Errorf("expected %d complete modules, got %d", n, got)
	}
	return nil
}

func (s *streamingScenarioState) thenPendingKind(kind string) error {
	p, ok := s.session.Pending()
	if !ok {
		return fmt.Errorf("nothing is pending")
	}
	if p.Kind.String() != kind {
		return fmt.Errorf("expected pending %s, got %s", kind, p.Kind)
	}
	return nil
}

func (s *streamingScenarioState) thenReveals(id int, joined string) error {
	want := strings.Split(unescapeStep(joined), "|")
	got := s.sink.Reveals(id)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		return fmt.Errorf("expected reveals %q, got %q", want, got)
	}
	return nil
}

func (s *streamingScenarioState) thenComplete() error {
	if s.sink.count("complete") != 1 {
		return fmt.Errorf("expected one stream complete, got calls %q", s.sink.Calls())
	}
	return nil
}

func (s *streamingScenarioState) thenFlushed(remaining string) error {
	want := fmt.Sprintf("flush %q", unescapeStep(remaining))
	calls := s.sink.Calls()
	if len(calls) == 0 || calls[len(calls)-1] != want {
		return fmt.Errorf("expected %s as last call, got %q", want, calls)
	}
	return nil
}

func (s *streamingScenarioState) thenMatchesWhole(doc string) error {
	want := shapeOf(splitAll(unescapeStep(doc)))
	got := shapeOf(s.session.Modules())
	if len(got) != len(want) {
		return fmt.Errorf("expected %d modules, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("module %d: expected %+v, got %+v", i+1, want[i], got[i])
		}
	}
	return nil
}
