// Package mdstream turns markdown arriving in arbitrary chunks into stable
// render units and reveals them at a typing pace.
//
// Text flows one way: chunks are appended to a Buffer, which splits completed
// modules (paragraphs, headings, fenced code, tables, display math, footnote
// definitions, thematic breaks, front matter) off the front of the raw log.
// A module is handed on only once its closing boundary has been seen, so a
// host never renders a half-open fence or a table before its separator row.
// Completed modules queue in a Scheduler that reveals them by character,
// word or line on every tick, and a Coordinator applies the resulting
// commands to the host's Sink.
//
// Core properties:
//   - Identical text classifies into identical modules however it is chunked
//   - Module contents concatenate back to the exact input
//   - Reveal prefixes only grow and never split a grapheme cluster
//   - Redundant updates are dropped and layout feedback loops are bounded
//
// Example:
//
//	sess, err := mdstream.NewSession(mdstream.SessionRequest{
//		Config: mdstream.DefaultConfig(),
//		Sink:   host,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	runner := mdstream.NewRunner(sess)
//	go func() {
//		_ = mdstream.FeedTokens(ctx, tokens, runner)
//	}()
//	if err := runner.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// A Session is single-writer. Drive it from one goroutine, or through a
// Runner when chunks and ticks originate on different goroutines.
package mdstream
