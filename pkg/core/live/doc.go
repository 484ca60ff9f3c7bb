// Package live implements the Live Session Engine: the component that owns a
// streaming multimodal session with the upstream model, routes audio, text and
// images into it, and turns its transcription deltas into UI notifications.
//
// # Architecture
//
// The engine depends only on small capability interfaces:
//
//   - Dialer/Channel: the upstream bidirectional stream (see providers/gemini_live)
//   - TokenProvider: issues the short-lived upstream credential
//   - Capture: the system-audio supervisor (see core/capture)
//   - Notifier: receives status and response notifications
//   - HistoryStore and UsageTracker: optional persistence hooks
//
// # Data Flow
//
//	capture helper → Supervisor → Engine ─┐
//	UI mic / text / image ─────→ Engine ──┴→ Channel.Send
//
//	Channel.Events → Engine → transcript.Aggregator → Notifier
//	                    │
//	                    └── TurnComplete → HistoryStore, UsageTracker
//
// # State Machine
//
//	IDLE → CONNECTING → LIVE → CLOSING → CLOSED
//	            │          │
//	            └──────────┴──→ ERROR
//
// At most one channel is open per engine. Initialize closes any previous
// channel before dialing. Commands that need a channel return a failed
// Result unless the state is LIVE.
//
// # Usage
//
//	engine, err := live.NewEngine(live.Dependencies{
//	    Dialer:   gemini_live.NewDialer(gemini_live.WithLogger(logger)),
//	    Tokens:   backend.NewStaticTokenProvider(),
//	    Capture:  supervisor,
//	    Notifier: hub,
//	})
//	if err != nil {
//	    return err
//	}
//	if !engine.Initialize(ctx, creds, live.SessionConfig{}, "interview") {
//	    return errors.New("connect failed")
//	}
//	res := engine.SendText(ctx, "What should I say next?")
package live
