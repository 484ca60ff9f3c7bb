// Package gemini_live implements live.Dialer over the Gemini Live API using
// google.golang.org/genai.
package gemini_live

import (
	"log/slog"
	"net/http"
)

// Option configures the Dialer.
type Option func(*Dialer)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(d *Dialer) {
		d.baseURL = url
	}
}

// WithAPIVersion sets the API version. Default: v1alpha, which is required
// for ephemeral tokens.
func WithAPIVersion(version string) Option {
	return func(d *Dialer) {
		d.apiVersion = version
	}
}

// WithHTTPClient sets the HTTP client used by the genai client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dialer) {
		d.httpClient = client
	}
}

// WithEventBuffer sets the capacity of each channel's event queue.
func WithEventBuffer(n int) Option {
	return func(d *Dialer) {
		if n > 0 {
			d.eventBuffer = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dialer) {
		d.logger = logger
	}
}
