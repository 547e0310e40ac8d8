// Package testutil provides shared test infrastructure: a quiet logger and
// canned content fixtures used across package tests.
package testutil

import (
	"log/slog"
	"os"

	"github.com/shinsa-ai/shinsa/internal/model"
)

// TestLogger returns a logger configured for test output (warns only).
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// SampleContent returns a small but realistic content fixture. Tests that
// need distinct fingerprints should vary the title.
func SampleContent(title string) model.Content {
	return model.Content{
		Title:    title,
		Body:     "Shipping a weekly digest taught us more about retention than any dashboard. Here are three takeaways worth stealing.",
		Topic:    "product",
		Hashtags: []string{"#buildinpublic", "#retention"},
	}
}
