package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseDateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"2024-02-29", false},
		{"2023-02-29", true},
		{"2024-13-01", true},
		{"2024-3-1", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := ParseDateKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err == nil && DateKeyOf(got) != tt.key {
				t.Errorf("round trip = %s, want %s", DateKeyOf(got), tt.key)
			}
			if ValidDateKey(tt.key) == tt.wantErr {
				t.Errorf("ValidDateKey(%q) = %v", tt.key, !tt.wantErr)
			}
		})
	}
}

func TestParseDateKeyIn(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	got, err := ParseDateKeyIn("2024-03-10", loc)
	if err != nil {
		t.Fatalf("ParseDateKeyIn() failed: %v", err)
	}
	if got.Location() != loc || got.Hour() != 0 || got.Day() != 10 {
		t.Errorf("ParseDateKeyIn() = %v", got)
	}
}

func TestNormalizeColor(t *testing.T) {
	if got := NormalizeColor("  "); got != DefaultColor {
		t.Errorf("NormalizeColor(blank) = %q, want %q", got, DefaultColor)
	}
	if got := NormalizeColor(" blue "); got != "blue" {
		t.Errorf("NormalizeColor(blue) = %q", got)
	}
}

func TestErrorKinds(t *testing.T) {
	verr := fmt.Errorf("add: %w", Invalid("description", "must not be empty"))
	if !IsValidation(verr) {
		t.Error("wrapped ValidationError not detected")
	}
	if IsSync(verr) {
		t.Error("ValidationError detected as SyncError")
	}

	cause := errors.New("connection refused")
	serr := fmt.Errorf("push: %w", &SyncError{Op: "push", Err: cause})
	if !IsSync(serr) {
		t.Error("wrapped SyncError not detected")
	}
	if !errors.Is(serr, cause) {
		t.Error("SyncError should unwrap to its cause")
	}

	if !IsLocal(LocalIDPrefix + "abc") || IsLocal("42") {
		t.Error("IsLocal misclassified ids")
	}
}
