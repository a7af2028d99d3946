package printer

import (
	"context"
	"testing"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		state JobState
		want  string
	}{
		{StateNoJob, "The Printer is not currently working on a print"},
		{StatePrinting, "The Printer is currently working on a print"},
		{StatePausing, "The Printer is pausing the print"},
		{StatePaused, "The Printer is currently paused"},
		{StateResuming, "The Printer is resuming"},
		{StatePrePrint, "The Printer is currently getting ready to start a print"},
		{StatePostPrint, "The Printer is finished with a print"},
		{StateWaitCleanup, "The Printer is waiting for a member to clean up a finished print"},
		{StateWaitUserAction, "The Printer is waiting for a member to reset it"},
		{StateUnknown, "The Printer is currently turned off"},
		{JobState("something-new"), "The Printer is currently turned off"},
	}

	for _, tt := range tests {
		if got := Message(tt.state); got != tt.want {
			t.Errorf("Message(%q) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestOfflineSource(t *testing.T) {
	state, err := OfflineSource{}.JobState(context.Background(), "Xerox")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if state != StateUnknown {
		t.Errorf("expected StateUnknown, got %q", state)
	}
}
