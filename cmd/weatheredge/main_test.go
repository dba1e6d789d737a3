package main

import (
	"testing"
	"time"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, mode, city string, days int, runID string)
	}{
		{
			name: "backtest with start",
			args: []string{"backtest", "Austin", "30", "-start", "2026-07-01"},
			check: func(t *testing.T, mode, city string, days int, _ string) {
				if mode != "backtest" || city != "Austin" || days != 30 {
					t.Errorf("parsed %s/%s/%d", mode, city, days)
				}
			},
		},
		{
			name: "predict",
			args: []string{"predict", "Chicago", "7"},
			check: func(t *testing.T, mode, city string, days int, _ string) {
				if mode != "predict" || city != "Chicago" || days != 7 {
					t.Errorf("parsed %s/%s/%d", mode, city, days)
				}
			},
		},
		{
			name: "resolve",
			args: []string{"resolve", "Austin"},
			check: func(t *testing.T, mode, city string, _ int, _ string) {
				if mode != "resolve" || city != "Austin" {
					t.Errorf("parsed %s/%s", mode, city)
				}
			},
		},
		{
			name: "runs without city",
			args: []string{"runs"},
			check: func(t *testing.T, mode, city string, _ int, _ string) {
				if mode != "runs" || city != "" {
					t.Errorf("parsed %s/%q", mode, city)
				}
			},
		},
		{
			name: "show",
			args: []string{"show", "abc-123"},
			check: func(t *testing.T, mode, _ string, _ int, runID string) {
				if mode != "show" || runID != "abc-123" {
					t.Errorf("parsed %s/%s", mode, runID)
				}
			},
		},
		{name: "scan with extra args", args: []string{"scan", "Austin"}, wantErr: true},
		{name: "no command", args: nil, wantErr: true},
		{name: "unknown command", args: []string{"frobnicate"}, wantErr: true},
		{name: "backtest missing days", args: []string{"backtest", "Austin"}, wantErr: true},
		{name: "backtest negative days", args: []string{"backtest", "Austin", "-3"}, wantErr: true},
		{name: "backtest bad start date", args: []string{"backtest", "Austin", "5", "-start", "July 1"}, wantErr: true},
		{name: "show missing id", args: []string{"show"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := parseCommand(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseCommand(%v) succeeded, want error", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tt.check != nil {
				tt.check(t, cmd.Mode, cmd.City, cmd.Days, cmd.RunID)
			}
		})
	}
}

func TestParseCommandBacktestStartDate(t *testing.T) {
	cmd, err := parseCommand([]string{"backtest", "Austin", "10", "-start", "2026-07-01"})
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	if !cmd.StartDate.Equal(want) {
		t.Errorf("StartDate = %v, want %v", cmd.StartDate, want)
	}
}

func TestParseCommandBacktestDefaultStart(t *testing.T) {
	cmd, err := parseCommand([]string{"backtest", "Austin", "10"})
	if err != nil {
		t.Fatal(err)
	}
	if cmd.StartDate.IsZero() {
		t.Fatal("StartDate not defaulted")
	}
	if end := cmd.StartDate.AddDate(0, 0, 10); end.After(time.Now().UTC()) {
		t.Errorf("default window end %v is in the future", end)
	}
}
