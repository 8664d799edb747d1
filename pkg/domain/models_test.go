package domain

import (
	"math"
	"testing"
	"time"
)

func TestProgressStatus_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		status ProgressStatus
		want   bool
	}{
		{name: "not_started is valid", status: ProgressStatusNotStarted, want: true},
		{name: "in_progress is valid", status: ProgressStatusInProgress, want: true},
		{name: "completed is valid", status: ProgressStatusCompleted, want: true},
		{name: "invalid status", status: ProgressStatus("claimed"), want: false},
		{name: "empty status", status: ProgressStatus(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsValid(); got != tt.want {
				t.Errorf("ProgressStatus.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		loc     Location
		wantErr bool
	}{
		{name: "tirana", loc: Location{Latitude: 41.3275, Longitude: 19.8187}, wantErr: false},
		{name: "bounds inclusive", loc: Location{Latitude: -90, Longitude: 180}, wantErr: false},
		{name: "latitude too large", loc: Location{Latitude: 90.0001, Longitude: 0}, wantErr: true},
		{name: "longitude too small", loc: Location{Latitude: 0, Longitude: -180.5}, wantErr: true},
		{name: "NaN latitude", loc: Location{Latitude: math.NaN(), Longitude: 0}, wantErr: true},
		{name: "infinite longitude", loc: Location{Latitude: 0, Longitude: math.Inf(1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.loc.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Location.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuestDefinition_TotalPointsAndLookup(t *testing.T) {
	quest := &QuestDefinition{
		ID: "tirana01",
		Stops: []*StopDefinition{
			{Order: 1, Points: 50},
			{Order: 2, Points: 40},
			{Order: 3, Points: 60},
		},
	}

	if got := quest.TotalPoints(); got != 150 {
		t.Errorf("TotalPoints() = %d, want 150", got)
	}
	if got := quest.StopCount(); got != 3 {
		t.Errorf("StopCount() = %d, want 3", got)
	}
	if stop := quest.StopByOrder(2); stop == nil || stop.Points != 40 {
		t.Errorf("StopByOrder(2) = %+v, want stop with 40 points", stop)
	}
	if stop := quest.StopByOrder(4); stop != nil {
		t.Errorf("StopByOrder(4) = %+v, want nil", stop)
	}
	if stop := quest.StopByOrder(0); stop != nil {
		t.Errorf("StopByOrder(0) = %+v, want nil", stop)
	}
}

func TestQuestDefinition_StopByOrder_Unsorted(t *testing.T) {
	quest := &QuestDefinition{
		Stops: []*StopDefinition{
			{Order: 2, Title: "second"},
			{Order: 1, Title: "first"},
		},
	}

	if stop := quest.StopByOrder(1); stop == nil || stop.Title != "first" {
		t.Errorf("StopByOrder(1) = %+v, want first", stop)
	}
}

func TestStopDefinition_RadiusOr(t *testing.T) {
	radius := 25.0
	withRadius := &StopDefinition{ArrivalRadiusMeters: &radius}
	withoutRadius := &StopDefinition{}

	if got := withRadius.RadiusOr(50); got != 25 {
		t.Errorf("RadiusOr() = %v, want 25", got)
	}
	if got := withoutRadius.RadiusOr(50); got != 50 {
		t.Errorf("RadiusOr() = %v, want 50", got)
	}
}

func TestQuestProgress_StatusHelpers(t *testing.T) {
	tests := []struct {
		name           string
		status         ProgressStatus
		wantCompleted  bool
		wantInProgress bool
	}{
		{name: "not started", status: ProgressStatusNotStarted},
		{name: "in progress", status: ProgressStatusInProgress, wantInProgress: true},
		{name: "completed", status: ProgressStatusCompleted, wantCompleted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &QuestProgress{Status: tt.status}
			if got := p.IsCompleted(); got != tt.wantCompleted {
				t.Errorf("IsCompleted() = %v, want %v", got, tt.wantCompleted)
			}
			if got := p.IsInProgress(); got != tt.wantInProgress {
				t.Errorf("IsInProgress() = %v, want %v", got, tt.wantInProgress)
			}
		})
	}
}

func TestQuestProgress_Clone(t *testing.T) {
	completedAt := time.Date(2025, 10, 17, 14, 0, 0, 0, time.UTC)
	original := &QuestProgress{
		ID:                "p1",
		Status:            ProgressStatusCompleted,
		AccumulatedPoints: 150,
		CompletedAt:       &completedAt,
		Version:           4,
	}

	clone := original.Clone()
	clone.AccumulatedPoints = 0
	*clone.CompletedAt = time.Time{}

	if original.AccumulatedPoints != 150 {
		t.Errorf("mutating clone changed original points to %d", original.AccumulatedPoints)
	}
	if !original.CompletedAt.Equal(completedAt) {
		t.Errorf("mutating clone changed original CompletedAt to %v", original.CompletedAt)
	}

	var nilProgress *QuestProgress
	if nilProgress.Clone() != nil {
		t.Error("Clone() of nil should be nil")
	}
}
