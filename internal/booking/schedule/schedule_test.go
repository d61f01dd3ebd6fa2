package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWillExpireAt(t *testing.T) {
	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		due  time.Time
		want time.Time
	}{
		{
			name: "due within 90 minutes expires at due",
			due:  created.Add(60 * time.Minute),
			want: created.Add(60 * time.Minute),
		},
		{
			name: "due exactly 90 minutes away expires at due",
			due:  created.Add(90 * time.Minute),
			want: created.Add(90 * time.Minute),
		},
		{
			name: "due within a day gets 90 minutes",
			due:  created.Add(10 * time.Hour),
			want: created.Add(90 * time.Minute),
		},
		{
			name: "due within three days gets 16 hours",
			due:  created.Add(30 * time.Hour),
			want: created.Add(16 * time.Hour),
		},
		{
			name: "due later expires 48 hours before due",
			due:  created.Add(100 * time.Hour),
			want: created.Add(52 * time.Hour),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WillExpireAt(tt.due, created))
		})
	}
}

func TestElapsed(t *testing.T) {
	due := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		to   time.Time
		want string
	}{
		{name: "two hours", to: due.Add(2 * time.Hour), want: "2:00:00"},
		{name: "minutes and seconds", to: due.Add(75*time.Minute + 5*time.Second), want: "1:15:05"},
		{name: "more than a day keeps total hours", to: due.Add(26 * time.Hour), want: "26:00:00"},
		{name: "completion before due is absolute", to: due.Add(-30 * time.Minute), want: "0:30:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Elapsed(due, tt.to))
		})
	}
}

func TestParseSessionTime(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Duration
		wantErr bool
	}{
		{name: "hours and minutes", value: "1:30", want: 90 * time.Minute},
		{name: "with seconds", value: "2:05:10", want: 2*time.Hour + 5*time.Minute + 10*time.Second},
		{name: "surrounding spaces", value: " 0:45 ", want: 45 * time.Minute},
		{name: "empty", value: "", wantErr: true},
		{name: "single number", value: "90", wantErr: true},
		{name: "not a number", value: "a:30", wantErr: true},
		{name: "minutes out of range", value: "1:75", wantErr: true},
		{name: "too many parts", value: "1:2:3:4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSessionTime(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionTimeText(t *testing.T) {
	assert.Equal(t, "1 tim 05 min", SessionTimeText(65*time.Minute))
	assert.Equal(t, "0 tim 45 min", SessionTimeText(45*time.Minute))
	assert.Equal(t, "1:05:00", FormatSessionTime(65*time.Minute))
}

func TestIsNight(t *testing.T) {
	at := func(hour int) time.Time {
		return time.Date(2025, 3, 10, hour, 30, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		hour  int
		start int
		end   int
		want  bool
	}{
		{name: "late evening in wrapping window", hour: 23, start: 22, end: 7, want: true},
		{name: "early morning in wrapping window", hour: 3, start: 22, end: 7, want: true},
		{name: "day outside wrapping window", hour: 12, start: 22, end: 7, want: false},
		{name: "end hour is exclusive", hour: 7, start: 22, end: 7, want: false},
		{name: "non wrapping window", hour: 2, start: 1, end: 5, want: true},
		{name: "empty window", hour: 2, start: 3, end: 3, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNight(at(tt.hour), tt.start, tt.end))
		})
	}
}

func TestNextMorning(t *testing.T) {
	night := time.Date(2025, 3, 10, 23, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 11, 8, 0, 0, 0, time.UTC), NextMorning(night, 8))

	early := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), NextMorning(early, 8))
}
