package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/panchang-bot/internal/degraded"
	"github.com/kjstillabower/panchang-bot/internal/markup"
	"github.com/kjstillabower/panchang-bot/internal/models"
)

type mockPanchangClient struct {
	body  string
	err   error
	calls int
	last  models.APIRequest
}

func (m *mockPanchangClient) FetchPanchang(ctx context.Context, req models.APIRequest) (json.RawMessage, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return json.RawMessage(m.body), nil
}

const completeBody = `{
	"tithi": {"name": "purnima", "number": 15, "paksha": "shukla", "completes_at": "2025-12-13 21:14:07", "left_precentage": 42},
	"nakshatra": {"name": "rohini", "number": 4, "starts_at": "2025-12-12 18:01:00", "ends_at": "2025-12-13 19:30:45", "left_percentage": 17.25},
	"yoga": {"1": {"name": "siddhi", "number": 16, "completion": "2025-12-13 10:00:00"}},
	"karana": {"1": {"name": "vishti", "number": 7, "completion": "2025-12-13 08:15:00"}},
	"sun_rise": "06:32",
	"sun_set": "17:48"
}`

func testLocation() models.Location {
	return models.Location{
		Name:                "Theni, TN",
		Latitude:            10.0079,
		Longitude:           77.4735,
		TimezoneOffsetHours: 5.5,
		Zone:                time.FixedZone("IST", 19800),
		ZoneLabel:           "IST",
	}
}

var testInstant = models.Instant{Year: 2025, Month: 12, Day: 13, Hour: 21, Minute: 14, Second: 7}

// TestInstant_UsesArrivalClockInZone verifies that the date comes from the
// argument and the clock from the arrival time converted to IST.
func TestInstant_UsesArrivalClockInZone(t *testing.T) {
	svc := NewPanchangService(&mockPanchangClient{}, testLocation(), nil)
	arrival := time.Date(2025, 6, 1, 15, 44, 7, 0, time.UTC) // 21:14:07 IST

	got, err := svc.Instant(" 13-12-2025 ", arrival)
	if err != nil {
		t.Fatalf("Instant() error = %v", err)
	}
	if got != testInstant {
		t.Errorf("Instant() = %+v, want %+v", got, testInstant)
	}
}

// TestInstant_InvalidDate verifies that a bad argument yields an invalid_date
// error without touching the upstream.
func TestInstant_InvalidDate(t *testing.T) {
	mc := &mockPanchangClient{}
	svc := NewPanchangService(mc, testLocation(), nil)

	for _, in := range []string{"31-02-2025", "2025-12-13", "tomorrow", ""} {
		_, err := svc.Instant(in, time.Now())
		if models.AsPipelineError(err).Kind != models.ErrorKindInvalidDate {
			t.Errorf("Instant(%q) kind = %q, want invalid_date", in, models.AsPipelineError(err).Kind)
		}
		reply := svc.ErrorReply(err)
		if err := markup.Validate(reply); err != nil {
			t.Errorf("ErrorReply(%q) is not valid markup: %v", in, err)
		}
	}
	if mc.calls != 0 {
		t.Errorf("upstream called %d times on invalid input, want 0", mc.calls)
	}
}

// TestLookup_Success verifies the full pipeline for a complete response.
func TestLookup_Success(t *testing.T) {
	degraded.Reset()
	defer degraded.Reset()
	mc := &mockPanchangClient{body: completeBody}
	svc := NewPanchangService(mc, testLocation(), nil)

	reply, err := svc.Lookup(context.Background(), testInstant)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if mc.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", mc.calls)
	}
	if mc.last.Date != 13 || mc.last.Hours != 21 || mc.last.Latitude != 10.0079 {
		t.Errorf("request = %+v, want date 13, hours 21, latitude 10.0079", mc.last)
	}
	if err := markup.Validate(reply); err != nil {
		t.Errorf("reply is not valid markup: %v\n%s", err, reply)
	}
	for _, want := range []string{"Name: Purnima (15)", "Remaining: 42%", "Completes: 09:14:07 PM, Dec 13", "Karana: Vishti (7)"} {
		if !strings.Contains(reply, want) {
			t.Errorf("reply missing %q:\n%s", want, reply)
		}
	}
	if errs, total := degraded.ErrorRate(time.Minute); errs != 0 || total != 1 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 1)", errs, total)
	}
}

// TestLookup_PartialShape verifies that a wrapped tithi-only response renders
// every block with N/A for the missing categories.
func TestLookup_PartialShape(t *testing.T) {
	body := `{"output": "{\"name\":\"dwitiya\",\"number\":2,\"paksha\":\"krishna\"}"}`
	svc := NewPanchangService(&mockPanchangClient{body: body}, testLocation(), nil)

	reply, err := svc.Lookup(context.Background(), testInstant)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if strings.Count(reply, "```") != 6 {
		t.Errorf("want 3 blocks in partial reply:\n%s", reply)
	}
	if !strings.Contains(reply, "Paksha: Waning Moon (Krishna)") || !strings.Contains(reply, "Yoga: N/A") {
		t.Errorf("unexpected partial reply:\n%s", reply)
	}
}

// TestLookup_Failures verifies that each failure kind renders a single error line.
func TestLookup_Failures(t *testing.T) {
	tests := []struct {
		name     string
		client   *mockPanchangClient
		wantKind models.ErrorKind
		contains string
	}{
		{
			name:     "http 403",
			client:   &mockPanchangClient{err: models.NewHTTPStatusError(403)},
			wantKind: models.ErrorKindHTTPStatus,
			contains: "403",
		},
		{
			name:     "explicit upstream error",
			client:   &mockPanchangClient{err: models.NewUpstreamError("Invalid date.")},
			wantKind: models.ErrorKindUpstreamExplicit,
			contains: `Invalid date\.`,
		},
		{
			name:     "untyped transport error",
			client:   &mockPanchangClient{err: errors.New("dial tcp: connection refused")},
			wantKind: models.ErrorKindTransport,
			contains: "API request failed",
		},
		{
			name:     "unrecognized shape",
			client:   &mockPanchangClient{body: `{"status": "ok"}`},
			wantKind: models.ErrorKindDecode,
			contains: "decode",
		},
		{
			name:     "non-object body",
			client:   &mockPanchangClient{body: `[1, 2]`},
			wantKind: models.ErrorKindDecode,
			contains: "decode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			degraded.Reset()
			defer degraded.Reset()
			svc := NewPanchangService(tt.client, testLocation(), nil)

			reply, err := svc.Lookup(context.Background(), testInstant)
			if models.AsPipelineError(err).Kind != tt.wantKind {
				t.Fatalf("Lookup() kind = %q, want %q (err %v)", models.AsPipelineError(err).Kind, tt.wantKind, err)
			}
			if !strings.HasPrefix(reply, "❌ *Error:* ") {
				t.Errorf("reply = %q, want error line", reply)
			}
			if !strings.Contains(reply, tt.contains) {
				t.Errorf("reply = %q, want it to contain %q", reply, tt.contains)
			}
			if strings.Contains(reply, "```") {
				t.Errorf("error reply contains a block: %q", reply)
			}
			if err := markup.Validate(reply); err != nil {
				t.Errorf("error reply is not valid markup: %v", err)
			}
			if errs, _ := degraded.ErrorRate(time.Minute); errs != 1 {
				t.Errorf("ErrorRate() errors = %d, want 1", errs)
			}
		})
	}
}

// TestLookup_OversizedReplyFallsBackToError verifies that a reply over the
// message limit is replaced by an error line.
func TestLookup_OversizedReplyFallsBackToError(t *testing.T) {
	long := strings.Repeat("x", markup.MaxMessageLength)
	body := `{"tithi": {"name": "` + long + `"}, "nakshatra": {}, "yoga": {}, "karana": {}}`
	svc := NewPanchangService(&mockPanchangClient{body: body}, testLocation(), nil)

	reply, err := svc.Lookup(context.Background(), testInstant)
	if models.AsPipelineError(err).Kind != models.ErrorKindUnexpected {
		t.Fatalf("Lookup() kind = %q, want unexpected", models.AsPipelineError(err).Kind)
	}
	if n := markup.UTF16Len(reply); n > markup.MaxMessageLength {
		t.Errorf("reply length %d exceeds limit", n)
	}
}

// TestLookup_LimitCountsUTF16Units verifies that astral characters count as two
// units: the reply fits in runes but not in UTF-16, so it is rejected.
func TestLookup_LimitCountsUTF16Units(t *testing.T) {
	name := strings.Repeat("🌕", 2100)
	body := `{"tithi": {"name": "` + name + `"}, "nakshatra": {}, "yoga": {}, "karana": {}}`
	svc := NewPanchangService(&mockPanchangClient{body: body}, testLocation(), nil)

	reply, err := svc.Lookup(context.Background(), testInstant)
	if models.AsPipelineError(err).Kind != models.ErrorKindUnexpected {
		t.Fatalf("Lookup() kind = %q, want unexpected", models.AsPipelineError(err).Kind)
	}
	if strings.Contains(reply, "🌕") {
		t.Error("oversized almanac reply was sent")
	}
}

func TestNewPanchangService_DefaultsZone(t *testing.T) {
	loc := testLocation()
	loc.Zone = nil
	svc := NewPanchangService(&mockPanchangClient{}, loc, nil)
	if svc.location.Zone == nil {
		t.Error("location.Zone = nil, want default zone")
	}
	if svc.Formatter() == nil {
		t.Error("Formatter() = nil")
	}
}
