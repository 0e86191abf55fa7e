package format

import (
	"fmt"
	"time"

	"github.com/kjstillabower/panchang-bot/internal/markup"
	"github.com/kjstillabower/panchang-bot/internal/models"
)

// WireTimestampLayout is the upstream's timestamp format.
const WireTimestampLayout = "2006-01-02 15:04:05"

const (
	queryDateLayout = "Monday, January 02, 2006"
	timeLayout      = "03:04:05 PM"
	timeDateLayout  = "03:04:05 PM, Jan 02"
	inputDateLayout = "02-01-2006"
	clockLayout     = "15:04:05"
	exampleCommand  = "/panchang 13-12-2025"
	maxErrorRunes   = 500
	maxNameRunes    = 64
)

// Formatter renders replies as MarkdownV2 bodies.
type Formatter struct {
	loc models.Location
}

func New(loc models.Location) *Formatter {
	if loc.Zone == nil {
		loc.Zone = time.UTC
	}
	return &Formatter{loc: loc}
}

// Panchang renders a record as a header plus one pre-formatted block per category.
func (f *Formatter) Panchang(rec models.AlmanacRecord, instant models.Instant) string {
	at := instant.Time(f.loc.Zone)

	var b markup.Builder
	b.Text("🕉️ ").Bold("Panchang Details for:").Text(" ").Code(at.Format(queryDateLayout)).Newline()
	b.Italic(fmt.Sprintf("Time of Calculation: %s %s (%s)", at.Format(timeLayout), f.loc.ZoneLabel, f.loc.Name)).Newline()
	b.Italic(fmt.Sprintf("Sunrise: %s | Sunset: %s", rec.Sunrise, rec.Sunset)).Newline()
	if rec.Partial {
		b.Italic("Only the tithi was available for this date.").Newline()
	}
	b.Newline()

	b.Bold("🌙 Tithi (Lunar Day):").Newline()
	b.Block(
		"Name: "+nameWithNumber(rec.Tithi.Name, rec.Tithi.Number),
		"Paksha: "+rec.Tithi.Paksha,
		"Completes: "+Timestamp(rec.Tithi.CompletesAt, true),
		"Remaining: "+Remaining(rec.Tithi.RemainingPercent),
	).Newline()

	b.Bold("⭐ Nakshatra (Lunar Mansion):").Newline()
	b.Block(
		"Name: "+nameWithNumber(rec.Nakshatra.Name, rec.Nakshatra.Number),
		"Starts: "+Timestamp(rec.Nakshatra.StartsAt, true),
		"Ends: "+Timestamp(rec.Nakshatra.EndsAt, true),
		"Remaining: "+Remaining(rec.Nakshatra.RemainingPercent),
	).Newline()

	b.Bold("🧘 Yoga & Karana:").Newline()
	b.Block(
		"Yoga: "+nameWithNumber(rec.Yoga.Name, rec.Yoga.Number),
		"Yoga Completion: "+Timestamp(rec.Yoga.CompletesAt, false),
		"Karana: "+nameWithNumber(rec.Karana.Name, rec.Karana.Number),
		"Karana Completion: "+Timestamp(rec.Karana.CompletesAt, false),
	)
	return b.String()
}

// Error renders a single escaped error line. No blocks are emitted.
func (f *Formatter) Error(err error) string {
	msg := "An unexpected error occurred."
	if pe := models.AsPipelineError(err); pe != nil && pe.Message != "" {
		msg = pe.Message
	}
	var b markup.Builder
	b.Text("❌ ").Bold("Error:").Text(" " + markup.Truncate(msg, maxErrorRunes))
	return b.String()
}

// InvalidDate echoes a rejected date argument with the expected format.
func (f *Formatter) InvalidDate(input string) string {
	return f.Error(models.NewInvalidDateError(input, nil))
}

// Welcome greets a user by mention.
func (f *Formatter) Welcome(firstName string, userID int64) string {
	if firstName == "" {
		firstName = "there"
	}
	var b markup.Builder
	b.Text("Hello, ").Mention(markup.Truncate(firstName, maxNameRunes), userID).Text("! I am your Panchang Bot. ")
	b.Text("Send me a date with the ").Code("/panchang").Text(" command in the format ").Code("DD-MM-YYYY").Text(". ")
	b.Text(fmt.Sprintf("The calculation will use the exact time you sent the message, converted to %s. ", f.loc.ZoneLabel))
	b.Text("Example: ").Code(exampleCommand)
	return b.String()
}

// Help lists the commands.
func (f *Formatter) Help() string {
	var b markup.Builder
	b.Text("This bot provides Full Panchang (Tithi, Nakshatra, Yoga, Karana) details.").Newline().Newline()
	b.Text("Commands:").Newline()
	b.Bold("/start").Text(" - Start the bot.").Newline()
	b.Bold("/help").Text(" - Show this help.").Newline()
	b.Bold("/panchang DD-MM-YYYY").Text(" - Get Full Panchang details for the specified date.").Newline()
	b.Text("Example: ").Code(exampleCommand).Newline().Newline()
	b.Italic(fmt.Sprintf("Calculations are based on %s coordinates (%s) and Lahiri Ayanamsha.", f.loc.Name, f.loc.ZoneLabel))
	return b.String()
}

// Usage is the reply to /panchang without an argument.
func (f *Formatter) Usage() string {
	var b markup.Builder
	b.Text("Please provide a date in the format DD-MM-YYYY. Example: ").Code(exampleCommand)
	return b.String()
}

// Fetching is the interim notice sent before the upstream call.
func (f *Formatter) Fetching(instant models.Instant) string {
	at := instant.Time(f.loc.Zone)
	var b markup.Builder
	b.Text(fmt.Sprintf("⏳ Fetching Full Panchang details for %s at %s (%s, %s)...",
		at.Format(inputDateLayout), at.Format(clockLayout), f.loc.Name, f.loc.ZoneLabel))
	return b.String()
}

// Timestamp renders a wire timestamp as a 12-hour clock, with ", Jan 02" when
// withDate is set. Unparsable or absent values render as N/A.
func Timestamp(s string, withDate bool) string {
	if s == "" || s == models.NA {
		return models.NA
	}
	t, err := time.Parse(WireTimestampLayout, s)
	if err != nil {
		return models.NA
	}
	if withDate {
		return t.Format(timeDateLayout)
	}
	return t.Format(timeLayout)
}

// Remaining renders a percentage value.
func Remaining(p string) string {
	if p == "" || p == models.NA {
		return models.NA
	}
	return p + "%"
}

func nameWithNumber(name, number string) string {
	if number == "" || number == models.NA {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, number)
}
