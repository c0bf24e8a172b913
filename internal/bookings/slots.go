package bookings

import (
	"time"

	"github.com/meesalavenugopal/novacare247/internal/catalog"
)

// AvailableSlot is one bookable start time.
type AvailableSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Weekday maps t onto the template convention where Monday is 0.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// GenerateSlots expands templates into start times for date. Each template
// steps from start_time by slot_duration while the start is before end_time.
// Times in taken are unavailable, as are times on now's date that are not
// strictly after now. Slots keep generation order.
func GenerateSlots(templates []catalog.SlotTemplate, taken []string, date, now time.Time) []AvailableSlot {
	held := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		held[t] = struct{}{}
	}

	y, m, d := date.Date()
	ny, nm, nd := now.Date()
	today := y == ny && m == nm && d == nd

	slots := []AvailableSlot{}
	for _, tpl := range templates {
		if tpl.SlotDuration <= 0 {
			continue
		}
		start, err := time.Parse(timeLayout, tpl.StartTime)
		if err != nil {
			continue
		}
		end, err := time.Parse(timeLayout, tpl.EndTime)
		if err != nil {
			continue
		}
		step := time.Duration(tpl.SlotDuration) * time.Minute
		for at := start; at.Before(end); at = at.Add(step) {
			label := at.Format(timeLayout)
			_, booked := held[label]
			available := !booked
			if today {
				instant := time.Date(ny, nm, nd, at.Hour(), at.Minute(), 0, 0, now.Location())
				if !instant.After(now) {
					available = false
				}
			}
			slots = append(slots, AvailableSlot{Time: label, Available: available})
		}
	}
	return slots
}
