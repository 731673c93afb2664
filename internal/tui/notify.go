package tui

import (
	"fmt"

	"github.com/gen2brain/beeep"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/physics"
)

// maxIndividualAlerts is how many new low-altitude flights get their own notification
const maxIndividualAlerts = 3

// Notifier shows a desktop notification
type Notifier interface {
	Notify(title, body string) error
}

// DesktopNotifier sends notifications through the OS notification service
type DesktopNotifier struct{}

// NewDesktopNotifier sets the application name shown on notifications
func NewDesktopNotifier(appName string) *DesktopNotifier {
	beeep.AppName = appName //nolint:reassign // only way to set the app name in beeep
	return &DesktopNotifier{}
}

// Notify implements Notifier
func (DesktopNotifier) Notify(title, body string) error {
	return beeep.Notify(title, body, "")
}

// lowAltitudeAlerts returns the notifications for newly low flights
func lowAltitudeAlerts(fresh []adsb.FlightRecord) [][2]string {
	if len(fresh) == 0 {
		return nil
	}
	if len(fresh) > maxIndividualAlerts {
		return [][2]string{{
			"Low Altitude Traffic",
			fmt.Sprintf("%d new flights below the low-altitude threshold", len(fresh)),
		}}
	}

	alerts := make([][2]string, 0, len(fresh))
	for _, f := range fresh {
		body := fmt.Sprintf("%s (%s)", f.Callsign, f.Airline)
		if f.Altitude != nil {
			body += fmt.Sprintf(" at %.0f ft", physics.Round(physics.MetersToFt(*f.Altitude)))
		}
		alerts = append(alerts, [2]string{"Low Altitude Flight", body})
	}
	return alerts
}
