package adsb

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// UnknownAirline is used when a callsign prefix is not in the table
const UnknownAirline = "Private/Unknown"

// defaultAirlines maps ICAO operator prefixes seen over central Mexico to airline names
var defaultAirlines = map[string]string{
	"AMX": "Aeroméxico",
	"VOI": "Volaris",
	"VIV": "Viva Aerobus",
	"AAL": "American Airlines",
	"UAL": "United Airlines",
	"DAL": "Delta Air Lines",
	"SWA": "Southwest Airlines",
	"ACA": "Air Canada",
	"AFR": "Air France",
	"KLM": "KLM Royal Dutch Airlines",
	"IBE": "Iberia",
	"BAW": "British Airways",
	"DLH": "Lufthansa",
	"AVA": "Avianca",
	"CMP": "Copa Airlines",
	"LAN": "LATAM Airlines",
	"ANA": "All Nippon Airways",
	"JAL": "Japan Airlines",
	"KAL": "Korean Air",
	"QTR": "Qatar Airways",
	"THY": "Turkish Airlines",
	"UAE": "Emirates",
	"FDX": "FedEx Express",
	"UPS": "UPS Airlines",
	"SCX": "Sun Country Airlines",
	"WJA": "WestJet",
	"FFT": "Frontier Airlines",
	"NKS": "Spirit Airlines",
	"JBU": "JetBlue Airways",
	"ASA": "Alaska Airlines",
	"AAR": "Asiana Airlines",
	"CPA": "Cathay Pacific",
	"ETH": "Ethiopian Airlines",
	"EZY": "easyJet",
	"FIN": "Finnair",
	"GTI": "Atlas Air",
	"ICE": "Icelandair",
	"MAS": "Malaysia Airlines",
	"QFA": "Qantas",
	"RYR": "Ryanair",
	"SAS": "Scandinavian Airlines",
	"SIA": "Singapore Airlines",
	"SWR": "Swiss",
	"TAP": "TAP Air Portugal",
	"VIR": "Virgin Atlantic",
}

// Airline is one entry of an airline data file
type Airline struct {
	ICAO string `json:"icao"`
	Name string `json:"name"`
}

// AirlineDirectory resolves callsigns to airline names.
// It is read-only after construction and safe for concurrent use.
type AirlineDirectory struct {
	names map[string]string
}

// NewAirlineDirectory returns a directory holding the built-in table
func NewAirlineDirectory() *AirlineDirectory {
	names := make(map[string]string, len(defaultAirlines))
	for k, v := range defaultAirlines {
		names[k] = v
	}
	return &AirlineDirectory{names: names}
}

// LoadFile merges entries from a JSON airline file, overriding built-in names.
// Returns the number of entries merged.
func (d *AirlineDirectory) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read airline file: %w", err)
	}

	var airlines []Airline
	if err := json.Unmarshal(data, &airlines); err != nil {
		return 0, fmt.Errorf("failed to parse airline file: %w", err)
	}

	merged := 0
	for _, a := range airlines {
		code := strings.ToUpper(strings.TrimSpace(a.ICAO))
		if len(code) != 3 || code == "N/A" || a.Name == "" {
			continue
		}
		d.names[code] = a.Name
		merged++
	}
	return merged, nil
}

// Resolve returns the airline for a trimmed callsign, keyed by its first three characters
func (d *AirlineDirectory) Resolve(callsign string) string {
	key := callsign
	if r := []rune(callsign); len(r) > 3 {
		key = string(r[:3])
	}
	if name, ok := d.names[strings.ToUpper(key)]; ok {
		return name
	}
	return UnknownAirline
}

// Len returns the number of known prefixes
func (d *AirlineDirectory) Len() int {
	return len(d.names)
}
