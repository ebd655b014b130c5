package mapper

// translations maps vendor (German) display strings to English display strings.
var translations = map[string]string{
	// Parameter names
	"Lüftungsstufe":                    "Ventilation power",
	"Betriebsart":                      "Ventilation mode",
	"Restlaufzeit Betriebsartfunktion": "Remaining run time operating mode function",
	"Status Filtermeldung":             "Filter message status",
	"Bypassklappe":                     "Bypass valve",
	"Frischlufttemperatur":             "Fresh air temperature",
	"Zulufttemperatur":                 "Supply air temperature",
	"Ablufttemperatur":                 "Extract air temperature",
	"Fortlufttemperatur":               "Exhaust air temperature",
	"Raumtemperatur":                   "Room temperature",
	"Raumfeuchte":                      "Room humidity",
	"Relative Feuchte":                 "Relative humidity",
	"Abluftfeuchte":                    "Extract air humidity",

	// Operating modes
	"Automatikbetrieb": "Automatic",
	"Handbetrieb":      "Manual",
	"Urlaubsbetrieb":   "Holiday",
	"Urlaub":           "Holiday",
	"Partybetrieb":     "Party",
	"Party":            "Party",
	"Nachtbetrieb":     "Night",
	"Nachtabsenkung":   "Night",

	// Ventilation levels
	"Stufe 0":            "Level 0",
	"Stufe 1":            "Level 1",
	"Stufe 2":            "Level 2",
	"Stufe 3":            "Level 3",
	"Abwesenheit":        "Away",
	"Grundlüftung":       "Basic ventilation",
	"Reduzierte Lüftung": "Reduced ventilation",
	"Normale Lüftung":    "Normal ventilation",
	"Intensivlüftung":    "Intensive ventilation",

	// Generic states
	"Aus":                "Off",
	"Ein":                "On",
	"Geöffnet":           "Open",
	"Geschlossen":        "Closed",
	"Filter OK":          "Filter OK",
	"Filter wechseln":    "Replace filter",
	"Filter verschmutzt": "Filter dirty",
}

// Translate returns the English display string for s, or s itself.
func Translate(s string) string {
	if t, ok := translations[s]; ok {
		return t
	}
	return s
}
