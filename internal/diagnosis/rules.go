package diagnosis

import "carcare/internal/domain"

var builtinRules = []domain.DiagnosticRule{
	{
		ID:         "battery-starter",
		Keywords:   []string{"clicking", "won't start", "wont start", "no start", "dead battery"},
		Conditions: []string{"engine", "key", "dim", "cold morning"},
		Problem:    "Dead or weak battery, or a failing starter",
		Action:     "Check battery connections and charge level. If the battery is old (3+ years), consider replacement. Try jump-starting the vehicle; if it still only clicks, have the starter tested.",
		Severity:   domain.SeverityHigh,
		Priority:   10,
	},
	{
		ID:         "brake-pads",
		Keywords:   []string{"squealing", "grinding", "squeaking"},
		Conditions: []string{"brakes", "braking", "when i stop", "stopping"},
		Problem:    "Worn brake pads",
		Action:     "Have brake pads inspected immediately. Squealing means the wear indicators are making contact and grinding means metal-on-metal. Replace pads soon to avoid damaging the rotors.",
		Severity:   domain.SeverityHigh,
		Priority:   9,
	},
	{
		ID:         "brake-hydraulics",
		Keywords:   []string{"spongy", "soft pedal", "pedal goes to the floor", "brake fluid", "brake warning light"},
		Conditions: []string{"brake", "leak", "pumping"},
		Problem:    "Low brake fluid or air in the brake lines",
		Action:     "Stop driving and check the brake fluid level. Look for leaks at the wheels and master cylinder. Have the system bled and inspected before driving again.",
		Severity:   domain.SeverityHigh,
		Priority:   10,
	},
	{
		ID:         "overheating",
		Keywords:   []string{"overheat", "steam", "hot"},
		Conditions: []string{"coolant", "coming out"},
		Problem:    "Cooling system failure",
		Action:     "Stop driving immediately and let the engine cool. Check the coolant level and look for leaks. Have the cooling system inspected by a professional.",
		Severity:   domain.SeverityHigh,
		Priority:   10,
	},
	{
		ID:         "engine-misfire",
		Keywords:   []string{"rough idle", "shaking", "misfire", "sputtering", "hesitat", "stalling"},
		Conditions: []string{"idle", "accelerat", "check engine light"},
		Problem:    "Engine misfiring or vacuum leak",
		Action:     "Check spark plugs, ignition coils and vacuum hoses. Read the stored trouble codes and consider a professional diagnosis if the problem persists.",
		Severity:   domain.SeverityMedium,
		Priority:   6,
	},
	{
		ID:         "tires-alignment",
		Keywords:   []string{"pulls to", "pulling to", "vibrat", "uneven wear", "flat tire", "tire pressure"},
		Conditions: []string{"steering", "highway", "tire", "wheel"},
		Problem:    "Low tire pressure or wheel alignment issues",
		Action:     "Check tire pressure and inflate to the manufacturer specification. If the pull or vibration continues, schedule a wheel balance and alignment check.",
		Severity:   domain.SeverityMedium,
		Priority:   5,
	},
	{
		ID:         "serpentine-belt",
		Keywords:   []string{"belt", "chirp", "squeal on startup"},
		Conditions: []string{"cold start", "turning", "ac on"},
		Problem:    "Loose or worn serpentine belt",
		Action:     "Inspect the engine belts for cracks, glazing or looseness. Replace the serpentine belt or tensioner if damaged.",
		Severity:   domain.SeverityMedium,
		Priority:   4,
	},
	{
		ID:         "transmission",
		Keywords:   []string{"slipping", "grinding gears", "hard shift", "delayed engagement", "won't shift"},
		Conditions: []string{"gear", "transmission", "rpm"},
		Problem:    "Transmission slipping or low transmission fluid",
		Action:     "Check the transmission fluid level and condition. Burnt-smelling or low fluid needs service; have the transmission inspected before the damage spreads.",
		Severity:   domain.SeverityHigh,
		Priority:   8,
	},
	{
		ID:         "oil-pressure",
		Keywords:   []string{"oil light", "oil leak", "burning oil", "knocking", "ticking"},
		Conditions: []string{"engine", "puddle", "smoke"},
		Problem:    "Low oil level or oil pressure",
		Action:     "Check the engine oil level immediately and top up if low. If the oil light stays on or the knocking continues, stop driving and have the engine inspected.",
		Severity:   domain.SeverityHigh,
		Priority:   8,
	},
	{
		ID:         "exhaust-smoke",
		Keywords:   []string{"white smoke", "blue smoke", "black smoke", "exhaust"},
		Conditions: []string{"tailpipe", "coolant", "oil"},
		Problem:    "Exhaust leak or head gasket problem",
		Action:     "Note the smoke color: white suggests coolant, blue suggests oil, black suggests a rich fuel mixture. Have the exhaust and head gasket inspected.",
		Severity:   domain.SeverityMedium,
		Priority:   7,
	},
	{
		ID:         "charging-system",
		Keywords:   []string{"battery light", "dim headlights", "flickering", "alternator", "electrical"},
		Conditions: []string{"driving", "lights", "radio"},
		Problem:    "Alternator or charging system fault",
		Action:     "Test battery voltage (about 12.6V with the engine off, 13.5-14.5V running). Clean the battery terminals and have the alternator tested if the voltage is low while running.",
		Severity:   domain.SeverityMedium,
		Priority:   5,
	},
	{
		ID:         "air-conditioning",
		Keywords:   []string{"ac not cold", "a/c", "warm air", "no cold air", "air conditioning"},
		Conditions: []string{"summer", "compressor", "vent"},
		Problem:    "Low refrigerant or A/C compressor fault",
		Action:     "Check that the compressor clutch engages when the A/C is on. Have the refrigerant level and system pressures checked by a technician.",
		Severity:   domain.SeverityLow,
		Priority:   3,
	},
	{
		ID:         "loose-trim",
		Keywords:   []string{"rattle", "rattling", "buzzing"},
		Conditions: []string{"dashboard", "underneath", "over bumps"},
		Problem:    "Loose heat shield or interior trim",
		Action:     "Locate the rattle with the engine off by tapping panels and the exhaust heat shield. Tighten or clip loose parts; this is usually a low-priority repair.",
		Severity:   domain.SeverityLow,
		Priority:   1,
	},
}

// DefaultRules returns a copy of the built-in rule table.
func DefaultRules() []domain.DiagnosticRule {
	return cloneRules(builtinRules)
}

func cloneRules(rules []domain.DiagnosticRule) []domain.DiagnosticRule {
	out := make([]domain.DiagnosticRule, len(rules))
	for i, r := range rules {
		r.Keywords = append([]string(nil), r.Keywords...)
		r.Conditions = append([]string(nil), r.Conditions...)
		out[i] = r
	}
	return out
}
