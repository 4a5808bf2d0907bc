package soundstage

// effect is one row of the sound-effect table. Rows are evaluated in
// declaration order; that order is the only priority between cues.
type effect struct {
	keywords  []string
	label     string
	assetURL  string
	intensity Intensity
	offsetMs  int
}

type bed struct {
	keywords []string
	ambience Ambience
}

var soundLibrary = []effect{
	{
		keywords:  []string{"storm", "thunder", "lightning", "rain"},
		label:     "Crackling Thunderclap",
		assetURL:  "https://assets.ovida.fm/sfx/thunder-radio.ogg",
		intensity: IntensityBig,
		offsetMs:  400,
	},
	{
		keywords:  []string{"door", "entrance", "knock"},
		label:     "Wooden Door Creak",
		assetURL:  "https://assets.ovida.fm/sfx/door-creak.ogg",
		intensity: IntensityMedium,
		offsetMs:  120,
	},
	{
		keywords:  []string{"footsteps", "walk", "hurry", "run"},
		label:     "Footsteps on Cobblestone",
		assetURL:  "https://assets.ovida.fm/sfx/footsteps.ogg",
		intensity: IntensityMedium,
		offsetMs:  0,
	},
	{
		keywords:  []string{"mystery", "clue", "reveal", "secret"},
		label:     "Mystery Sting",
		assetURL:  "https://assets.ovida.fm/sfx/mystery-sting.ogg",
		intensity: IntensityBig,
		offsetMs:  50,
	},
	{
		keywords:  []string{"car", "drive", "engine", "chase"},
		label:     "Vintage Roadster Pass-By",
		assetURL:  "https://assets.ovida.fm/sfx/vintage-car.ogg",
		intensity: IntensityMedium,
		offsetMs:  300,
	},
	{
		keywords:  []string{"radio", "broadcast", "transmission"},
		label:     "Shortwave Static",
		assetURL:  "https://assets.ovida.fm/sfx/radio-static.ogg",
		intensity: IntensitySubtle,
		offsetMs:  0,
	},
	{
		keywords:  []string{"ghost", "spirit", "haunt"},
		label:     "Ethereal Whisper",
		assetURL:  "https://assets.ovida.fm/sfx/ghost-whisper.ogg",
		intensity: IntensitySubtle,
		offsetMs:  200,
	},
	{
		keywords:  []string{"train", "station", "locomotive"},
		label:     "Steam Engine Fade",
		assetURL:  "https://assets.ovida.fm/sfx/steam-train.ogg",
		intensity: IntensityBig,
		offsetMs:  500,
	},
}

// ambienceLibrary is first-match-wins.
var ambienceLibrary = []bed{
	{
		// "storm" belongs to the noir bed: a storm beat plays over the alley underscore.
		keywords: []string{"mystery", "noir", "shadow", "midnight", "storm"},
		ambience: Ambience{
			ID:       "noir-alley",
			Label:    "Midnight Alley Underscore",
			AssetURL: "https://assets.ovida.fm/beds/noir-alley-loop.ogg",
			Loop:     true,
			GainDB:   -8,
		},
	},
	{
		keywords: []string{"space", "cosmic", "future", "alien"},
		ambience: Ambience{
			ID:       "orbital-hum",
			Label:    "Orbital Engine Hum",
			AssetURL: "https://assets.ovida.fm/beds/orbital-hum.ogg",
			Loop:     true,
			GainDB:   -12,
		},
	},
	{
		keywords: []string{"jungle", "forest", "wild"},
		ambience: Ambience{
			ID:       "jungle-night",
			Label:    "Jungle Night Chorus",
			AssetURL: "https://assets.ovida.fm/beds/jungle-night.ogg",
			Loop:     true,
			GainDB:   -10,
		},
	},
	{
		keywords: []string{"ocean", "shore", "sea", "harbor"},
		ambience: Ambience{
			ID:       "harbor-tide",
			Label:    "Harbor Tide",
			AssetURL: "https://assets.ovida.fm/beds/harbor-tide.ogg",
			Loop:     true,
			GainDB:   -14,
		},
	},
}

var defaultAmbience = Ambience{
	ID:       "broadcast-hum",
	Label:    "Studio Broadcast Hum",
	AssetURL: "https://assets.ovida.fm/beds/studio-hum.ogg",
	Loop:     true,
	GainDB:   -18,
}

var fallbackInspiration = []string{"Studio Narration", "Magnetic Tape Warmth"}
