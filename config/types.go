package config

// NormalizeConfig controls the feed normalization stages.
type NormalizeConfig struct {
	// MaxSpeedByMode maps a transit mode name (tram, metro, rail, bus, ferry,
	// cable, gondola, funicular, trolleybus, monorail) to a maximum plausible
	// speed in km/h. Stop times implying a higher speed are dropped.
	MaxSpeedByMode map[string]float64 `yaml:"maxSpeedByMode" validate:"omitempty,dive,gt=0"`
	// CoordinateDecimals rounds stop and shape coordinates; 6 decimals is
	// roughly one meter of precision. Zero disables rounding.
	CoordinateDecimals int `yaml:"coordinateDecimals" validate:"gte=0,lte=9"`
}

// MatchConfig holds the map matching parameters.
type MatchConfig struct {
	// SearchRadiusM bounds the candidate search around each shape point, meters.
	SearchRadiusM float64 `yaml:"searchRadiusM" validate:"gt=0"`
	// EmissionSigmaM is the standard deviation of the Gaussian emission
	// probability over perpendicular distance, meters.
	EmissionSigmaM float64 `yaml:"emissionSigmaM" validate:"gt=0"`
	// TransitionDecay selects the transition penalty shape: "exponential" or
	// "gaussian" over the network/great-circle detour ratio.
	TransitionDecay string `yaml:"transitionDecay" validate:"oneof=exponential gaussian"`
	// TransitionDecayRate scales the transition penalty.
	TransitionDecayRate float64 `yaml:"transitionDecayRate" validate:"gt=0"`
	// PathDistanceCutoffM bounds shortest-path searches between candidates,
	// meters. Pairs beyond the cutoff are forbidden transitions.
	PathDistanceCutoffM float64 `yaml:"pathDistanceCutoffM" validate:"gt=0"`
	// MaxGapFraction is the largest tolerated share of a shape's length that
	// may be covered by match gaps before the shape is unmatchable.
	MaxGapFraction float64 `yaml:"maxGapFraction" validate:"gte=0,lte=1"`
	// Workers is the number of shapes matched concurrently.
	Workers int `yaml:"workers" validate:"gte=1"`
	// CRS is the EPSG code assigned to matched geometries.
	CRS int `yaml:"crs" validate:"gt=0"`
}

// SinksConfig configures optional result sinks. Empty values disable a sink.
type SinksConfig struct {
	PostgresDSN string `yaml:"postgresDSN"`
	NATSURL     string `yaml:"natsURL"`
	MetricsAddr string `yaml:"metricsAddr"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Normalize NormalizeConfig `yaml:"normalize"`
	Match     MatchConfig     `yaml:"match" validate:"required"`
	Sinks     SinksConfig     `yaml:"sinks"`
}
