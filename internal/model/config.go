package model

import "time"

// Config is the complete vesselcost configuration.
// It is built once (defaults, config file, env, flags) and passed explicitly.
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Document     DocumentConfig     `yaml:"document" mapstructure:"document"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Delivery     DeliveryConfig     `yaml:"delivery" mapstructure:"delivery"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
	Rates        RateConfig         `yaml:"rates" mapstructure:"rates"`
	Fallbacks    FallbackConfig     `yaml:"fallbacks" mapstructure:"fallbacks"`
	Validation   ValidationConfig   `yaml:"validation" mapstructure:"validation"`
}

// LLMConfig configures the optional enrichment provider
type LLMConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model      string `yaml:"model,omitempty" mapstructure:"model"`
	APIKey     string `yaml:"-" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Mode       string `yaml:"mode" mapstructure:"mode"`       // budget, full
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens  int    `yaml:"max_tokens,omitempty" mapstructure:"max_tokens"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the enrichment response cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig configures batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig bounds calls to the enrichment provider
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// DocumentConfig limits what is read from input documents
type DocumentConfig struct {
	MaxBytes int64 `yaml:"max_bytes" mapstructure:"max_bytes"`
	MaxPages int   `yaml:"max_pages" mapstructure:"max_pages"`
}

// OutputConfig configures report sinks
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	XLSX    bool   `yaml:"xlsx" mapstructure:"xlsx"`
	JSON    bool   `yaml:"json" mapstructure:"json"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// DeliveryConfig configures the email webhook
type DeliveryConfig struct {
	WebhookURL string        `yaml:"webhook_url,omitempty" mapstructure:"webhook_url"`
	Recipient  string        `yaml:"recipient,omitempty" mapstructure:"recipient"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Format      string `yaml:"format" mapstructure:"format"` // console, json
	Output      string `yaml:"output" mapstructure:"output"` // stdout, stderr, file path
	Development bool   `yaml:"development" mapstructure:"development"`
}

// MaterialRate is the cost factor and density of one material
type MaterialRate struct {
	Factor  float64 `yaml:"factor" mapstructure:"factor"`   // multiplier on the $/lb table
	Density float64 `yaml:"density" mapstructure:"density"` // lb/in³
}

// PressureClass maps a design-pressure ceiling to a labor/test factor
type PressureClass struct {
	MaxPSI float64 `yaml:"max_psi" mapstructure:"max_psi"`
	Factor float64 `yaml:"factor" mapstructure:"factor"`
}

// ComponentWeights are per-unit weights of counted components (lb)
type ComponentWeights struct {
	Nozzle float64 `yaml:"nozzle" mapstructure:"nozzle"`
	Flange float64 `yaml:"flange" mapstructure:"flange"`
	Leg    float64 `yaml:"leg" mapstructure:"leg"`
	Pad    float64 `yaml:"pad" mapstructure:"pad"`
}

// RateConfig holds every multiplier the cost engine uses
type RateConfig struct {
	Currency  string                  `yaml:"currency" mapstructure:"currency"`
	PerPound  map[string]float64      `yaml:"per_pound" mapstructure:"per_pound"` // heads, shells, nozzles, flanges, legs, plates
	Materials map[string]MaterialRate `yaml:"materials" mapstructure:"materials"`
	Weights   ComponentWeights        `yaml:"weights" mapstructure:"weights"`

	HeadBlankFactor float64 `yaml:"head_blank_factor" mapstructure:"head_blank_factor"` // blank diameter / shell diameter
	HeadAreaFactor  float64 `yaml:"head_area_factor" mapstructure:"head_area_factor"`   // F&D head area / flat disc area

	LaborPerHour       float64         `yaml:"labor_per_hour" mapstructure:"labor_per_hour"`
	HoursPerPound      float64         `yaml:"hours_per_pound" mapstructure:"hours_per_pound"`
	LegFabricationEach float64         `yaml:"leg_fabrication_each" mapstructure:"leg_fabrication_each"`
	PressureClasses    []PressureClass `yaml:"pressure_classes" mapstructure:"pressure_classes"`

	PaintingPerSqFt      float64 `yaml:"painting_per_sqft" mapstructure:"painting_per_sqft"`
	RadiographyPerFt     float64 `yaml:"radiography_per_ft" mapstructure:"radiography_per_ft"`
	UltrasonicPerTest    float64 `yaml:"ultrasonic_per_test" mapstructure:"ultrasonic_per_test"`
	HydrotestEach        float64 `yaml:"hydrotest_each" mapstructure:"hydrotest_each"`
	TransportPerShipment float64 `yaml:"transport_per_shipment" mapstructure:"transport_per_shipment"`
	ShipmentCapacityLb   float64 `yaml:"shipment_capacity_lb" mapstructure:"shipment_capacity_lb"`
	ManwayEach           float64 `yaml:"manway_each" mapstructure:"manway_each"`
	ManwayMinDiameterIn  float64 `yaml:"manway_min_diameter_in" mapstructure:"manway_min_diameter_in"`

	OverheadRate float64            `yaml:"overhead_rate" mapstructure:"overhead_rate"`
	Contingency  map[string]float64 `yaml:"contingency" mapstructure:"contingency"` // keyed by confidence level
}

// FallbackConfig supplies values for attributes that could not be extracted
type FallbackConfig struct {
	Material           string  `yaml:"material" mapstructure:"material"`
	DiameterIn         float64 `yaml:"diameter_in" mapstructure:"diameter_in"`
	LengthFt           float64 `yaml:"length_ft" mapstructure:"length_ft"`
	WallThicknessIn    float64 `yaml:"wall_thickness_in" mapstructure:"wall_thickness_in"`
	DesignPressurePSI  float64 `yaml:"design_pressure_psi" mapstructure:"design_pressure_psi"`
	DesignTemperatureF float64 `yaml:"design_temperature_f" mapstructure:"design_temperature_f"`
	NozzleCount        float64 `yaml:"nozzle_count" mapstructure:"nozzle_count"`
	LegCount           float64 `yaml:"leg_count" mapstructure:"leg_count"`
}

// Range is an inclusive plausibility interval; Exclusive excludes Min
type Range struct {
	Min          float64 `yaml:"min" mapstructure:"min"`
	Max          float64 `yaml:"max" mapstructure:"max"`
	ExclusiveMin bool    `yaml:"exclusive_min,omitempty" mapstructure:"exclusive_min"`
	Integer      bool    `yaml:"integer,omitempty" mapstructure:"integer"`
}

// ValidationConfig holds the plausibility ranges keyed by attribute name
type ValidationConfig struct {
	Ranges map[string]Range `yaml:"ranges" mapstructure:"ranges"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Enabled:   false,
			Provider:  "openai",
			Mode:      string(ModeBudget),
			Timeout:   30,
			MaxTokens: 0, // mode decides
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".vesselcost-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 1,
			BurstSize:         2,
		},
		Document: DocumentConfig{
			MaxBytes: 50 << 20,
			MaxPages: 60,
		},
		Output: OutputConfig{
			Dir:  ".",
			XLSX: true,
			JSON: false,
		},
		Delivery: DeliveryConfig{
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
			Output: "stderr",
		},
		Rates:      DefaultRates(),
		Fallbacks:  DefaultFallbacks(),
		Validation: DefaultValidation(),
	}
}

// DefaultRates mirrors the shop's current multiplier sheet
func DefaultRates() RateConfig {
	return RateConfig{
		Currency: "USD",
		PerPound: map[string]float64{
			"heads":   9,
			"shells":  13,
			"nozzles": 8,
			"flanges": 7,
			"legs":    5,
			"plates":  6,
		},
		Materials: map[string]MaterialRate{
			"carbon_steel":  {Factor: 1.0, Density: 0.2836},
			"chrome_moly":   {Factor: 1.6, Density: 0.2836},
			"stainless_304": {Factor: 2.4, Density: 0.289},
			"stainless_316": {Factor: 2.8, Density: 0.289},
			"duplex":        {Factor: 3.6, Density: 0.285},
			"aluminum":      {Factor: 2.2, Density: 0.0975},
		},
		Weights: ComponentWeights{
			Nozzle: 35,
			Flange: 40,
			Leg:    75,
			Pad:    12,
		},
		HeadBlankFactor:    1.2,
		HeadAreaFactor:     1.09,
		LaborPerHour:       95,
		HoursPerPound:      0.02,
		LegFabricationEach: 1500,
		PressureClasses: []PressureClass{
			{MaxPSI: 150, Factor: 1.0},
			{MaxPSI: 300, Factor: 1.15},
			{MaxPSI: 600, Factor: 1.35},
			{MaxPSI: 1500, Factor: 1.6},
			{MaxPSI: 0, Factor: 2.0}, // 0 = no ceiling
		},
		PaintingPerSqFt:      12,
		RadiographyPerFt:     75,
		UltrasonicPerTest:    150,
		HydrotestEach:        650,
		TransportPerShipment: 2500,
		ShipmentCapacityLb:   40000,
		ManwayEach:           1200,
		ManwayMinDiameterIn:  36,
		OverheadRate:         0.12,
		Contingency: map[string]float64{
			string(ConfidenceHigh):   0.03,
			string(ConfidenceMedium): 0.07,
			string(ConfidenceLow):    0.12,
		},
	}
}

// DefaultFallbacks returns the values used for attributes that are missing
func DefaultFallbacks() FallbackConfig {
	return FallbackConfig{
		Material:           "carbon_steel",
		DiameterIn:         48,
		LengthFt:           10,
		WallThicknessIn:    0.375,
		DesignPressurePSI:  150,
		DesignTemperatureF: 150,
		NozzleCount:        4,
		LegCount:           4,
	}
}

// DefaultValidation returns physically plausible ranges for numeric attributes
func DefaultValidation() ValidationConfig {
	return ValidationConfig{
		Ranges: map[string]Range{
			string(AttrDiameterIn):         {Min: 0, Max: 600, ExclusiveMin: true},
			string(AttrLengthFt):           {Min: 0, Max: 300, ExclusiveMin: true},
			string(AttrWallThicknessIn):    {Min: 0, Max: 12, ExclusiveMin: true},
			string(AttrDesignPressurePSI):  {Min: 0, Max: 20000},
			string(AttrDesignTemperatureF): {Min: -320, Max: 1500},
			string(AttrNozzleCount):        {Min: 0, Max: 200, Integer: true},
			string(AttrLegCount):           {Min: 0, Max: 16, Integer: true},
			string(AttrOperatingWeightLb):  {Min: 0, Max: 2000000, ExclusiveMin: true},
			string(AttrSurfaceAreaFt2):     {Min: 0, Max: 100000, ExclusiveMin: true},
			string(AttrHeadsWeightLb):      {Min: 0, Max: 1000000, ExclusiveMin: true},
			string(AttrShellsWeightLb):     {Min: 0, Max: 1000000, ExclusiveMin: true},
		},
	}
}
