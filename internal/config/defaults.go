package config

const (
	defaultConfigPath              = "~/.config/slidecue/config.toml"
	defaultWorkDir                 = "~/.local/share/slidecue/work"
	defaultOutputDir               = "~/slidecue"
	defaultLogDir                  = "~/.local/share/slidecue/logs"
	defaultStorePath               = "~/.local/share/slidecue/runs.db"
	defaultSamplingInterval        = 1.0
	defaultFirstSlideScanSeconds   = 30.0
	defaultHashMaxDistance         = 8
	defaultDefiniteMatchDistance   = 2
	defaultSimilarityStrategy      = "jaccard"
	defaultJaccardThreshold        = 0.65
	defaultFuzzyThreshold          = 75.0
	defaultMinTokenLength          = 2
	defaultRoIPadding              = 5
	defaultRoIMinWidth             = 500
	defaultRoIMinHeight            = 500
	defaultRoIMinArea              = 5000
	defaultPDFDPI                  = 200.0
	defaultTesseractBinary         = "tesseract"
	defaultOCRLanguage             = "eng"
	defaultOCRPageSegMode          = 11
	defaultOCREngineMode           = 3
	defaultOCRMinConfidence        = 80.0
	defaultTranscriptionModel      = "large-v3"
	defaultTranscriptionVADMethod  = "silero"
	defaultNtfyRequestTimeout      = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	similarityStrategyJaccard      = "jaccard"
	similarityStrategyFuzzy        = "fuzzy"
	hashBits                       = 64
	maxPercent                     = 100.0
	maxSamplingIntervalSeconds     = 3600.0
	minFirstSlideScanSeconds       = 0.001
)

// DefaultKeywords returns the first-slide keyword set used when none is configured.
func DefaultKeywords() []string {
	return []string{"FH", "AACHEN", "UNIVERSITY", "OF", "APPLIED", "SCIENCES"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Detection: Detection{
			Keywords:                DefaultKeywords(),
			IgnoreKeywords:          DefaultKeywords(),
			SamplingIntervalSeconds: defaultSamplingInterval,
			FirstSlideScanSeconds:   defaultFirstSlideScanSeconds,
			HashMaxDistance:         defaultHashMaxDistance,
			DefiniteMatchDistance:   defaultDefiniteMatchDistance,
			SimilarityStrategy:      defaultSimilarityStrategy,
			JaccardThreshold:        defaultJaccardThreshold,
			FuzzyThreshold:          defaultFuzzyThreshold,
			MinTokenLength:          defaultMinTokenLength,
			RoIPadding:              defaultRoIPadding,
			RoIMinWidth:             defaultRoIMinWidth,
			RoIMinHeight:            defaultRoIMinHeight,
			RoIMinArea:              defaultRoIMinArea,
			PDFDPI:                  defaultPDFDPI,
		},
		OCR: OCR{
			Binary:        defaultTesseractBinary,
			Language:      defaultOCRLanguage,
			PageSegMode:   defaultOCRPageSegMode,
			EngineMode:    defaultOCREngineMode,
			MinConfidence: defaultOCRMinConfidence,
		},
		Transcription: Transcription{
			Enabled:   true,
			Model:     defaultTranscriptionModel,
			VADMethod: defaultTranscriptionVADMethod,
		},
		Chapters: Chapters{
			Enabled: false,
		},
		Store: Store{
			Enabled: true,
			Path:    defaultStorePath,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
